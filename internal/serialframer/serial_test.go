/*
 * mobileadapter: Game Boy Mobile Adapter protocol emulator
 * Copyright 2019 Daniel Selifonov
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */
package serialframer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mobileadapter/internal/config"
	"mobileadapter/internal/serialframer"
)

type echoProcessor struct {
	lastCommand byte
	lastData    []byte
}

func (e *echoProcessor) Process(command byte, data []byte) (byte, []byte) {
	e.lastCommand = command
	e.lastData = append([]byte(nil), data...)
	return command, nil
}

func TestWaitingIgnoresNonMagicBytes(t *testing.T) {
	proc := &echoProcessor{}
	f := serialframer.New(proc, config.DeviceBlue)
	require.Equal(t, byte(0xD2), f.Transfer(0x00))
	require.Equal(t, serialframer.StateWaiting, f.State())
}

func TestBeginSessionHandshakeAdvancesState(t *testing.T) {
	proc := &echoProcessor{}
	f := serialframer.New(proc, config.DeviceBlue)

	f.Transfer(0x99)
	f.Transfer(0x66)
	f.Transfer(0x10) // BEGIN_SESSION
	f.Transfer(0x00)
	f.Transfer(0x00)
	f.Transfer(0x00) // zero-length payload
	require.Equal(t, serialframer.StateChecksum, f.State())

	f.Transfer(0x00)
	f.Transfer(0x10) // checksum: 0x10 + 0x00 + 0x00 + 0x00
	require.Equal(t, serialframer.StateAcknowledge, f.State())

	f.Transfer(0)
	require.Equal(t, serialframer.StateIdleCheck, f.State())

	// One delay byte, then the idle-ack releases the packet into
	// RESPONSE_WAITING; the next transfer runs the processor, which is
	// what marks the session begun.
	f.Transfer(0xD2)
	f.Transfer(0x4B)
	f.Transfer(0x00)
	require.True(t, f.SessionBegun())
	require.Equal(t, byte(0x10), proc.lastCommand)
}
