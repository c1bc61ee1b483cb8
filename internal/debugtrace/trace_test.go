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
package debugtrace_test

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"mobileadapter/internal/debugtrace"
)

func TestPacketTracesBeginSession(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	tr := debugtrace.New(logger)

	tr.Packet(false, debugtrace.CmdBeginSession, []byte("NINTENDO"))
	require.Contains(t, buf.String(), "Begin session: NINTENDO")
}

func TestPacketTracesUnknownAsHexDump(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	tr := debugtrace.New(logger)

	tr.Packet(true, 0x99, []byte{0xDE, 0xAD})
	require.Contains(t, buf.String(), "Unknown")
	require.Contains(t, buf.String(), "DE AD")
}
