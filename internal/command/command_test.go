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
package command_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mobileadapter/internal/board"
	"mobileadapter/internal/command"
	"mobileadapter/internal/config"
	"mobileadapter/internal/netaddr"
)

type stubBoard struct{}

func (stubBoard) SerialEnable(bool)                            {}
func (stubBoard) SerialDisable()                                {}
func (stubBoard) DebugCmd(string)                               {}
func (stubBoard) ConfigRead(dst []byte, offset int) bool        { return true }
func (stubBoard) ConfigWrite(src []byte, offset int) bool       { return true }
func (stubBoard) TimeLatch(board.Timer) time.Time               { return time.Now() }
func (stubBoard) TimeCheckMS(board.Timer, uint32) bool          { return false }
func (stubBoard) SockOpen(int, board.SockType, netaddr.Type) bool { return true }
func (stubBoard) SockClose(int)                                 {}
func (stubBoard) SockConnect(int, netaddr.Addr) int              { return 1 }
func (stubBoard) SockListen(int) bool                            { return true }
func (stubBoard) SockAccept(int) int                             { return 0 }
func (stubBoard) SockSend(int, []byte, *netaddr.Addr) int        { return 0 }
func (stubBoard) SockRecv(int, []byte, *netaddr.Addr) int        { return 0 }

func TestBeginSessionRejectsWrongPayload(t *testing.T) {
	cfg := config.New()
	proc := command.New(stubBoard{}, cfg)
	replyCmd, replyData := proc.Process(command.BeginSession, []byte("WRONG"))
	require.Equal(t, command.Error, replyCmd)
	require.Equal(t, []byte{command.BeginSession, command.ErrArguments}, replyData)
}

func TestBeginSessionAccepted(t *testing.T) {
	cfg := config.New()
	proc := command.New(stubBoard{}, cfg)
	replyCmd, replyData := proc.Process(command.BeginSession, []byte("NINTENDO"))
	require.Equal(t, command.BeginSession, replyCmd)
	require.Equal(t, []byte("NINTENDO"), replyData)
}

func TestUnknownCommandReturnsError(t *testing.T) {
	cfg := config.New()
	proc := command.New(stubBoard{}, cfg)
	replyCmd, replyData := proc.Process(0x55, nil)
	require.Equal(t, command.Error, replyCmd)
	require.Equal(t, []byte{0x55, command.ErrUnknownCommand}, replyData)
}

func TestDialTelephoneByIP(t *testing.T) {
	cfg := config.New()
	proc := command.New(stubBoard{}, cfg)

	replyCmd, _ := proc.Process(command.DialTelephone, append([]byte{0}, []byte("127000000001")...))
	require.Equal(t, byte(0), replyCmd, "dial is asynchronous: first call only starts connecting")

	replyCmd, _ = proc.Process(command.DialTelephone, nil)
	require.Equal(t, command.DialTelephone, replyCmd)
}

func TestTelephoneStatusReflectsDevice(t *testing.T) {
	cfg := config.New()
	proc := command.New(stubBoard{}, cfg)
	_, data := proc.Process(command.TelephoneStatus, nil)
	require.Equal(t, byte(0x4D), data[1], "blue adapter reports its device magic byte")
}
