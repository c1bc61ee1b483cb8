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
package main

import (
	"io"
	"net"
	"time"

	"github.com/charmbracelet/log"

	"mobileadapter/internal/board"
	"mobileadapter/internal/config"
	"mobileadapter/internal/netaddr"
)

// maxConnTableSize is larger than command.MaxConnections: the command
// processor only opens slots below that bound (its DNS socket included),
// so the remaining slots stay unused.
const maxConnTableSize = 4

// slot is one entry in the board's socket connection table. Connect is
// driven by a dialer goroutine so SockConnect can return immediately;
// Send/Recv are short-deadline reads/writes on the real net.Conn, their
// timeouts surfacing as the board contract's "would block" 0.
type slot struct {
	sockType board.SockType
	conn     net.Conn
	udpAddr  *net.UDPAddr

	dialing  bool
	dialErr  error
	dialDone chan struct{}

	listener net.Listener
	accepted chan net.Conn
}

// hostBoard implements board.Board over real TCP/UDP sockets and a
// file-backed configuration blob, grounded on the original firmware's
// example mobile_board_* implementation expectations (mobile.h) and
// wired the way cmd/nosshtradamus/main.go wires real listeners/dialers
// into its core engine.
type hostBoard struct {
	logger     *log.Logger
	configPath string
	cfg        *config.Config

	slots  [maxConnTableSize]*slot
	timers [2]time.Time
}

func newHostBoard(logger *log.Logger, configPath string, cfg *config.Config) *hostBoard {
	return &hostBoard{logger: logger, configPath: configPath, cfg: cfg}
}

func (b *hostBoard) SerialEnable(mode32Bit bool) {
	b.logger.Debug("serial enabled", "mode32bit", mode32Bit)
}

func (b *hostBoard) SerialDisable() {
	b.logger.Debug("serial disabled")
}

func (b *hostBoard) DebugCmd(line string) {
	b.logger.Debug(line)
}

func (b *hostBoard) ConfigRead(dst []byte, offset int) bool {
	blob := b.cfg.Marshal()
	if offset < 0 || offset+len(dst) > len(blob) {
		return false
	}
	copy(dst, blob[offset:offset+len(dst)])
	return true
}

func (b *hostBoard) ConfigWrite(src []byte, offset int) bool {
	blob := b.cfg.Marshal()
	if offset < 0 || offset+len(src) > len(blob) {
		return false
	}
	copy(blob[offset:offset+len(src)], src)
	updated, err := config.Unmarshal(blob[:])
	if err != nil {
		// The console wrote a partial or not-yet-checksummed blob;
		// accept the write but leave the in-memory config as is until
		// a complete, valid blob has been assembled.
		return true
	}
	*b.cfg = *updated
	if err := persistConfig(b.configPath, b.cfg); err != nil {
		b.logger.Error("persisting configuration", "err", err)
	}
	return true
}

func (b *hostBoard) TimeLatch(t board.Timer) time.Time {
	now := time.Now()
	b.timers[t] = now
	return now
}

func (b *hostBoard) TimeCheckMS(t board.Timer, ms uint32) bool {
	if b.timers[t].IsZero() {
		return false
	}
	return time.Since(b.timers[t]) >= time.Duration(ms)*time.Millisecond
}

func (b *hostBoard) SockOpen(conn int, t board.SockType, _ netaddr.Type) bool {
	if conn < 0 || conn >= len(b.slots) {
		return false
	}
	b.slots[conn] = &slot{sockType: t}
	return true
}

func (b *hostBoard) SockClose(conn int) {
	if conn < 0 || conn >= len(b.slots) || b.slots[conn] == nil {
		return
	}
	s := b.slots[conn]
	if s.conn != nil {
		s.conn.Close()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	b.slots[conn] = nil
}

func (b *hostBoard) SockConnect(conn int, addr netaddr.Addr) int {
	s := b.slots[conn]
	if s == nil {
		return -1
	}
	if s.conn != nil {
		return 1
	}
	if s.dialing {
		select {
		case <-s.dialDone:
			if s.dialErr != nil {
				return -1
			}
			return 1
		default:
			return 0
		}
	}

	network := "tcp"
	if s.sockType == board.SockUDP {
		network = "udp"
	}
	s.dialing = true
	s.dialDone = make(chan struct{})
	go func() {
		c, err := net.DialTimeout(network, addr.String(), 5*time.Second)
		s.conn = c
		s.dialErr = err
		close(s.dialDone)
	}()
	return 0
}

func (b *hostBoard) SockListen(conn int) bool {
	s := b.slots[conn]
	if s == nil {
		return false
	}
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		b.logger.Error("listen failed", "err", err)
		return false
	}
	s.listener = listener
	s.accepted = make(chan net.Conn, 1)
	go func() {
		c, err := listener.Accept()
		if err == nil {
			s.accepted <- c
		}
	}()
	return true
}

func (b *hostBoard) SockAccept(conn int) int {
	s := b.slots[conn]
	if s == nil {
		return -1
	}
	select {
	case c := <-s.accepted:
		s.conn = c
		return 1
	default:
		return 0
	}
}

func (b *hostBoard) SockSend(conn int, data []byte, addr *netaddr.Addr) int {
	s := b.slots[conn]
	if s == nil || s.conn == nil {
		return -1
	}
	s.conn.SetWriteDeadline(time.Now().Add(50 * time.Millisecond))
	n, err := s.conn.Write(data)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0
		}
		return -1
	}
	return n
}

func (b *hostBoard) SockRecv(conn int, buf []byte, addr *netaddr.Addr) int {
	s := b.slots[conn]
	if s == nil || s.conn == nil {
		return 0
	}
	if len(buf) == 0 {
		return 0
	}
	s.conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	n, err := s.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0
		}
		if err == io.EOF {
			return -2
		}
		return -1
	}
	return n
}
