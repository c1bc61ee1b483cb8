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
// Package board declares the host callback surface the adapter core
// calls out to: enabling/disabling the serial line, a debug sink,
// persisted-config read/write, millisecond timers, and non-blocking
// Berkeley-style sockets. Each method mirrors one mobile_board_* callback
// prototype from the original firmware's public header.
package board

import (
	"time"

	"mobileadapter/internal/netaddr"
)

// SockType distinguishes TCP from UDP, mirroring enum mobile_socktype.
type SockType uint8

const (
	SockTCP SockType = iota
	SockUDP
)

// Timer identifies one of the adapter's fixed hardware timer slots,
// mirroring enum mobile_timers.
type Timer uint8

const (
	TimerSerial Timer = iota
	TimerCommand
)

// Board is the callback surface a host process must implement to run the
// adapter core. Every socket method is non-blocking: Connect/Accept/Send
// return immediately and are polled by the caller until they stop
// returning "would block".
type Board interface {
	// SerialEnable/SerialDisable bracket every mutation the core makes to
	// shared serial state, mirroring mobile_board_serial_enable/disable.
	SerialEnable(mode32Bit bool)
	SerialDisable()

	// DebugCmd receives a formatted debug line, mirroring
	// mobile_board_debug_cmd.
	DebugCmd(line string)

	// ConfigRead fills dst (len(dst) <= 0x80) from the persisted config
	// blob at the given offset. It returns false on I/O failure.
	ConfigRead(dst []byte, offset int) bool
	// ConfigWrite persists src at the given offset. It returns false on
	// I/O failure.
	ConfigWrite(src []byte, offset int) bool

	// TimeLatch records the current time against the given timer slot.
	TimeLatch(t Timer) time.Time
	// TimeCheckMS reports whether at least ms milliseconds have elapsed
	// since the last TimeLatch of this timer.
	TimeCheckMS(t Timer, ms uint32) bool

	// Sock* implement a minimal non-blocking socket API.
	//
	// Open/Close manage a fixed-size connection table slot identified by
	// conn. Connect/Accept return 1 on success, 0 while still in
	// progress (keep polling), -1 on fatal error; Listen reports success
	// as a bool. Send/Recv return the
	// number of bytes transferred (0 meaning would-block, keep polling)
	// or a negative value on fatal error; Recv additionally recognizes
	// -2 (peer closed the connection) and -10 (no data available but
	// the connection is fine, which the command processor answers by
	// echoing the inbound packet back unchanged) as named quirks rather
	// than generic errors.
	SockOpen(conn int, t SockType, addrType netaddr.Type) bool
	SockClose(conn int)
	SockConnect(conn int, addr netaddr.Addr) int
	SockListen(conn int) bool
	SockAccept(conn int) int
	SockSend(conn int, data []byte, addr *netaddr.Addr) int
	SockRecv(conn int, buf []byte, addr *netaddr.Addr) int
}
