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
// Package mobile assembles the serial framer, command processor and
// board callbacks into the adapter's top-level scheduler: the
// Transfer/Loop pair a host polls once per link-cable byte and once per
// housekeeping tick, mirroring mobile_transfer/mobile_loop. The flags
// Transfer and Loop both touch (whether a transfer is in flight, whether
// a session has begun) live in atomics; the richer framer state they
// guard needs the mutex below.
package mobile

import (
	"sync"
	"sync/atomic"
	"time"

	"mobileadapter/internal/board"
	"mobileadapter/internal/command"
	"mobileadapter/internal/config"
	"mobileadapter/internal/serialframer"
)

// Action mirrors enum mobile_action: the housekeeping decision Loop
// reaches after inspecting timers and transceiver state.
type Action uint8

const (
	ActionNone Action = iota
	ActionProcessCommand
	ActionChange32BitMode
	ActionDropConnection
	ActionReset
	ActionResetSerial
)

const (
	dropConnectionTimeout = 3000 * time.Millisecond
	resetTimeout          = 3000 * time.Millisecond
	resetSerialTimeout    = 500 * time.Millisecond
)

// Adapter is the top-level emulated mobile adapter. Transfer is called
// from the serial I/O goroutine and Loop from a separate housekeeping
// ticker; mu serializes their access to the framer, since unlike the
// plain active/sessionBegun flags its state isn't safe for concurrent
// mutation.
type Adapter struct {
	Board  board.Board
	Config *config.Config
	Proc   *command.Processor
	Framer *serialframer.Framer

	mu sync.Mutex

	active       atomic.Bool
	sessionBegun atomic.Bool

	serialLatched time.Time
}

// New wires a fresh Adapter from a board and configuration.
func New(b board.Board, cfg *config.Config) *Adapter {
	proc := command.New(b, cfg)
	framer := serialframer.New(proc, cfg.Device)
	return &Adapter{Board: b, Config: cfg, Proc: proc, Framer: framer}
}

// Transfer clocks one serial byte through the framer, mirroring
// mobile_transfer: it latches the serial timer and marks the link
// active before delegating.
func (a *Adapter) Transfer(in byte) byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.serialLatched = a.Board.TimeLatch(board.TimerSerial)
	a.active.Store(true)
	out := a.Framer.Transfer(in)
	a.sessionBegun.Store(a.Framer.SessionBegun())
	return out
}

// ActionGet inspects timers and transceiver state to decide what
// housekeeping action Loop should take next, mirroring
// mobile_action_get.
func (a *Adapter) ActionGet() Action {
	a.mu.Lock()
	defer a.mu.Unlock()

	sessionBegun := a.sessionBegun.Load()
	active := a.active.Load()

	if sessionBegun && a.Board.TimeCheckMS(board.TimerSerial, uint32(dropConnectionTimeout.Milliseconds())) {
		return ActionDropConnection
	}
	if active && !sessionBegun && a.Board.TimeCheckMS(board.TimerSerial, uint32(resetTimeout.Milliseconds())) {
		return ActionReset
	}
	if a.Framer.State() == serialframer.StateResponseWaiting {
		return ActionProcessCommand
	}
	if a.Framer.State() == serialframer.StateWaiting && a.Proc.PendingMode32Bit() != a.Framer.Mode32Bit() {
		return ActionChange32BitMode
	}
	if !active && !sessionBegun && a.Board.TimeCheckMS(board.TimerSerial, uint32(resetSerialTimeout.Milliseconds())) {
		return ActionResetSerial
	}
	return ActionNone
}

// ActionProcess performs the given action, bracketing every mutation
// with SerialEnable/SerialDisable as mobile_action_process does.
func (a *Adapter) ActionProcess(action Action) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch action {
	case ActionNone:
		return
	case ActionDropConnection:
		a.Board.SerialDisable()
		a.Framer.Reset()
		a.sessionBegun.Store(false)
		a.active.Store(false)
		a.Board.SerialEnable(a.Framer.Mode32Bit())
	case ActionReset:
		a.Board.SerialDisable()
		a.Framer.Reset()
		a.sessionBegun.Store(false)
		a.active.Store(false)
		a.Board.SerialEnable(a.Framer.Mode32Bit())
	case ActionResetSerial:
		a.Board.SerialDisable()
		a.active.Store(false)
		a.Board.SerialEnable(a.Framer.Mode32Bit())
	case ActionProcessCommand:
		// The Go port's serialframer already re-polls the command
		// processor on its own from RESPONSE_WAITING every time
		// Transfer is clocked, so there is nothing further to do
		// here; the action exists for parity with the scheduler
		// shape and as a hook for hosts that want to observe when a
		// command is still pending.
	case ActionChange32BitMode:
		a.Board.SerialDisable()
		a.Framer.SetMode32Bit(a.Proc.PendingMode32Bit())
		a.Board.SerialEnable(a.Framer.Mode32Bit())
	}
}

// Loop runs one housekeeping tick, mirroring mobile_loop.
func (a *Adapter) Loop() {
	a.ActionProcess(a.ActionGet())
}

// Init resets the adapter to its idle state, mirroring mobile_init.
func (a *Adapter) Init() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Framer.Reset()
	a.active.Store(false)
	a.sessionBegun.Store(false)
}
