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
// Package debugtrace implements the adapter's line-oriented debug sink:
// one formatted line per inbound or outbound packet, with a per-command
// pretty-printer. Grounded on the original firmware's debug.c and its
// example mobile_board_debug_cmd implementation in debug_cmd.h, adapted
// to a charmbracelet/log sink instead of printf.
package debugtrace

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// Command mirrors the subset of enum mobile_command the tracer formats
// specially; anything else falls back to a generic hex dump.
const (
	CmdBeginSession           = 0x10
	CmdEndSession             = 0x11
	CmdDialTelephone          = 0x12
	CmdHangUpTelephone        = 0x13
	CmdWaitForTelephoneCall   = 0x14
	CmdTransferData           = 0x15
	CmdTelephoneStatus        = 0x17
	CmdReadConfigurationData  = 0x19
	CmdWriteConfigurationData = 0x1A
	CmdError                  = 0x6E
)

// Tracer writes one line per packet via a charmbracelet/log logger.
type Tracer struct {
	logger *log.Logger
}

// New wraps an existing logger (a sub-logger scoped with a "component"
// field is a good fit) as a packet tracer.
func New(logger *log.Logger) *Tracer {
	return &Tracer{logger: logger}
}

// Packet traces one command/data packet, send reporting direction: false
// for host-to-adapter (received), true for adapter-to-host (sent).
func (t *Tracer) Packet(send bool, command byte, data []byte) {
	dir := ">>>"
	if send {
		dir = "<<<"
	}
	t.logger.Debug(fmt.Sprintf("%s %02X %s", dir, command, describe(send, command, data)))
}

func describe(send bool, command byte, data []byte) string {
	switch command {
	case CmdBeginSession:
		return "Begin session: " + string(data)
	case CmdEndSession:
		return "End session"
	case CmdTelephoneStatus:
		if send && len(data) >= 1 {
			return fmt.Sprintf("Telephone status: %02X", data[0])
		}
		return "Telephone status"
	case CmdReadConfigurationData:
		if !send && len(data) >= 2 {
			return fmt.Sprintf("Read configuration data (offset: %02X; size: %02X)", data[0], data[1])
		}
		if len(data) >= 1 {
			return "Read configuration data" + hexDump(data[1:])
		}
		return "Read configuration data"
	case CmdWriteConfigurationData:
		if !send && len(data) >= 1 {
			return fmt.Sprintf("Write configuration data (offset: %02X; size: %02X)%s", data[0], len(data)-1, hexDump(data[1:]))
		}
		return "Write configuration data"
	case CmdDialTelephone:
		s := "Dial telephone"
		if !send && len(data) >= 1 {
			s += fmt.Sprintf(" (unkn %02X)", data[0])
		}
		if !send && len(data) >= 2 {
			i := 1
			for i < len(data) && data[i] == '#' {
				i++
			}
			s += " #" + string(data[i:])
		}
		return s
	case CmdWaitForTelephoneCall:
		return "Wait for telephone call"
	case CmdHangUpTelephone:
		return "Hang up telephone"
	case CmdTransferData:
		return "Transfer data" + hexDump(data)
	case CmdError:
		if len(data) >= 2 {
			return fmt.Sprintf("Error %02X", data[1])
		}
		return "Error"
	default:
		return "Unknown" + hexDump(data)
	}
}

func hexDump(buf []byte) string {
	if len(buf) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(buf); i += 0x10 {
		b.WriteString("\n    ")
		end := i + 0x10
		if end > len(buf) {
			end = len(buf)
		}
		for _, c := range buf[i:end] {
			fmt.Fprintf(&b, "%02X ", c)
		}
	}
	return b.String()
}
