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
// Package netaddr implements the adapter's tagged address union: an
// address is either absent, an IPv4 endpoint, or an IPv6 endpoint, each
// carrying a port. It mirrors the C union mobile_addr so checksum and
// config-blob code can keep operating on fixed-size byte arrays.
package netaddr

import "fmt"

// Type identifies which arm of the union is populated.
type Type uint8

const (
	TypeNone Type = iota
	TypeIPv4
	TypeIPv6
)

// Addr is the Go analogue of struct mobile_addr. Host is always 16 bytes
// wide; only the first 4 are meaningful for TypeIPv4.
type Addr struct {
	Type Type
	Port uint16
	Host [16]byte
}

// None reports whether the address is unset.
func (a Addr) None() bool { return a.Type == TypeNone }

// Copy returns a value copy, mirroring mobile_addr_copy (a plain struct
// assignment suffices in Go; kept as a named function to match the
// original's call sites one-to-one).
func (a Addr) Copy() Addr { return a }

// Compare mirrors mobile_addr_compare: two addresses are equal only if
// their type, port, and the type-appropriate slice of Host match.
func Compare(a, b Addr) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == TypeNone {
		return true
	}
	if a.Port != b.Port {
		return false
	}
	switch a.Type {
	case TypeIPv4:
		return [4]byte(a.Host[:4]) == [4]byte(b.Host[:4])
	case TypeIPv6:
		return a.Host == b.Host
	default:
		return false
	}
}

// IPv4 builds an Addr from four octets and a port.
func IPv4(octets [4]byte, port uint16) Addr {
	var a Addr
	a.Type = TypeIPv4
	a.Port = port
	copy(a.Host[:4], octets[:])
	return a
}

func (a Addr) String() string {
	switch a.Type {
	case TypeNone:
		return "<none>"
	case TypeIPv4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Host[0], a.Host[1], a.Host[2], a.Host[3], a.Port)
	case TypeIPv6:
		return fmt.Sprintf("%x:%d", a.Host, a.Port)
	default:
		return "<invalid>"
	}
}
