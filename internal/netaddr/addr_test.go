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
package netaddr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mobileadapter/internal/netaddr"
)

func TestCompare(t *testing.T) {
	a := netaddr.IPv4([4]byte{127, 0, 0, 1}, 1027)
	b := netaddr.IPv4([4]byte{127, 0, 0, 1}, 1027)
	c := netaddr.IPv4([4]byte{127, 0, 0, 1}, 80)

	require.True(t, netaddr.Compare(a, b))
	require.False(t, netaddr.Compare(a, c))
	require.True(t, netaddr.Compare(netaddr.Addr{}, netaddr.Addr{}))
}

func TestParsePhoneAddr(t *testing.T) {
	octets, ok := netaddr.ParsePhoneAddr("127000000001")
	require.True(t, ok)
	require.Equal(t, [4]byte{127, 0, 0, 1}, octets)

	_, ok = netaddr.ParsePhoneAddr("12700000000")
	require.False(t, ok, "wrong length must be rejected")

	_, ok = netaddr.ParsePhoneAddr("999000000001")
	require.False(t, ok, "each group must be <= 255")

	_, ok = netaddr.ParsePhoneAddr("12a000000001")
	require.False(t, ok, "non-digit must be rejected")
}

func TestIsIPAddr(t *testing.T) {
	require.True(t, netaddr.IsIPAddr("::1"))
	require.True(t, netaddr.IsIPAddr("127.0.0.1"))
	require.False(t, netaddr.IsIPAddr("example.com"))
}
