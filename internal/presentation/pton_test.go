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
package presentation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mobileadapter/internal/presentation"
)

func TestParseIPv4(t *testing.T) {
	out, ok := presentation.ParseIPv4("127.0.0.1")
	require.True(t, ok)
	require.Equal(t, [4]byte{127, 0, 0, 1}, out)

	out, ok = presentation.ParseIPv4("010.000.000.001")
	require.True(t, ok, "zero-prefixed octets are accepted")
	require.Equal(t, [4]byte{10, 0, 0, 1}, out)

	_, ok = presentation.ParseIPv4("1.2.3")
	require.False(t, ok)

	_, ok = presentation.ParseIPv4("1.2.3.4.5")
	require.False(t, ok)

	_, ok = presentation.ParseIPv4("999.0.0.1")
	require.False(t, ok)
}

func TestParseIPv6(t *testing.T) {
	out, ok := presentation.ParseIPv6("::1")
	require.True(t, ok)
	want := [16]byte{}
	want[15] = 1
	require.Equal(t, want, out)

	_, ok = presentation.ParseIPv6("::1::2")
	require.False(t, ok, "only one zero-compression allowed")

	out, ok = presentation.ParseIPv6("::ffff:127.0.0.1")
	require.True(t, ok)
	require.Equal(t, byte(0xff), out[10])
	require.Equal(t, byte(127), out[12])
}
