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
package config_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"mobileadapter/internal/config"
	"mobileadapter/internal/netaddr"
)

func TestNewDefaults(t *testing.T) {
	c := config.New()
	require.Equal(t, config.DeviceBlue, c.Device)
	require.Equal(t, uint16(config.DefaultP2PPort), c.P2PPort)
	_, set := c.RelayToken()
	require.False(t, set)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	c := config.New()
	c.SetDNS(netaddr.IPv4([4]byte{8, 8, 8, 8}, 53), netaddr.IPv4([4]byte{8, 8, 4, 4}, 53))
	c.SetP2PPort(2000)
	c.SetRelayToken([16]byte{1, 2, 3})

	blob := c.Marshal()
	require.Len(t, blob, config.BlobSize)

	back, err := config.Unmarshal(blob[:])
	require.NoError(t, err)
	if diff := cmp.Diff(c, back, cmp.AllowUnexported(config.Config{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, uint16(2000), back.P2PPort)
	token, set := back.RelayToken()
	require.True(t, set)
	require.Equal(t, [16]byte{1, 2, 3}, token)
}

func TestUnmarshalRejectsCorruption(t *testing.T) {
	c := config.New()
	blob := c.Marshal()
	blob[0] ^= 0xFF
	_, err := config.Unmarshal(blob[:])
	require.Error(t, err)
}
