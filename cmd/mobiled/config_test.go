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
	"testing"

	"github.com/stretchr/testify/require"

	"mobileadapter/internal/config"
)

func TestParseDevice(t *testing.T) {
	cases := map[string]config.Device{
		"gameboy": config.DeviceGameboy,
		"gba":     config.DeviceGameboyAdvance,
		"blue":    config.DeviceBlue,
		"yellow":  config.DeviceYellow,
		"green":   config.DeviceGreen,
		"red":     config.DeviceRed,
	}
	for name, want := range cases {
		got, err := parseDevice(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := parseDevice("commodore64")
	require.Error(t, err)
}

func TestParseEndpoint(t *testing.T) {
	addr, err := parseEndpoint("104.20.3.7:1027")
	require.NoError(t, err)
	require.Equal(t, "104.20.3.7:1027", addr.String())

	_, err = parseEndpoint("not-an-address:1027")
	require.Error(t, err)

	_, err = parseEndpoint("104.20.3.7")
	require.Error(t, err)

	_, err = parseEndpoint("104.20.3.7:not-a-port")
	require.Error(t, err)
}

func TestApplyBootstrap(t *testing.T) {
	cfg := config.New()
	boot := &bootstrapFile{
		Device:  "gba",
		P2PPort: 1027,
		DNS1:    "8.8.8.8:53",
		Relay:   "104.20.3.7:1027",
	}
	require.NoError(t, applyBootstrap(cfg, boot))
	require.Equal(t, config.DeviceGameboyAdvance, cfg.Device)
	require.Equal(t, uint16(1027), cfg.P2PPort)
	require.Equal(t, "8.8.8.8:53", cfg.DNS1.String())
	require.Equal(t, "104.20.3.7:1027", cfg.Relay.String())
}

func TestApplyBootstrapRejectsBadDevice(t *testing.T) {
	cfg := config.New()
	boot := &bootstrapFile{Device: "commodore64"}
	require.Error(t, applyBootstrap(cfg, boot))
}
