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
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"mobileadapter/internal/config"
	"mobileadapter/internal/netaddr"
	"mobileadapter/internal/presentation"
)

// loadOrBootstrapConfig reads the persisted adapter configuration blob at
// configPath. If it does not exist yet, a fresh one is built from the
// bootstrap yaml file (or plain defaults, if no bootstrap file was
// given) and written out so the next run finds it.
func loadOrBootstrapConfig(configPath, bootstrapPath, deviceFlag string, logger *log.Logger) (*config.Config, error) {
	if blob, err := os.ReadFile(configPath); err == nil {
		cfg, err := config.Unmarshal(blob)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
		return cfg, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", configPath, err)
	}

	logger.Info("no persisted configuration found, bootstrapping", "path", configPath)
	cfg := config.New()

	device, err := parseDevice(deviceFlag)
	if err != nil {
		return nil, err
	}
	cfg.SetDevice(device, cfg.Unmetered)

	if bootstrapPath != "" {
		raw, err := os.ReadFile(bootstrapPath)
		if err != nil {
			return nil, fmt.Errorf("reading bootstrap file %s: %w", bootstrapPath, err)
		}
		var boot bootstrapFile
		if err := yaml.Unmarshal(raw, &boot); err != nil {
			return nil, fmt.Errorf("parsing bootstrap file %s: %w", bootstrapPath, err)
		}
		if err := applyBootstrap(cfg, &boot); err != nil {
			return nil, fmt.Errorf("applying bootstrap file %s: %w", bootstrapPath, err)
		}
	}

	if err := persistConfig(configPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyBootstrap(cfg *config.Config, boot *bootstrapFile) error {
	if boot.Device != "" {
		device, err := parseDevice(boot.Device)
		if err != nil {
			return err
		}
		cfg.SetDevice(device, boot.Unmetered)
	}
	if boot.P2PPort != 0 {
		cfg.SetP2PPort(boot.P2PPort)
	}

	var dns1, dns2, relay netaddr.Addr
	var err error
	if boot.DNS1 != "" {
		if dns1, err = parseEndpoint(boot.DNS1); err != nil {
			return fmt.Errorf("dns1: %w", err)
		}
	}
	if boot.DNS2 != "" {
		if dns2, err = parseEndpoint(boot.DNS2); err != nil {
			return fmt.Errorf("dns2: %w", err)
		}
	}
	cfg.SetDNS(dns1, dns2)

	if boot.Relay != "" {
		if relay, err = parseEndpoint(boot.Relay); err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		cfg.SetRelay(relay)
	}
	return nil
}

// parseEndpoint parses a "host:port" bootstrap string into a
// netaddr.Addr. The host itself is validated with the same strict
// dotted-quad grammar DNS_QUERY uses to recognize an inline address,
// rather than net.ParseIP's.
func parseEndpoint(hostport string) (netaddr.Addr, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return netaddr.Addr{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return netaddr.Addr{}, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	octets, ok := presentation.ParseIPv4(host)
	if !ok {
		return netaddr.Addr{}, fmt.Errorf("unrecognized address %q", host)
	}
	return netaddr.IPv4(octets, uint16(port)), nil
}

func persistConfig(path string, cfg *config.Config) error {
	blob := cfg.Marshal()
	return os.WriteFile(path, blob[:], 0o600)
}
