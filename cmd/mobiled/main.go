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
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	serial "github.com/daedaluz/goserial"

	"mobileadapter/internal/config"
	"mobileadapter/internal/debugtrace"
	"mobileadapter/internal/mobile"
)

func main() {
	devicePath := ""
	configPath := ""
	bootstrapPath := ""
	device := ""
	verbose := false
	logTrafficOnly := false

	flag.StringVar(&devicePath, "serial", "", "Serial device the link cable adapter is attached to")
	flag.StringVar(&configPath, "config", "mobileadapter.cfg", "Path to the persisted adapter configuration blob")
	flag.StringVar(&bootstrapPath, "bootstrap", "", "YAML file bootstrapping the configuration when -config does not exist yet")
	flag.StringVar(&device, "device", "blue", "Adapter device to emulate: gameboy, gba, blue, yellow, green, red")
	flag.BoolVar(&verbose, "v", false, "Enable debug-level logging")
	flag.BoolVar(&logTrafficOnly, "trace", false, "Log every serial command packet")
	flag.Parse()

	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if devicePath == "" {
		fmt.Fprintln(os.Stderr, "mobiled: -serial is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadOrBootstrapConfig(configPath, bootstrapPath, device, logger)
	if err != nil {
		logger.Fatal("loading configuration", "err", err)
	}

	port, err := serial.Open(devicePath, nil)
	if err != nil {
		logger.Fatal("opening serial device", "device", devicePath, "err", err)
	}
	defer port.Close()

	var tracer *debugtrace.Tracer
	if logTrafficOnly || verbose {
		traceLogger := logger.With("component", "trace")
		traceLogger.SetLevel(log.DebugLevel)
		tracer = debugtrace.New(traceLogger)
	}

	b := newHostBoard(logger, configPath, cfg)
	adapter := mobile.New(b, cfg)

	if tracer != nil {
		adapter.Proc.Tracer = tracer
	}

	logger.Info("adapter ready", "device", cfg.Device, "serial", devicePath)

	go func() {
		ticker := time.NewTicker(15 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			adapter.Loop()
		}
	}()

	buf := make([]byte, 1)
	for {
		if _, err := port.Read(buf); err != nil {
			logger.Error("serial read failed", "err", err)
			return
		}
		out := adapter.Transfer(buf[0])
		if _, err := port.Write([]byte{out}); err != nil {
			logger.Error("serial write failed", "err", err)
			return
		}
	}
}

// bootstrapFile is the host-side configuration the operator hand-writes
// once; it seeds the persisted adapter blob the first time mobiled runs
// against a fresh -config path. It is distinct from the 192-byte blob
// itself, which the linked console can rewrite through
// WRITE_CONFIGURATION_DATA and which must stay in its binary wire form.
type bootstrapFile struct {
	Device    string `yaml:"device"`
	Unmetered bool   `yaml:"unmetered"`
	P2PPort   uint16 `yaml:"p2p_port"`
	DNS1      string `yaml:"dns1"`
	DNS2      string `yaml:"dns2"`
	Relay     string `yaml:"relay"`
}

func parseDevice(name string) (config.Device, error) {
	switch name {
	case "gameboy":
		return config.DeviceGameboy, nil
	case "gba":
		return config.DeviceGameboyAdvance, nil
	case "blue":
		return config.DeviceBlue, nil
	case "yellow":
		return config.DeviceYellow, nil
	case "green":
		return config.DeviceGreen, nil
	case "red":
		return config.DeviceRed, nil
	default:
		return 0, fmt.Errorf("unknown device %q", name)
	}
}
