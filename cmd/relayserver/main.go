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
// relayserver hosts the supplemental rendezvous relay that pairs two
// adapter clients dialing each other's relay phone numbers, since the
// original firmware only ever shipped the client half of the protocol.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"mobileadapter/internal/relay"
)

func main() {
	listenAddr := ""
	flag.StringVar(&listenAddr, "listen", ":1027", "Address to listen for relay client connections on")
	flag.Parse()

	logger := log.New(os.Stderr, "relayserver: ", log.LstdFlags)

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		logger.Fatalf("listen on %s: %v", listenAddr, err)
	}
	defer listener.Close()

	logger.Printf("listening on %s", listener.Addr())

	dir := relay.NewDirectory()
	srv := relay.NewServer(dir, logger)
	if err := srv.Serve(listener); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
