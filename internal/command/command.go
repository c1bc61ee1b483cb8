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
// Package command implements the adapter's 19-command cooperative
// processor: the dispatcher the serial framer calls for each complete,
// checksum-valid packet, plus the per-connection state it carries across
// calls (dial/wait/transfer are all resumable — the framer re-invokes
// the processor with the same packet until the command completes).
// Grounded on the original firmware's commands.c/commands.h.
package command

import (
	"net"
	"time"

	"mobileadapter/internal/board"
	"mobileadapter/internal/config"
	"mobileadapter/internal/debugtrace"
	"mobileadapter/internal/dnscodec"
	"mobileadapter/internal/netaddr"
	"mobileadapter/internal/presentation"
	"mobileadapter/internal/relay"
)

// Opcodes, mirroring enum mobile_command.
const (
	Empty                  byte = 0x0F
	BeginSession           byte = 0x10
	EndSession             byte = 0x11
	DialTelephone          byte = 0x12
	HangUpTelephone        byte = 0x13
	WaitForTelephoneCall   byte = 0x14
	TransferData           byte = 0x15
	Reset                  byte = 0x16
	TelephoneStatus        byte = 0x17
	SIO32Mode              byte = 0x18
	ReadConfigurationData  byte = 0x19
	WriteConfigurationData byte = 0x1A
	TransferDataEnd        byte = 0x1F
	ISPLogin               byte = 0x21
	ISPLogout              byte = 0x22
	OpenTCPConnection      byte = 0x23
	CloseTCPConnection     byte = 0x24
	OpenUDPConnection      byte = 0x25
	CloseUDPConnection     byte = 0x26
	DNSQuery               byte = 0x28
	FirmwareVersion        byte = 0x3F
	Error                  byte = 0x6E
)

// Error data values placed in an ERROR reply's second byte.
const (
	ErrUnknownCommand byte = 1
	ErrGeneric        byte = 0
	ErrArguments       byte = 2
	ErrCommandFailed   byte = 3
	ErrNoNewData       byte = 4
)

// ConnectionState mirrors enum mobile_connection_state.
type ConnectionState uint8

const (
	Disconnected ConnectionState = iota
	Wait
	WaitRelay
	WaitTimeout
	Call
	CallRecv
	CallISP
	Internet
)

// MaxConnections mirrors MOBILE_MAX_CONNECTIONS.
const MaxConnections = 2

// MaxTransferSize mirrors MOBILE_MAX_TRANSFER_SIZE.
const MaxTransferSize = 0xFE

var ispNumbers = []string{"#9677", "#9477", "0077487751", "0077487752"}

type connection struct {
	open bool
	addr netaddr.Addr
}

type dialSubState uint8

const (
	dialIdle dialSubState = iota
	dialConnectingIP
	dialConnectingRelayTCP
	dialConnectingRelay
)

type waitSubState uint8

const (
	waitIdle waitSubState = iota
	waitListening
	waitConnectingRelayTCP
	waitRelayPending
)

// Processor implements serialframer.Processor: it decodes one command
// packet, mutates connection/session state, and produces a reply.
type Processor struct {
	Board  board.Board
	Config *config.Config

	// Tracer, if set, receives one Packet call per Process invocation
	// (so a resumable command is traced again on each re-poll) and one
	// per conclusive reply, mirroring the original firmware's
	// mobile_board_debug_cmd hook.
	Tracer *debugtrace.Tracer

	state       ConnectionState
	mode32Bit   bool
	connections [MaxConnections]connection

	relayClient *relay.Client
	relayConn   net.Conn
	relayDialer *relay.Dialer
	relayDNS2   bool

	dns1, dns2 netaddr.Addr

	callConn    int
	callIsRelay bool

	dialSub     dialSubState
	dialConn    int
	dialNumber  string
	dialStarted time.Time

	waitSub     waitSubState
	waitConn    int
	waitStarted time.Time

	openPending bool
	openConn    int
	openStarted time.Time

	dnsPending bool
	dnsConn    int
	dnsStarted time.Time
	dnsHost    string

	callPacketsSent int
	dnsID           uint16
}

// New returns a Processor in its initial DISCONNECTED state.
func New(b board.Board, cfg *config.Config) *Processor {
	return &Processor{Board: b, Config: cfg, state: Disconnected, dns1: cfg.DNS1, dns2: cfg.DNS2}
}

// Process dispatches one command, mirroring mobile_commands_process.
func (p *Processor) Process(cmd byte, data []byte) (byte, []byte) {
	if p.Tracer != nil {
		p.Tracer.Packet(false, cmd, data)
	}
	replyCmd, replyData := p.dispatch(cmd, data)
	if p.Tracer != nil && !(replyCmd == 0 && replyData == nil) {
		p.Tracer.Packet(true, replyCmd, replyData)
	}
	return replyCmd, replyData
}

func (p *Processor) dispatch(cmd byte, data []byte) (byte, []byte) {
	switch cmd {
	case Empty:
		return Empty, nil
	case BeginSession:
		return p.beginSession(data)
	case EndSession:
		return p.endSession(data)
	case DialTelephone:
		return p.dialTelephone(data)
	case HangUpTelephone:
		return p.hangUpTelephone(data)
	case WaitForTelephoneCall:
		return p.waitForTelephoneCall(data)
	case TransferData:
		return p.transferData(data)
	case Reset:
		return p.reset(data)
	case TelephoneStatus:
		return p.telephoneStatus(data)
	case SIO32Mode:
		return p.sio32Mode(data)
	case ReadConfigurationData:
		return p.readConfigurationData(data)
	case WriteConfigurationData:
		return p.writeConfigurationData(data)
	case ISPLogin:
		return p.ispLogin(data)
	case ISPLogout:
		return p.ispLogout(data)
	case OpenTCPConnection:
		return p.openTCPConnection(data)
	case CloseTCPConnection:
		return p.closeTCPConnection(data)
	case OpenUDPConnection:
		return errorReply(cmd, ErrGeneric) // never implemented upstream
	case CloseUDPConnection:
		return errorReply(cmd, ErrGeneric)
	case DNSQuery:
		return p.dnsQuery(data)
	case FirmwareVersion:
		return errorReply(cmd, ErrGeneric)
	default:
		return errorReply(cmd, ErrUnknownCommand)
	}
}

func errorReply(origCommand, code byte) (byte, []byte) {
	return Error, []byte{origCommand, code}
}

func (p *Processor) beginSession(data []byte) (byte, []byte) {
	if p.Config.Device == config.DeviceRed {
		if len(data) < 8 || string(data[:8]) != "NINTENDO" {
			return errorReply(BeginSession, ErrArguments)
		}
	} else if string(data) != "NINTENDO" {
		return errorReply(BeginSession, ErrArguments)
	}
	p.doEndSession()
	return BeginSession, []byte("NINTENDO")
}

func (p *Processor) endSession(_ []byte) (byte, []byte) {
	p.doEndSession()
	return EndSession, nil
}

func (p *Processor) doEndSession() {
	p.doISPLogout()
	p.doHangUp()
	p.state = Disconnected
}

func (p *Processor) doHangUp() {
	for i := range p.connections {
		if p.connections[i].open && p.state != Internet {
			p.Board.SockClose(i)
			p.connections[i] = connection{}
		}
	}
	p.closeRelay()
	p.callIsRelay = false
	if p.state == Call || p.state == CallRecv || p.state == CallISP {
		p.state = Disconnected
	}
	p.dialSub = dialIdle
	p.waitSub = waitIdle
}

func (p *Processor) doISPLogout() {
	if p.state != Internet {
		return
	}
	for i := range p.connections {
		if p.connections[i].open {
			p.Board.SockClose(i)
			p.connections[i] = connection{}
		}
	}
	p.openPending = false
	p.dnsPending = false
	p.state = Disconnected
}

func isISPNumber(number string) bool {
	for _, n := range ispNumbers {
		if n == number {
			return true
		}
	}
	return false
}

func (p *Processor) dialTelephone(data []byte) (byte, []byte) {
	if p.dialSub == dialIdle {
		if p.state != Disconnected {
			return errorReply(DialTelephone, ErrGeneric)
		}
		if len(data) < 2 {
			return errorReply(DialTelephone, ErrArguments)
		}
		number := string(data[1:])

		if isISPNumber(number) {
			p.state = CallISP
			return DialTelephone, nil
		}

		if !p.Config.Relay.None() {
			p.relayDialer = relay.DialAsync(p.Config.Relay.String(), 5*time.Second)
			p.dialNumber = number
			p.dialSub = dialConnectingRelayTCP
			p.dialStarted = time.Now()
			return 0, nil
		}

		octets, ok := netaddr.ParsePhoneAddr(number)
		if !ok {
			return errorReply(DialTelephone, ErrArguments)
		}
		conn := p.freeConnection()
		if conn < 0 {
			return errorReply(DialTelephone, ErrGeneric)
		}
		addr := netaddr.IPv4(octets, uint16(p.Config.P2PPort))
		if !p.Board.SockOpen(conn, board.SockTCP, netaddr.TypeIPv4) {
			return errorReply(DialTelephone, ErrCommandFailed)
		}
		p.connections[conn].open = true
		p.connections[conn].addr = addr
		p.Board.SockConnect(conn, addr)
		p.dialConn = conn
		p.dialSub = dialConnectingIP
		p.dialStarted = time.Now()
		return 0, nil
	}

	switch p.dialSub {
	case dialConnectingIP:
		return p.pollDialIP()
	case dialConnectingRelayTCP:
		return p.pollDialRelayConnect()
	default:
		return p.pollDialRelay()
	}
}

func (p *Processor) freeConnection() int {
	for i := range p.connections {
		if !p.connections[i].open {
			return i
		}
	}
	return -1
}

func (p *Processor) pollDialIP() (byte, []byte) {
	r := p.Board.SockConnect(p.dialConn, p.connections[p.dialConn].addr)
	if r == 1 {
		p.state = Call
		p.callConn = p.dialConn
		p.callIsRelay = false
		p.callPacketsSent = 0
		p.dialSub = dialIdle
		return DialTelephone, nil
	}
	if r < 0 || time.Since(p.dialStarted) > 60*time.Second {
		p.Board.SockClose(p.dialConn)
		p.connections[p.dialConn] = connection{}
		p.dialSub = dialIdle
		return errorReply(DialTelephone, ErrCommandFailed)
	}
	return 0, nil
}

func (p *Processor) closeRelay() {
	if p.relayConn != nil {
		p.relayConn.Close()
		p.relayConn = nil
		p.relayClient = nil
	}
	p.relayDialer = nil
}

// sockSend/sockRecv dispatch a call-state TRANSFER_DATA payload to
// whichever transport carried the call: the relay's direct net.Conn, or
// a board.Board connection-table slot.
func (p *Processor) sockSend(conn int, data []byte) int {
	if p.callIsRelay && p.state != Internet {
		p.relayConn.SetWriteDeadline(time.Now().Add(time.Second))
		n, err := p.relayConn.Write(data)
		if err != nil {
			return -1
		}
		return n
	}
	return p.Board.SockSend(conn, data, nil)
}

func (p *Processor) sockRecv(conn int, buf []byte) int {
	if p.callIsRelay && p.state != Internet {
		if len(buf) == 0 {
			return 0
		}
		p.relayConn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		n, err := p.relayConn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return 0
			}
			return -1
		}
		return n
	}
	return p.Board.SockRecv(conn, buf, nil)
}

// pollDialRelayConnect polls the RECV_CONNECT phase of placing a relay
// call: the background TCP dial kicked off in dialTelephone.
func (p *Processor) pollDialRelayConnect() (byte, []byte) {
	conn, done, err := p.relayDialer.Poll()
	if !done {
		if time.Since(p.dialStarted) > 5*time.Second {
			p.relayDialer = nil
			p.dialSub = dialIdle
			return errorReply(DialTelephone, ErrCommandFailed)
		}
		return 0, nil
	}
	p.relayDialer = nil
	if err != nil {
		p.dialSub = dialIdle
		return errorReply(DialTelephone, ErrCommandFailed)
	}
	var tokenPtr *[16]byte
	if tok, ok := p.Config.RelayToken(); ok {
		tokenPtr = &tok
	}
	p.relayConn = conn
	p.relayClient = relay.NewClient(conn, tokenPtr)
	p.dialSub = dialConnectingRelay
	p.dialStarted = time.Now()
	return p.pollDialRelay()
}

// pollDialRelay polls the RECV_HANDSHAKE phase followed by the
// get-number/RECV_CALL phase, resuming whichever is in flight.
func (p *Processor) pollDialRelay() (byte, []byte) {
	if time.Since(p.dialStarted) > 60*time.Second {
		p.closeRelay()
		p.dialSub = dialIdle
		return errorReply(DialTelephone, ErrCommandFailed)
	}

	if p.relayClient.State() == relay.StateDisconnected {
		newToken, done, err := p.relayClient.Handshake()
		if err != nil {
			p.closeRelay()
			p.dialSub = dialIdle
			return errorReply(DialTelephone, ErrCommandFailed)
		}
		if !done {
			return 0, nil
		}
		if newToken != nil {
			p.Config.SetRelayToken(*newToken)
		}
		return 0, nil
	}

	result, done, err := relay.ProcCall(p.relayClient, p.dialNumber)
	if err != nil {
		p.closeRelay()
		p.dialSub = dialIdle
		return errorReply(DialTelephone, ErrCommandFailed)
	}
	if !done {
		return 0, nil
	}
	switch result {
	case relay.ResultAccepted:
		p.state = Call
		p.callIsRelay = true
		p.callPacketsSent = 0
		p.dialSub = dialIdle
		return DialTelephone, nil
	case relay.ResultBusy, relay.ResultUnavailable:
		p.closeRelay()
		p.dialSub = dialIdle
		return errorReply(DialTelephone, ErrGeneric)
	default:
		p.closeRelay()
		p.dialSub = dialIdle
		return errorReply(DialTelephone, ErrCommandFailed)
	}
}

func (p *Processor) hangUpTelephone(_ []byte) (byte, []byte) {
	if p.state != Call && p.state != CallRecv && p.state != CallISP {
		return errorReply(HangUpTelephone, ErrGeneric)
	}
	p.doHangUp()
	return HangUpTelephone, nil
}

func (p *Processor) waitForTelephoneCall(_ []byte) (byte, []byte) {
	if p.waitSub == waitIdle {
		switch p.state {
		case Disconnected:
		case Wait, WaitRelay:
		default:
			return WaitForTelephoneCall, nil
		}
		if !p.Config.Relay.None() {
			p.relayDialer = relay.DialAsync(p.Config.Relay.String(), 5*time.Second)
			p.waitSub = waitConnectingRelayTCP
			p.waitStarted = time.Now()
			p.state = WaitRelay
			return 0, nil
		}
		conn := p.freeConnection()
		if conn < 0 {
			return errorReply(WaitForTelephoneCall, ErrGeneric)
		}
		if !p.Board.SockOpen(conn, board.SockTCP, netaddr.TypeIPv4) || !p.Board.SockListen(conn) {
			return errorReply(WaitForTelephoneCall, ErrCommandFailed)
		}
		p.connections[conn].open = true
		p.waitConn = conn
		p.waitSub = waitListening
		p.state = Wait
		return 0, nil
	}

	if p.waitSub == waitListening {
		r := p.Board.SockAccept(p.waitConn)
		if r == 1 {
			p.state = Call
			p.callConn = p.waitConn
			p.callIsRelay = false
			p.callPacketsSent = 0
			p.waitSub = waitIdle
			return WaitForTelephoneCall, nil
		}
		if r < 0 {
			return errorReply(WaitForTelephoneCall, ErrGeneric)
		}
		return 0, nil
	}

	if p.waitSub == waitConnectingRelayTCP {
		return p.pollWaitRelayConnect()
	}
	return p.pollWaitRelay()
}

// pollWaitRelayConnect polls the RECV_CONNECT phase of registering for an
// incoming relay call.
func (p *Processor) pollWaitRelayConnect() (byte, []byte) {
	conn, done, err := p.relayDialer.Poll()
	if !done {
		if time.Since(p.waitStarted) > 5*time.Second {
			p.relayDialer = nil
			p.waitSub = waitIdle
			p.state = Disconnected
			return errorReply(WaitForTelephoneCall, ErrCommandFailed)
		}
		return 0, nil
	}
	p.relayDialer = nil
	if err != nil {
		p.waitSub = waitIdle
		p.state = Disconnected
		return errorReply(WaitForTelephoneCall, ErrCommandFailed)
	}
	var tokenPtr *[16]byte
	if tok, ok := p.Config.RelayToken(); ok {
		tokenPtr = &tok
	}
	p.relayConn = conn
	p.relayClient = relay.NewClient(conn, tokenPtr)
	p.waitSub = waitRelayPending
	return p.pollWaitRelay()
}

// pollWaitRelay polls the RECV_HANDSHAKE phase followed by the
// get-number/RECV_WAIT phase, resuming whichever is in flight. Unlike
// the relay dial path, waiting for an incoming call has no outer
// deadline once the handshake completes: it polls indefinitely until a
// call arrives or the console hangs up, the same way waitListening polls
// SockAccept forever.
func (p *Processor) pollWaitRelay() (byte, []byte) {
	if p.relayClient.State() == relay.StateDisconnected {
		if time.Since(p.waitStarted) > 5*time.Second {
			p.closeRelay()
			p.waitSub = waitIdle
			p.state = Disconnected
			return errorReply(WaitForTelephoneCall, ErrCommandFailed)
		}
		newToken, done, err := p.relayClient.Handshake()
		if err != nil {
			p.closeRelay()
			p.waitSub = waitIdle
			p.state = Disconnected
			return errorReply(WaitForTelephoneCall, ErrCommandFailed)
		}
		if !done {
			return 0, nil
		}
		if newToken != nil {
			p.Config.SetRelayToken(*newToken)
		}
		return 0, nil
	}

	result, _, done, err := relay.ProcWait(p.relayClient)
	if err != nil {
		return errorReply(WaitForTelephoneCall, ErrNoNewData)
	}
	if !done {
		return 0, nil
	}
	if result == relay.ResultAccepted {
		p.state = Call
		p.callIsRelay = true
		p.callPacketsSent = 0
		p.waitSub = waitIdle
		return WaitForTelephoneCall, nil
	}
	p.closeRelay()
	p.waitSub = waitIdle
	return errorReply(WaitForTelephoneCall, ErrGeneric)
}

func (p *Processor) transferData(data []byte) (byte, []byte) {
	if p.state != Call && p.state != CallRecv && p.state != Internet {
		return errorReply(TransferData, ErrGeneric)
	}
	if len(data) < 1 {
		return errorReply(TransferData, ErrArguments)
	}
	conn := 0
	payload := data[1:]
	if p.state == Internet {
		conn = int(data[0])
		if conn < 0 || conn >= MaxConnections || !p.connections[conn].open {
			return errorReply(TransferData, ErrGeneric)
		}
	} else {
		conn = p.callConn
	}

	if len(payload) > 0 {
		sent := 0
		for sent < len(payload) {
			n := p.sockSend(conn, payload[sent:])
			if n < 0 {
				return errorReply(TransferData, ErrGeneric)
			}
			if n == 0 {
				break
			}
			sent += n
		}
		if sent < len(payload) {
			return 0, nil
		}
		if p.state != Internet {
			p.callPacketsSent++
		}
	}

	recvBuf := make([]byte, MaxTransferSize)
	var n int
	if p.state == Internet || p.callPacketsSent > 0 {
		n = p.sockRecv(conn, recvBuf)
	} else {
		n = p.sockRecv(conn, recvBuf[:0])
	}

	if p.state == Internet && n == -2 {
		p.Board.SockClose(conn)
		p.connections[conn] = connection{}
		return TransferDataEnd, []byte{byte(conn)}
	}
	// -10 is the board's "no data available right now, but the
	// connection is otherwise fine" quirk; the original firmware's
	// answer is to echo the inbound packet back unchanged rather than
	// raise an error.
	if n == -10 {
		return TransferData, data
	}
	if n < 0 {
		return errorReply(TransferData, ErrGeneric)
	}
	if n > 0 && p.state != Internet {
		p.callPacketsSent--
	}

	if p.state == Internet {
		reply := append([]byte{byte(conn)}, recvBuf[:n]...)
		return TransferData, reply
	}
	reply := append([]byte{0}, recvBuf[:n]...)
	return TransferData, reply
}

func (p *Processor) reset(_ []byte) (byte, []byte) {
	p.doEndSession()
	p.mode32Bit = false
	return Reset, nil
}

func (p *Processor) telephoneStatus(_ []byte) (byte, []byte) {
	stateCode := byte(0)
	switch p.state {
	case Call, Internet:
		stateCode = 4
	case CallRecv:
		stateCode = 5
	}
	deviceMagic := byte(0x48)
	if p.Config.Device == config.DeviceBlue {
		deviceMagic = 0x4D
	}
	unmetered := byte(0x00)
	if p.Config.Unmetered {
		unmetered = 0xF0
	}
	return TelephoneStatus, []byte{stateCode, deviceMagic, unmetered}
}

func (p *Processor) sio32Mode(data []byte) (byte, []byte) {
	if len(data) < 1 || (data[0] != 0 && data[0] != 1) {
		return errorReply(SIO32Mode, ErrArguments)
	}
	p.mode32Bit = data[0] == 1
	return SIO32Mode, nil
}

// PendingMode32Bit reports the 32-bit mode SIO32_MODE last requested, so
// the scheduler can detect a change against the framer's active mode and
// drive ActionChange32BitMode.
func (p *Processor) PendingMode32Bit() bool {
	return p.mode32Bit
}

func (p *Processor) readConfigurationData(data []byte) (byte, []byte) {
	if len(data) != 2 {
		return errorReply(ReadConfigurationData, ErrArguments)
	}
	offset := int(data[0])
	size := int(data[1])
	if size > 0x80 || offset+size > 0x100 {
		return errorReply(ReadConfigurationData, ErrArguments)
	}
	buf := make([]byte, size)
	if !p.Board.ConfigRead(buf, offset) {
		return errorReply(ReadConfigurationData, ErrGeneric)
	}
	reply := append([]byte{data[0]}, buf...)
	return ReadConfigurationData, reply
}

func (p *Processor) writeConfigurationData(data []byte) (byte, []byte) {
	if len(data) < 1 {
		return errorReply(WriteConfigurationData, ErrArguments)
	}
	offset := int(data[0])
	size := len(data) - 1
	if size > 0x80 || offset+size > 0x100 {
		return errorReply(WriteConfigurationData, ErrArguments)
	}
	if !p.Board.ConfigWrite(data[1:], offset) {
		return errorReply(WriteConfigurationData, ErrGeneric)
	}
	return WriteConfigurationData, []byte{data[0], byte(size)}
}

func (p *Processor) ispLogin(data []byte) (byte, []byte) {
	if p.state != CallISP {
		return errorReply(ISPLogin, ErrArguments)
	}
	pos := 0
	if pos >= len(data) {
		return errorReply(ISPLogin, ErrArguments)
	}
	idLen := int(data[pos])
	pos++
	if pos+idLen > len(data) {
		return errorReply(ISPLogin, ErrArguments)
	}
	pos += idLen
	if pos >= len(data) {
		return errorReply(ISPLogin, ErrArguments)
	}
	passLen := int(data[pos])
	pos++
	if pos+passLen+8 > len(data) {
		return errorReply(ISPLogin, ErrArguments)
	}
	pos += passLen
	var dns1, dns2 [4]byte
	copy(dns1[:], data[pos:pos+4])
	copy(dns2[:], data[pos+4:pos+8])

	chosenDNS1 := p.Config.DNS1
	chosenDNS2 := p.Config.DNS2
	if dns1 != ([4]byte{}) {
		chosenDNS1 = netaddr.IPv4(dns1, 53)
	}
	if dns2 != ([4]byte{}) {
		chosenDNS2 = netaddr.IPv4(dns2, 53)
	}
	p.dns1 = chosenDNS1
	p.dns2 = chosenDNS2
	p.relayDNS2 = false
	p.state = Internet

	reply := []byte{127, 0, 0, 1}
	reply = append(reply, chosenDNS1.Host[:4]...)
	reply = append(reply, chosenDNS2.Host[:4]...)
	return ISPLogin, reply
}

func (p *Processor) ispLogout(_ []byte) (byte, []byte) {
	if p.state != Internet {
		return errorReply(ISPLogout, ErrArguments)
	}
	p.doISPLogout()
	return ISPLogout, nil
}

// openTCPConnection is resumable exactly like dialTelephone/pollDialIP:
// the first call opens the socket and kicks off a non-blocking connect,
// every subsequent call (while openPending) polls it, returning (0, nil)
// so the serial framer invokes the processor again until the connect
// resolves one way or the other.
func (p *Processor) openTCPConnection(data []byte) (byte, []byte) {
	if p.state != Internet {
		return errorReply(OpenTCPConnection, ErrArguments)
	}
	if !p.openPending {
		if len(data) < 6 {
			return errorReply(OpenTCPConnection, ErrArguments)
		}
		conn := p.freeConnection()
		if conn < 0 {
			return errorReply(OpenTCPConnection, ErrGeneric)
		}
		var octets [4]byte
		copy(octets[:], data[0:4])
		port := uint16(data[4])<<8 | uint16(data[5])
		addr := netaddr.IPv4(octets, port)
		if !p.Board.SockOpen(conn, board.SockTCP, netaddr.TypeIPv4) {
			return errorReply(OpenTCPConnection, ErrCommandFailed)
		}
		p.connections[conn].open = true
		p.connections[conn].addr = addr
		p.Board.SockConnect(conn, addr)
		p.openConn = conn
		p.openPending = true
		p.openStarted = time.Now()
		return 0, nil
	}

	r := p.Board.SockConnect(p.openConn, p.connections[p.openConn].addr)
	if r == 1 {
		conn := p.openConn
		p.openPending = false
		return OpenTCPConnection, []byte{byte(conn)}
	}
	if r < 0 || time.Since(p.openStarted) > 60*time.Second {
		p.Board.SockClose(p.openConn)
		p.connections[p.openConn] = connection{}
		p.openPending = false
		return errorReply(OpenTCPConnection, ErrCommandFailed)
	}
	return 0, nil
}

func (p *Processor) closeTCPConnection(data []byte) (byte, []byte) {
	if p.state != Internet {
		return errorReply(CloseTCPConnection, ErrArguments)
	}
	if len(data) != 1 {
		return errorReply(CloseTCPConnection, ErrGeneric)
	}
	conn := int(data[0])
	if conn < 0 || conn >= MaxConnections || !p.connections[conn].open {
		return errorReply(CloseTCPConnection, ErrGeneric)
	}
	p.Board.SockClose(conn)
	p.connections[conn] = connection{}
	return CloseTCPConnection, []byte{data[0]}
}

// dnsQuery resolves an inline dotted-quad immediately, but a real round
// trip is resumable: the first call opens the UDP socket and sends the
// query, then returns (0, nil); every subsequent call while dnsPending
// polls SockRecv once and returns, so a slow resolver cannot stall the
// serial byte-transfer path the way an inline poll loop would.
func (p *Processor) dnsQuery(data []byte) (byte, []byte) {
	if !p.dnsPending {
		if len(data) < 1 {
			return errorReply(DNSQuery, ErrArguments)
		}
		host := string(data[1:])

		if ip, ok := presentation.ParseIPv4(host); ok {
			if ip == ([4]byte{}) {
				return errorReply(DNSQuery, ErrArguments)
			}
			return DNSQuery, ip[:]
		}

		addr := p.dns1
		if p.relayDNS2 {
			addr = p.dns2
		}
		if addr.None() {
			return errorReply(DNSQuery, ErrArguments)
		}

		conn := p.freeConnection()
		if conn < 0 {
			return errorReply(DNSQuery, ErrGeneric)
		}
		if !p.Board.SockOpen(conn, board.SockUDP, netaddr.TypeIPv4) {
			return errorReply(DNSQuery, ErrCommandFailed)
		}
		p.dnsID++
		query, err := dnscodec.MakeQuery(p.dnsID, dnscodec.QTypeA, host)
		if err != nil {
			p.Board.SockClose(conn)
			return errorReply(DNSQuery, ErrArguments)
		}
		p.Board.SockSend(conn, query, &addr)

		p.dnsConn = conn
		p.dnsHost = host
		p.dnsStarted = time.Now()
		p.dnsPending = true
		return 0, nil
	}

	buf := make([]byte, dnscodec.PacketSize)
	n := p.Board.SockRecv(p.dnsConn, buf, nil)
	if n > 0 {
		p.dnsPending = false
		ancount, offset, err := dnscodec.VerifyResponse(buf[:n], p.dnsID, dnscodec.QTypeA, p.dnsHost)
		if err == nil {
			for i := 0; i < ancount; i++ {
				rdataOff, next, err := dnscodec.GetAnswer(buf[:n], offset, dnscodec.QTypeA, p.dnsHost)
				if err != nil {
					offset = next
					continue
				}
				p.Board.SockClose(p.dnsConn)
				return DNSQuery, append([]byte(nil), buf[rdataOff:rdataOff+4]...)
			}
		}
		p.Board.SockClose(p.dnsConn)
		return errorReply(DNSQuery, ErrArguments)
	}
	if n < 0 || time.Since(p.dnsStarted) > 10*time.Second {
		p.Board.SockClose(p.dnsConn)
		p.dnsPending = false
		return errorReply(DNSQuery, ErrArguments)
	}
	return 0, nil
}
