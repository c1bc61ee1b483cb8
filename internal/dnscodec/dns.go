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
// Package dnscodec implements the small subset of RFC1035 the adapter
// needs: encoding an A-record query and validating/decoding the matching
// response, including message-compression-aware name comparison. It
// deliberately does not use a general-purpose DNS library: the original
// adapter firmware's accept/reject rules (exact flag mask, question-
// section echo check, answer validation) are narrower than what a
// general resolver validates, and callers depend on that narrowness.
package dnscodec

import "fmt"

const (
	headerSize = 12
	qdSize     = 4
	rrSize     = 10

	// PacketSize bounds outgoing queries and incoming responses, mirroring
	// MOBILE_DNS_PACKET_SIZE.
	PacketSize = 256
)

// QType is the DNS query type the adapter can ask for.
type QType uint16

const (
	QTypeA    QType = 1
	QTypeAAAA QType = 28
)

var ErrNameTooLong = fmt.Errorf("dnscodec: name too long for packet")

// MakeQuery encodes a standard, recursion-desired query with one
// question for name/qtype, returning the wire bytes.
func MakeQuery(id uint16, qtype QType, name string) ([]byte, error) {
	buf := make([]byte, headerSize, PacketSize)
	buf[0] = byte(id >> 8)
	buf[1] = byte(id)
	copy(buf[2:12], []byte{0x01, 0x00, 0, 1, 0, 0, 0, 0, 0, 0})

	var err error
	buf, err = appendName(buf, name)
	if err != nil {
		return nil, err
	}
	if len(buf)+qdSize > PacketSize {
		return nil, ErrNameTooLong
	}
	buf = append(buf, byte(qtype>>8), byte(qtype), 0, 1)
	return buf, nil
}

func appendName(buf []byte, name string) ([]byte, error) {
	start := len(buf)
	buf = append(buf, 0) // placeholder length byte for the first label
	lenPos := start
	count := 0
	for i := 0; i < len(name); i++ {
		if len(buf)+1 > PacketSize {
			return nil, ErrNameTooLong
		}
		c := name[i]
		if c == '.' {
			buf[lenPos] = byte(count)
			count = 0
			lenPos = len(buf)
			buf = append(buf, 0)
		} else {
			if count >= 63 {
				return nil, ErrNameTooLong
			}
			count++
			buf = append(buf, c)
		}
	}
	if len(buf)+1 > PacketSize {
		return nil, ErrNameTooLong
	}
	buf[lenPos] = byte(count)
	buf = append(buf, 0)
	return buf, nil
}

// nameCompare walks a possibly-compressed name starting at offset inside
// data and compares it, label by label, against name. It returns the
// offset just past the (possibly-pointer-terminated) name on success.
func nameCompare(data []byte, offset int, name string) (next int, ok bool) {
	if offset+1 > len(data) {
		return 0, false
	}
	if len(name) == 0 {
		return 0, false
	}

	pname := 0
	pcmp := offset
	end := -1

	for {
		if pcmp >= len(data) {
			return 0, false
		}
		b := data[pcmp]
		if b == 0 {
			break
		} else if b&0xC0 == 0xC0 {
			if pcmp+2 > len(data) {
				return 0, false
			}
			if end < 0 {
				end = pcmp + 1
			}
			off := int(b&0x3F)<<8 | int(data[pcmp+1])
			if off+1 > len(data) {
				return 0, false
			}
			pcmp = off
		} else if b&0xC0 == 0x00 {
			l := int(b)
			pcmp++
			if pcmp+l+1 > len(data) {
				return 0, false
			}
			if pname != 0 {
				if pname >= len(name) || name[pname] != '.' {
					return 0, false
				}
				pname++
			}
			if pname+l > len(name) {
				return 0, false
			}
			for j := 0; j < l; j++ {
				if data[pcmp] != name[pname] {
					return 0, false
				}
				pcmp++
				pname++
			}
		} else {
			return 0, false
		}
	}
	if pname != len(name) {
		return 0, false
	}
	if end < 0 {
		end = pcmp
	}
	return end + 1, true
}

// nameLen computes the on-wire length of a name (possibly a compression
// pointer) starting at offset, without validating its contents.
func nameLen(data []byte, offset int) (int, bool) {
	if offset+1 > len(data) {
		return 0, false
	}
	pos := offset
	for {
		if pos >= len(data) {
			return 0, false
		}
		b := data[pos]
		if b == 0 {
			break
		} else if b&0xC0 == 0xC0 {
			if pos+2 > len(data) {
				return 0, false
			}
			return pos + 2 - offset, true
		} else if b&0xC0 == 0x00 {
			l := int(b)
			pos++
			if pos+l+1 > len(data) {
				return 0, false
			}
			pos += l
		} else {
			return 0, false
		}
	}
	return pos + 1 - offset, true
}

// VerifyResponse validates the header, id, flags and the single question
// section of a response against the id/qtype/name the query was sent
// with. It returns the answer count and the offset of the first answer
// record on success, or an error describing the rejection.
func VerifyResponse(data []byte, id uint16, qtype QType, name string) (ancount, offset int, err error) {
	if len(data) < headerSize {
		return 0, 0, fmt.Errorf("dnscodec: short header")
	}
	if uint16(data[0])<<8|uint16(data[1]) != id {
		return 0, 0, fmt.Errorf("dnscodec: id mismatch")
	}
	flags := int(data[2])<<8 | int(data[3])
	if flags&0xFB0F != 0x8100 {
		return 0, 0, fmt.Errorf("dnscodec: response error code %d", flags&0xF)
	}
	qdcount := int(data[4])<<8 | int(data[5])
	an := int(data[6])<<8 | int(data[7])
	if qdcount != 1 {
		return 0, 0, fmt.Errorf("dnscodec: unexpected question count %d", qdcount)
	}
	if an < 1 {
		return 0, 0, fmt.Errorf("dnscodec: no answers")
	}

	off := headerSize
	next, ok := nameCompare(data, off, name)
	if !ok {
		return 0, 0, fmt.Errorf("dnscodec: question name mismatch")
	}
	off = next
	if off+qdSize > len(data) {
		return 0, 0, fmt.Errorf("dnscodec: truncated question section")
	}
	qtypeGot := QType(int(data[off])<<8 | int(data[off+1]))
	qclassGot := int(data[off+2])<<8 | int(data[off+3])
	if qtypeGot != qtype || qclassGot != 1 {
		return 0, 0, fmt.Errorf("dnscodec: question type/class mismatch")
	}
	off += qdSize
	return an, off, nil
}

// GetAnswer validates and extracts one resource-record answer starting
// at offset, returning the offset of its rdata and the offset just past
// the whole record.
func GetAnswer(data []byte, offset int, qtype QType, name string) (rdataOff, next int, err error) {
	rnameLen, ok := nameLen(data, offset)
	if !ok {
		return 0, 0, fmt.Errorf("dnscodec: bad answer name")
	}
	if offset+rnameLen+rrSize > len(data) {
		return 0, 0, fmt.Errorf("dnscodec: truncated answer header")
	}
	info := data[offset+rnameLen:]
	rdlength := int(info[8])<<8 | int(info[9])
	rdata := offset + rnameLen + rrSize
	if rdata+rdlength > len(data) {
		return 0, 0, fmt.Errorf("dnscodec: truncated rdata")
	}

	// skip is the offset of the following record, already known once
	// rdlength has been read. A record that fails one of the checks
	// below (wrong name/type/class, or a bogus rdlength) still has a
	// well-defined length, so mismatches return skip as next rather
	// than 0 — the caller advances past it and keeps scanning the
	// remaining answers instead of being sent back to the start.
	skip := offset + rnameLen + rrSize + rdlength

	if _, ok := nameCompare(data, offset, name); !ok {
		return 0, skip, fmt.Errorf("dnscodec: answer name mismatch")
	}
	gotType := QType(int(info[0])<<8 | int(info[1]))
	gotClass := int(info[2])<<8 | int(info[3])
	if gotType != qtype || gotClass != 1 {
		return 0, skip, fmt.Errorf("dnscodec: answer type/class mismatch")
	}
	if qtype == QTypeA && rdlength != 4 {
		return 0, skip, fmt.Errorf("dnscodec: bad A rdlength %d", rdlength)
	}
	if qtype == QTypeAAAA && rdlength != 16 {
		return 0, skip, fmt.Errorf("dnscodec: bad AAAA rdlength %d", rdlength)
	}
	return rdata, skip, nil
}
