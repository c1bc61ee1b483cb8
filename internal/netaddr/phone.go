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
package netaddr

// ParsePhoneAddr parses the 12-digit dialed "IP over phone number"
// encoding used by DIAL_TELEPHONE when the dialed string isn't one of the
// known ISP magic numbers: four groups of three decimal digits, each
//0-255, mirroring mobile_parse_phoneaddr.
func ParsePhoneAddr(digits string) (octets [4]byte, ok bool) {
	if len(digits) != 12 {
		return octets, false
	}
	for g := 0; g < 4; g++ {
		v := 0
		for i := 0; i < 3; i++ {
			c := digits[g*3+i]
			if c < '0' || c > '9' {
				return octets, false
			}
			v = v*10 + int(c-'0')
		}
		if v > 255 {
			return octets, false
		}
		octets[g] = byte(v)
	}
	return octets, true
}

// IsIPAddr mirrors mobile_is_ipaddr: a colon anywhere means IPv6; an
// all-digits-and-dots string is treated as IPv4-or-DNS-ambiguous (the
// caller still needs to try parsing it as a literal before falling back
// to a DNS query); anything else is a DNS name.
func IsIPAddr(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return true
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return len(s) > 0
}
