// Package transcode holds a hand-rolled base64 decoder. Media captured on
// device reaches the API as base64 text (that is what the mobile file-system
// API produces for binary reads), while the storage transport wants raw
// bytes, so every upload passes through here.
package transcode

import (
	"errors"
	"fmt"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var ErrLength = errors.New("base64 payload length must be a multiple of 4")

const invalid = 0xFF

var decodeMap [256]byte

func init() {
	for i := range decodeMap {
		decodeMap[i] = invalid
	}
	for i := 0; i < len(alphabet); i++ {
		decodeMap[alphabet[i]] = byte(i)
	}
}

// Decode converts standard-alphabet base64 text with '=' padding into raw
// bytes. Input is processed four characters at a time: four 6-bit values are
// packed into a 24-bit group emitting three bytes, minus one byte per padding
// character on the final quartet. Malformed input is rejected rather than
// silently producing garbage.
func Decode(s string) ([]byte, error) {
	if len(s)%4 != 0 {
		return nil, ErrLength
	}
	out := make([]byte, 0, len(s)/4*3)
	for i := 0; i < len(s); i += 4 {
		last := i+4 == len(s)
		pad := 0
		var q [4]byte
		for j := 0; j < 4; j++ {
			c := s[i+j]
			if c == '=' {
				if !last || j < 2 {
					return nil, fmt.Errorf("unexpected base64 padding at offset %d", i+j)
				}
				pad++
				continue
			}
			if pad > 0 {
				return nil, fmt.Errorf("base64 data after padding at offset %d", i+j)
			}
			v := decodeMap[c]
			if v == invalid {
				return nil, fmt.Errorf("invalid base64 byte %q at offset %d", c, i+j)
			}
			q[j] = v
		}
		group := uint32(q[0])<<18 | uint32(q[1])<<12 | uint32(q[2])<<6 | uint32(q[3])
		out = append(out, byte(group>>16))
		if pad < 2 {
			out = append(out, byte(group>>8))
		}
		if pad < 1 {
			out = append(out, byte(group))
		}
	}
	return out, nil
}
