package utils

import (
	"errors"
	"net"
	"strings"
)

var ErrInvalidMAC = errors.New("invalid MAC address")

// NormalizeMAC canonicalizes an EUI-48 address to lowercase colon form.
// Accepts "AA:BB:CC:DD:EE:FF", "aa-bb-cc-dd-ee-ff", "aabb.ccdd.eeff" and "AABBCCDDEEFF".
func NormalizeMAC(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", ErrInvalidMAC
	}

	if len(s) == 12 && isHex(s) {
		var b strings.Builder
		for i := 0; i < 12; i += 2 {
			if i > 0 {
				b.WriteByte(':')
			}
			b.WriteString(s[i : i+2])
		}
		s = b.String()
	}

	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return "", ErrInvalidMAC
	}
	return hw.String(), nil
}

// IsValidMAC reports whether NormalizeMAC accepts the input.
func IsValidMAC(raw string) bool {
	_, err := NormalizeMAC(raw)
	return err == nil
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
