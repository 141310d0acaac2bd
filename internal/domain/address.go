package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the size in bytes of an account identity.
const AddressLength = 20

// ZeroAddress is the all-zero identity. It never owns, receives or donates.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// Address identifies an account: "0x" followed by 40 lowercase hex digits.
type Address string

// ParseAddress normalises s and checks it is a well-formed address.
// The zero address parses successfully; use RequireAddress to reject it.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != AddressLength*2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address("0x" + strings.ToLower(raw)), nil
}

// RequireAddress parses s and rejects the zero address.
func RequireAddress(s string) (Address, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}
	if addr.IsZero() {
		return "", fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	return addr, nil
}

// Validate reports whether a is a canonical, non-zero address.
func (a Address) Validate() error {
	parsed, err := RequireAddress(string(a))
	if err != nil {
		return err
	}
	if parsed != a {
		return fmt.Errorf("%w: %q is not canonical", ErrInvalidAddress, string(a))
	}
	return nil
}

// IsZero reports whether a is empty or the zero address.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}

// RandomAddress returns a fresh random address.
func RandomAddress() Address {
	var b [AddressLength]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("domain: read random address: %v", err))
	}
	return Address("0x" + hex.EncodeToString(b[:]))
}
