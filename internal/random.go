package internal

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const (
	otpMin        = 100000
	otpSpan       = 900000 // codes fall in [100000, 999999]
	linkTokenSize = 32
)

var otpSpanBig = big.NewInt(otpSpan)

// NewOTPCode returns a uniformly random six-digit code. The range excludes
// leading zeros so the code survives integer round-trips in clients.
func NewOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpanBig)
	if err != nil {
		return "", err
	}

	code := n.Int64() + otpMin

	digits := make([]byte, 0, 6)
	for div := int64(100000); div >= 1; div /= 10 {
		digits = append(digits, byte('0'+(code/div)%10))
	}
	return string(digits), nil
}

// NewLinkToken returns a 256-bit random token encoded as 64 hex characters.
func NewLinkToken() (string, error) {
	raw := make([]byte, linkTokenSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
