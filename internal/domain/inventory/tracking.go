package inventory

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	trackingPattern = regexp.MustCompile(`^TRK-[A-Z0-9]{8}$`)
	trackingRadix   = big.NewInt(int64(len(trackingAlphabet)))
)

// NewTrackingNumber returns a random tracking number TRK-<8 uppercase alnum>
func NewTrackingNumber() (string, error) {
	var sb strings.Builder
	sb.WriteString("TRK-")
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, trackingRadix)
		if err != nil {
			return "", fmt.Errorf("generate tracking number: %w", err)
		}
		sb.WriteByte(trackingAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// IsTrackingNumber reports whether s is a well-formed tracking number
func IsTrackingNumber(s string) bool {
	return trackingPattern.MatchString(s)
}
