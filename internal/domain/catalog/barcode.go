package catalog

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const barcodeDigits = 12

var barcodePattern = regexp.MustCompile(`^BAR-[0-9]{12}$`)

var barcodeSpace = new(big.Int).Exp(big.NewInt(10), big.NewInt(barcodeDigits), nil)

// NewBarcode returns a random barcode in the form BAR-<12 digits>
func NewBarcode() (string, error) {
	n, err := rand.Int(rand.Reader, barcodeSpace)
	if err != nil {
		return "", fmt.Errorf("generate barcode: %w", err)
	}
	return fmt.Sprintf("BAR-%012d", n.Int64()), nil
}

// IsBarcode reports whether s is a well-formed barcode
func IsBarcode(s string) bool {
	return barcodePattern.MatchString(s)
}
