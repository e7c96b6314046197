package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

const (
	displayDigitsMin = 1000
	displayDigitsMax = 9999
)

// GenerateDisplayDigits returns a uniformly random 4-digit label in [1000, 9999].
// Labels are for display only and may collide.
func GenerateDisplayDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(displayDigitsMax-displayDigitsMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return strconv.FormatInt(n.Int64()+displayDigitsMin, 10), nil
}
