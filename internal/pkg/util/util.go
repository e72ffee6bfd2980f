package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateTimestampWithPrefix builds a human readable unique id of the
// form PREFIX-<unix-nano>.
func GenerateTimestampWithPrefix(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

const shortCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateShortCode returns a random human readable code of the given
// length, without lookalike characters.
func GenerateShortCode(length int) string {
	code := make([]byte, length)
	max := big.NewInt(int64(len(shortCodeAlphabet)))

	for i := range code {
		n, _ := rand.Int(rand.Reader, max)
		code[i] = shortCodeAlphabet[n.Int64()]
	}

	return string(code)
}
