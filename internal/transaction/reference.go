package transaction

import (
	"crypto/rand"
	"fmt"
	"time"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReference produces a human-readable transaction reference of the
// form TXN_<unixMillis>_<6 uppercase alphanumerics>. The random suffix comes
// from crypto/rand, making collisions within one millisecond vanishingly rare.
// Callers may supply their own reference instead.
func GenerateReference() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("TXN_%d_%s", time.Now().UnixMilli(), buf)
}
