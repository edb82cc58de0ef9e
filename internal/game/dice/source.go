package dice

import (
	"crypto/rand"
	"math/big"
)

// cryptoSource draws from crypto/rand; it holds no state and needs no locking.
type cryptoSource struct{}

// NewCryptoSource returns the production Source used for encounter draws.
//
// Postcondition: Every value returned by Intn is uniform in [0, n).
func NewCryptoSource() Source {
	return cryptoSource{}
}

// Intn returns a uniform random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0,
// or with "dice: crypto/rand failure: <err>" if the system RNG fails.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}
