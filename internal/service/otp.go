package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// generateOTP returns a 4-digit numeric passcode. It is generated once at
// request creation and never regenerated.
func generateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// crypto/rand failing means the platform RNG is broken; there is
		// no meaningful fallback for a security code.
		panic(fmt.Sprintf("otp generation: %v", err))
	}
	return fmt.Sprintf("%04d", n.Int64())
}
