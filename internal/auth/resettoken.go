package auth

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ResetTokenLength gives ~258 bits of entropy with the 64-symbol NanoID
// alphabet. Tokens are URL-safe and can go straight into a query string.
const ResetTokenLength = 43

// NewResetToken returns a fresh single-use password reset token.
// It only fails if the system entropy source fails.
func NewResetToken() (string, error) {
	token, err := gonanoid.New(ResetTokenLength)
	if err != nil {
		return "", fmt.Errorf("auth: generating reset token: %w", err)
	}
	return token, nil
}
