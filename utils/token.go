package utils

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt"
)

// JwtSecret returns the signing key for access tokens. The fallback
// matches the development default; set JWT_SECRET in any real
// deployment.
func JwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "your-secret-key-change-in-production"
	}
	return []byte(secret)
}

// GenerateAccessToken creates a new JWT access token
func GenerateAccessToken(userID uint) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(), // Access token valid for 24 hours
	})

	return token.SignedString(JwtSecret())
}
