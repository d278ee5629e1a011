package auth

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	KioskID string `json:"kiosk_id"`
	Role    string `json:"role"` // "kiosk"
	jwt.RegisteredClaims
}

// JWTSecret signs kiosk tokens. Loaded from JWT_SECRET at startup; the
// default only exists so development mode works without configuration.
var JWTSecret = []byte("vofas-development-secret")

func init() {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		JWTSecret = []byte(secret)
	}
}

// GenerateKioskToken generates a JWT token for kiosk authentication
func GenerateKioskToken(kioskID string) (string, error) {
	claims := &JWTClaims{
		KioskID: kioskID,
		Role:    "kiosk",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return JWTSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
