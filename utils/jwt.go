package utils

import (
	"os"
	"time"

	"github.com/edumate-ai/tutor-be/types"

	"github.com/golang-jwt/jwt/v5"
)

type AdminClaims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func GenerateAdminToken(user *types.User) (string, error) {
	// Get secret from environment variable
	secret := os.Getenv("JWT_SECRET_ADMIN")
	if secret == "" {
		secret = "default_admin_secret" // Fallback secret, should be changed in production
	}
	claims := AdminClaims{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)), // Token expires in 24 hours
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Subject:   user.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func ParseAdminToken(tokenString string) (*AdminClaims, error) {
	// Get secret from environment variable
	secret := os.Getenv("JWT_SECRET_ADMIN")
	if secret == "" {
		secret = "default_admin_secret"
	}
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrInvalidKey
	}
	return claims, nil
}

func GetIdWithoutCheck(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, _, err := new(jwt.Parser).ParseUnverified(tokenString, &claims)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
