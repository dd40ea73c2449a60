package utils

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"poolguard/internal/models"
)

// GenerateToken issues a signed access token for a moderator session.
// The signing key comes from the JWT_SECRET environment variable.
func GenerateToken(claims *models.ModeratorClaims) (string, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return "", errors.New("JWT_SECRET not configured")
	}

	now := time.Now()
	full := models.ModeratorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "poolguard-api",
			Subject:   strconv.FormatUint(uint64(claims.ModeratorID), 10),
		},
		ModeratorID:  claims.ModeratorID,
		Email:        claims.Email,
		Role:         claims.Role,
		TokenVersion: claims.TokenVersion,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, full)
	return token.SignedString([]byte(jwtSecret))
}

// ParseToken parses and validates a moderator token string.
func ParseToken(tokenStr string) (*models.ModeratorClaims, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET not configured")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.ModeratorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.ModeratorClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
