package utils

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret = []byte(os.Getenv("TOKEN_SECRET"))

// RoomTokenClaims are the claims carried by a room access token.
type RoomTokenClaims struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenAuthEnabled reports whether a signing secret is configured. Without
// one, the WebSocket endpoint stays open.
func TokenAuthEnabled() bool { return len(jwtSecret) > 0 }

// ValidateRoomToken parses and verifies a room access token.
func ValidateRoomToken(tokenStr string) (*RoomTokenClaims, error) {
	claims := &RoomTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
