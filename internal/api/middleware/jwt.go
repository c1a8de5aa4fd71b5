package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are issued by the auth service. Subject carries the user id.
type Claims struct {
	SessionID     string  `json:"sid,omitempty"`
	Name          string  `json:"name,omitempty"`
	Email         *string `json:"email,omitempty"`
	WalletAddress *string `json:"wallet,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HMAC-signed access tokens.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Parse validates the signature and expiry and returns the claims.
func (v *JWTVerifier) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// UserID lets the WebSocket handler authenticate with the same tokens.
func (v *JWTVerifier) UserID(_ context.Context, tokenString string) (string, error) {
	claims, err := v.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
