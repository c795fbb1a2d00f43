// ABOUTME: JWT verification for bearer tokens carried in inbound event metadata.
// ABOUTME: HS256 with a shared secret; tokens bind a user and optionally a channel allowlist.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrMissingClaim  = errors.New("missing required claim")
	ErrChannelDenied = errors.New("token not valid for channel")
)

// Claims are the verified facts a token carries about the sender.
type Claims struct {
	// UserID is the authenticated sender, from the "sub" claim.
	UserID string

	// Channels restricts which channel IDs the token may post through.
	// Empty means any channel.
	Channels []string
}

// AllowsChannel reports whether the token may post through channelID.
func (c *Claims) AllowsChannel(channelID string) bool {
	if len(c.Channels) == 0 {
		return true
	}
	for _, ch := range c.Channels {
		if ch == channelID {
			return true
		}
	}
	return false
}

// Verifier validates sender tokens attached to inbound events.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier with the given HS256 secret.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Verifier{secret: secret}, nil
}

// Verify validates tokenString and extracts its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	claims := &Claims{UserID: sub}
	if raw, ok := mapClaims["channels"].([]interface{}); ok {
		for _, entry := range raw {
			if ch, ok := entry.(string); ok && ch != "" {
				claims.Channels = append(claims.Channels, ch)
			}
		}
	}
	return claims, nil
}

// Generate creates a token for userID valid for expiresIn, optionally
// restricted to the given channels. Used by provisioning tooling and tests.
func (v *Verifier) Generate(userID string, expiresIn time.Duration, channels ...string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}
	if len(channels) > 0 {
		claims["channels"] = channels
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
