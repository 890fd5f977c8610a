package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the display fields of an identity token.
type Claims struct {
	Email     string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ParseClaims decodes the token payload without verifying its signature.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse claims: %w", err)
	}

	var c Claims
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	if uid, ok := mc["user_id"].(string); ok {
		c.UserID = uid
	} else if sub, err := mc.GetSubject(); err == nil {
		c.UserID = sub
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
