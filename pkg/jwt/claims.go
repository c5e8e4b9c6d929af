package jwt

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the bearer token claims. Subject carries the user ID.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// UserID parses the subject as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return id, nil
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleJudge   Role = "judge"
	RoleCreator Role = "creator"
	RoleVoter   Role = "voter"
)

// ParseRole returns the Role named by s.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleJudge, RoleCreator, RoleVoter:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}
