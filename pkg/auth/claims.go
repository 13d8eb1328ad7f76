package auth

import (
	"fmt"
	"slices"

	"github.com/angelmondragon/garage-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Username string
	Role     enums.UserRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients. The jti doubles as the
// redis session id.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	Username string         `json:"username,omitempty"`
	Role     enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// check enforces the claims every garage token carries. It runs even when time based
// validation is skipped for refresh.
func (c *AccessTokenClaims) check(issuer string) error {
	switch {
	case c.UserID == uuid.Nil:
		return fmt.Errorf("token has no user id")
	case c.Subject != c.UserID.String():
		return fmt.Errorf("token subject does not match user id")
	case !c.Role.IsValid():
		return fmt.Errorf("token has invalid role %q", c.Role)
	case c.ID == "":
		return fmt.Errorf("token has no session id")
	case c.Issuer != issuer:
		return fmt.Errorf("token issuer %q not accepted", c.Issuer)
	case !slices.Contains(c.Audience, accessAudience):
		return fmt.Errorf("token audience not accepted")
	}
	return nil
}
