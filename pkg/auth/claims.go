package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	IsAdmin        bool
	JTI            string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	IsAdmin        bool      `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the resolved actor record the rest of the platform authorizes
// against. Authentication never happens past this boundary.
type Identity struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	IsAdmin        bool
}

// Identity converts validated claims into the actor record.
func (c *AccessTokenClaims) Identity() Identity {
	return Identity{
		UserID:         c.UserID,
		OrganizationID: c.OrganizationID,
		IsAdmin:        c.IsAdmin,
	}
}
