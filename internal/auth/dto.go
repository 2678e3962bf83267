package auth

import (
	"github.com/freightdesk/freightdesk-backend/internal/users"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest trades a (possibly expired) access token plus its refresh token for a new pair.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RegisterRequest is an admin creating a login for staff, a client or an agent.
type RegisterRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8"`
	Name     string         `json:"name" validate:"required"`
	Phone    *string        `json:"phone,omitempty" validate:"omitempty,in_phone"`
	Role     enums.UserRole `json:"role" validate:"required,oneof=admin client agent"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}
