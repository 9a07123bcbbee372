package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/application/identity"
)

// RegisterRequest represents the registration request body
// @name HandlerRegisterRequest
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=150" example:"jdoe"`
	Email     string `json:"email" binding:"required,email" example:"jdoe@example.com"`
	Password  string `json:"password" binding:"required,min=6" example:"hunter22"`
	FirstName string `json:"first_name" binding:"max=150" example:"Jane"`
	LastName  string `json:"last_name" binding:"max=150" example:"Doe"`
}

// LoginRequest represents the login request body
// @name HandlerLoginRequest
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"jdoe"`
	Password string `json:"password" binding:"required" example:"hunter22"`
}

// RefreshTokenRequest represents the token refresh request body
// @name HandlerRefreshTokenRequest
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest represents the password change request body
// @name HandlerChangePasswordRequest
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// TokenResponse represents an issued token pair
// @name HandlerTokenResponse
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type" example:"Bearer"`
}

// AuthUserResponse represents the authenticated user in responses
// @name HandlerAuthUserResponse
type AuthUserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsStaff   bool      `json:"is_staff"`
}

// LoginResponse represents the login response body
// @name HandlerLoginResponse
type LoginResponse struct {
	Token TokenResponse    `json:"token"`
	User  AuthUserResponse `json:"user"`
}

// RefreshTokenResponse represents the token refresh response body
// @name HandlerRefreshTokenResponse
type RefreshTokenResponse struct {
	Token TokenResponse `json:"token"`
}

// toAuthUserResponse converts application-layer user info to the API shape
func toAuthUserResponse(u identity.UserInfo) AuthUserResponse {
	return AuthUserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsStaff:   u.IsStaff,
	}
}
