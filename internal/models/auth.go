package models

import "time"

// Credentials holds the form payload for login and registration.
type Credentials struct {
	Username string `form:"username" validate:"required,min=1,max=64"`
	Password string `form:"password" validate:"required,min=1,max=128"`
}

// IssuedToken is the result of a successful login.
type IssuedToken struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SubscribeRequest registers a relying-party webhook endpoint with the
// identity provider.
type SubscribeRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ChangePasswordRequest is the relying-party payload for updating a local
// profile password.
type ChangePasswordRequest struct {
	NewPassword string `form:"new_password" validate:"required,min=1,max=128"`
}

// Profile is the incidental per-user data a relying party keeps locally.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
