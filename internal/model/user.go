package model

// User is the profile returned by GET /api/auth/me.
// Timestamps are kept verbatim; the server emits naive datetimes.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Credentials are the email/password pair submitted on login and register.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the body returned by POST /api/auth/login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
