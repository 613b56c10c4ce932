package models

// User is the public profile of an account
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse is returned by a successful login
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
	User        User   `json:"user"`
}
