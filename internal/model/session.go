package model

type UserMetadata struct {
	Role           Role   `json:"role"`
	FullName       string `json:"full_name"`
	Identification string `json:"identification"`
}

// SessionUser is the authenticated identity returned by the auth endpoints.
type SessionUser struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// ActiveUser derives the session-scoped user from the auth identity.
func (u SessionUser) ActiveUser() ActiveUser {
	return ActiveUser{
		Sub:            u.ID,
		Role:           u.UserMetadata.Role,
		Email:          u.Email,
		FullName:       u.UserMetadata.FullName,
		Identification: u.UserMetadata.Identification,
	}
}

type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        SessionUser `json:"user"`
}

// ActiveUser is kept only for the lifetime of a session and never written
// to the remote tables.
type ActiveUser struct {
	Sub            string `json:"sub"`
	Role           Role   `json:"role"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	Identification string `json:"identification"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignUpRequest struct {
	Email    string       `json:"email" validate:"required,email"`
	Password string       `json:"password" validate:"required,min=6"`
	Data     UserMetadata `json:"data"`
}

// SignUpResponse returns the new identity and its users row.
type SignUpResponse struct {
	User    SessionUser `json:"user"`
	Profile User        `json:"profile"`
}
