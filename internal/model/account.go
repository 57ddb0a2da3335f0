package model

import "golang.org/x/crypto/bcrypt"

// Account is an auth identity. It is never exposed through the table API;
// the public profile lives in User under the same id.
type Account struct {
	BaseModel
	Email          string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password       string `gorm:"type:varchar(255);not null" json:"-"`
	Role           Role   `gorm:"type:varchar(20);not null" json:"role"`
	FullName       string `gorm:"type:varchar(255)" json:"full_name"`
	Identification string `gorm:"type:varchar(50)" json:"identification"`
	TokenVersion   string `gorm:"type:varchar(255);default:''" json:"-"` // rotated on login/logout
}

// SetPassword hashes and sets the account password
func (a *Account) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (a *Account) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password))
	return err == nil
}

// ToSessionUser converts the account to the user object returned by auth endpoints.
func (a *Account) ToSessionUser() SessionUser {
	return SessionUser{
		ID:    a.ID,
		Email: a.Email,
		UserMetadata: UserMetadata{
			Role:           a.Role,
			FullName:       a.FullName,
			Identification: a.Identification,
		},
	}
}

// Profile builds the users row mirrored from the account.
func (a *Account) Profile() User {
	return User{
		BaseModel:      BaseModel{ID: a.ID},
		FullName:       a.FullName,
		Identification: a.Identification,
		Role:           a.Role,
	}
}
