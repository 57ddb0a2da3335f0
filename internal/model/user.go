package model

// Role of a dashboard user. RoleUser denotes a dispatcher.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the public profile row in the users table. Its id matches the
// auth account id.
type User struct {
	BaseModel
	FullName       string `gorm:"type:varchar(255);not null" json:"full_name" validate:"required"`
	Identification string `gorm:"type:varchar(50);not null" json:"identification" validate:"required"`
	Role           Role   `gorm:"type:varchar(20);not null;default:'user'" json:"role" validate:"required,oneof=admin user"`
}

type UserPatch struct {
	FullName       *string `json:"full_name,omitempty" validate:"omitempty,min=1"`
	Identification *string `json:"identification,omitempty" validate:"omitempty,min=1"`
	Role           *Role   `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
}

func (patch UserPatch) Apply(u *User) {
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.Identification != nil {
		u.Identification = *patch.Identification
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
}
