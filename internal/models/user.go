package models

type UserRole string

const (
	RoleSalesperson UserRole = "salesperson"
	RoleManager     UserRole = "manager"
)

func (r UserRole) Valid() bool {
	return r == RoleSalesperson || r == RoleManager
}

// User: perfil de usuario (tabla user_profiles).
type User struct {
	Model
	Username     string   `gorm:"uniqueIndex;size:100;not null" json:"username"` // e-mail de acceso
	FullName     string   `gorm:"size:255;not null" json:"full_name"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null;index" json:"role"`
	Active       bool     `gorm:"not null;default:true" json:"active"`
}

func (User) TableName() string {
	return "user_profiles"
}
