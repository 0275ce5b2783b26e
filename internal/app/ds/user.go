package ds

import "portal/internal/app/role"

// Staff account used to sign in to the portal.
type User struct {
	ID       uint      `gorm:"primaryKey"`
	Login    string    `gorm:"type:varchar(50);unique;not null"`
	Password string    `gorm:"type:varchar(255);not null"`
	Email    string    `gorm:"type:varchar(100)"`
	FullName string    `gorm:"type:varchar(100)"`
	Role     role.Role `gorm:"type:int;default:0;not null"`
}
