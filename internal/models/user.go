package models

import "time"

// User represents an account that can sign in to the shop API.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	HashedPassword string    `json:"-" gorm:"type:varchar(255);not null"` // never serialized
	FullName       string    `json:"full_name" gorm:"type:varchar(255)"`
	IsAdmin        bool      `json:"is_admin" gorm:"not null;default:false"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// UserResponse is the public projection of a User.
type UserResponse struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

// Public strips everything that must not leave the API.
func (u *User) Public() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		IsAdmin:  u.IsAdmin,
	}
}
