package models

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// User is a storefront account. Orders reference it as their purchaser.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:150;uniqueIndex;not null"`
	Email        string `gorm:"size:254;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	FirstName    string `gorm:"size:150;not null"`
	LastName     string `gorm:"size:150;not null"`
	IsActive     bool   `gorm:"not null"`
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

func (u *User) TableName() string {
	return "users"
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

var missingUserHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("no such user"), bcryptCost)
	return hash
})

// CheckMissingUserPassword does the work of a failed CheckPassword so that a
// login for an unknown username takes as long as a wrong password.
func CheckMissingUserPassword(password string) {
	_ = bcrypt.CompareHashAndPassword(missingUserHash(), []byte(password))
}

func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// FullName joins first and last name, empty when neither is set.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
