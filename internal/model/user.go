// Package model defines the data structures used throughout the application.
//
// The same structs are scanned by the database/sql store and mapped by the
// gorm store, so they carry both json and gorm tags.
package model

import "time"

// User represents a registered account.
//
// PasswordHash holds the bcrypt output and is tagged json:"-" so it can never
// leak into a response body, even when a handler serialises the whole struct.
type User struct {
	ID           int64     `json:"id"            gorm:"primaryKey"`
	FirstName    string    `json:"first_name"    gorm:"size:100;not null"`
	LastName     string    `json:"last_name"     gorm:"size:100;not null;index"`
	Username     string    `json:"username"      gorm:"size:80;not null;uniqueIndex"`
	Email        string    `json:"email"         gorm:"size:120;not null;uniqueIndex"`
	PasswordHash string    `json:"-"             gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `json:"date_created"`
	UpdatedAt    time.Time `json:"date_modified"`

	// Bucketlists is only populated for the single-user detail view.
	Bucketlists []Bucketlist `json:"bucketlists,omitempty" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

// FullName joins first and last name for log lines and greetings.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
