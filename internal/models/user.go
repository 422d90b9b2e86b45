package models

import "time"

// User is a stored account record. Secret holds the bcrypt digest of the
// account password; it is persisted with the record but must never cross
// the identity service boundary.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Secret      string    `json:"secret"`
	AvatarColor string    `json:"avatarColor"`
	DateJoined  time.Time `json:"dateJoined"`
}

// PublicUser is the only user representation exposed outside the identity
// service. It has no secret field at all, so a serialized session can
// never leak credentials.
type PublicUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	AvatarColor string    `json:"avatarColor"`
	DateJoined  time.Time `json:"dateJoined"`
}

// Sanitize returns the public view of the user.
func (u User) Sanitize() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		AvatarColor: u.AvatarColor,
		DateJoined:  u.DateJoined,
	}
}
