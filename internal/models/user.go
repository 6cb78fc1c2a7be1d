package models

import "time"

// User is the locally registered account holding the provider API key.
// The API key is stored as-is: it must be replayed verbatim against the
// capture service, and the whole database lives in the user's own profile dir.
type User struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	APIKey      string    `json:"-"`
	AccessToken string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserPublic is User without secret fields for API responses.
type UserPublic struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt}
}
