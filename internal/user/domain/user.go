package domain

import "time"

// User is one account in the user-record store. Balance and quota are
// provider-side currency units (VND).
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	FullName       string    `json:"fullname"`
	Avatar         string    `json:"avatar"`
	Role           string    `json:"role"`
	Balance        int64     `json:"balance"`
	Quota          int64     `json:"quota"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
