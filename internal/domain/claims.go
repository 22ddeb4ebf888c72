package domain

import "time"

// Claims is the identity claim set shared by bearer tokens and session records.
// IssuedAt and ExpiresAt are Unix seconds.
type Claims struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Session is a server-held session record
type Session struct {
	ID         string    `json:"id"`
	Claims     Claims    `json:"claims"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
