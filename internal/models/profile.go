package models

import "github.com/google/uuid"

// Profile is the summary shape the identity directory resolves user IDs to.
// Account management itself lives outside this service.
type Profile struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	FullName string    `json:"fullName"`
	Avatar   string    `json:"avatar,omitempty"`
}
