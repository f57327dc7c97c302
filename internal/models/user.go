package models

import "time"

type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Role           string    `json:"role"`            // user, attendant, admin
	ApprovalStatus string    `json:"approval_status"` // pending, approved, rejected
	TelegramID     int64     `json:"telegram_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
