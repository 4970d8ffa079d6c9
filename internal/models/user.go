package models

import "time"

type TelegramUser struct {
	ID        int64  `json:"id" redis:"id"`
	Username  string `json:"username" redis:"username"`
	FirstName string `json:"first_name" redis:"first_name"`
	LastName  string `json:"last_name,omitempty" redis:"last_name"`
	IsPremium bool   `json:"is_premium,omitempty" redis:"is_premium"`
	PhotoURL  string `json:"photo_url,omitempty" redis:"photo_url"`
}

// DisplayName falls back to the username, then to a generic label.
func (u *TelegramUser) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Miner"
}

type UserSession struct {
	ID           int64        `json:"id" redis:"id"`
	SessionID    string       `json:"session_id" redis:"session_id"`
	TelegramUser TelegramUser `json:"telegram_user" redis:"telegram_user"`
	CreatedAt    time.Time    `json:"created_at" redis:"created_at"`
	LastAccessed time.Time    `json:"last_accessed" redis:"last_accessed"`
}
