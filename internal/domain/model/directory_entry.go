package model

import (
	"time"

	"telegram-bot-platform/internal/domain"
)

// DirectoryEntry is a domain entity representing one external chat identity.
// Exactly one entry exists per Telegram chat ID; the chat ID never changes
// once the entry is created.
type DirectoryEntry struct {
	ChatID            int64     `json:"chat_id"`
	Username          string    `json:"username,omitempty"`
	FirstName         string    `json:"first_name,omitempty"`
	LastName          string    `json:"last_name,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
	IsActive          bool      `json:"is_active"`
}

func NewDirectoryEntry(chatID int64, username, firstName, lastName string) (*DirectoryEntry, error) {
	if chatID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &DirectoryEntry{
		ChatID:            chatID,
		Username:          username,
		FirstName:         firstName,
		LastName:          lastName,
		CreatedAt:         now,
		LastInteractionAt: now,
		IsActive:          true,
	}, nil
}

// DisplayName returns the best human-readable name for chat replies.
func (e *DirectoryEntry) DisplayName() string {
	if e.FirstName != "" {
		return e.FirstName
	}
	if e.Username != "" {
		return e.Username
	}
	return "there"
}

func (e *DirectoryEntry) Touch() { e.LastInteractionAt = time.Now() }
