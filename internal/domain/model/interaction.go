package model

import (
	"time"

	"telegram-bot-platform/internal/domain"
)

// InteractionKind classifies a logged bot-facing action.
type InteractionKind string

const (
	InteractionCommand  InteractionKind = "command"
	InteractionCallback InteractionKind = "callback"
	InteractionMessage  InteractionKind = "message"
)

func (k InteractionKind) Valid() bool {
	switch k {
	case InteractionCommand, InteractionCallback, InteractionMessage:
		return true
	}
	return false
}

// InteractionRecord is one logged action of a directory entry. Records are
// immutable after creation and retrieved newest first.
type InteractionRecord struct {
	ID         int64           `json:"id"`
	ChatID     int64           `json:"chat_id"`
	Kind       InteractionKind `json:"kind"`
	Payload    string          `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewInteractionRecord(chatID int64, kind InteractionKind, payload string) (*InteractionRecord, error) {
	if chatID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if !kind.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return &InteractionRecord{
		ChatID:     chatID,
		Kind:       kind,
		Payload:    payload,
		OccurredAt: time.Now(),
	}, nil
}

// PayloadCount is one row of a most-frequent-payload aggregation.
type PayloadCount struct {
	Payload string `json:"payload"`
	Count   int    `json:"count"`
}
