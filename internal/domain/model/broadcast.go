package model

import (
	"crypto/rand"
	"time"

	"telegram-bot-platform/internal/domain"

	"github.com/oklog/ulid/v2"
)

// BroadcastStatus models the pending -> in_flight -> sent lifecycle.
// "sent" is terminal; a job stuck in_flight is picked up by the reconciler.
type BroadcastStatus string

const (
	BroadcastPending  BroadcastStatus = "pending"
	BroadcastInFlight BroadcastStatus = "in_flight"
	BroadcastSent     BroadcastStatus = "sent"
)

// BroadcastJob is one administrator-initiated mass message with delivery
// accounting. The result fields stay zero until the single execution attempt
// completes, at which point all of them are persisted together.
type BroadcastJob struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Body            string          `json:"body"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	SentAt          *time.Time      `json:"sent_at,omitempty"`
	TotalRecipients int             `json:"total_recipients"`
	SuccessfulSends int             `json:"successful_sends"`
	FailedSends     int             `json:"failed_sends"`
	Status          BroadcastStatus `json:"status"`
}

func NewBroadcastJob(title, body, createdBy string) (*BroadcastJob, error) {
	if title == "" || body == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &BroadcastJob{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Title:     title,
		Body:      body,
		CreatedBy: createdBy,
		CreatedAt: now,
		Status:    BroadcastPending,
	}, nil
}

func (j *BroadcastJob) IsSent() bool { return j.Status == BroadcastSent }

// Complete records the delivery tallies and marks the job terminal.
func (j *BroadcastJob) Complete(total, successful, failed int, at time.Time) {
	j.TotalRecipients = total
	j.SuccessfulSends = successful
	j.FailedSends = failed
	j.SentAt = &at
	j.Status = BroadcastSent
}
