package mail

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-bot-platform/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*NoopMailer)(nil)

// NoopMailer logs instead of sending; used in dev mode and tests.
type NoopMailer struct {
	log *zerolog.Logger
}

func NewNoopMailer(logger *zerolog.Logger) *NoopMailer {
	compLog := logger.With().Str("component", "NoopMailer").Logger()
	return &NoopMailer{log: &compLog}
}

func (m *NoopMailer) SendWelcome(ctx context.Context, to, displayName, username string) error {
	m.log.Info().Str("to", to).Str("username", username).Msg("noop welcome email")
	return nil
}
