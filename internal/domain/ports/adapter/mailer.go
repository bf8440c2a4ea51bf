package adapter

import "context"

// Mailer is the outbound notification port used by the registration flow.
type Mailer interface {
	SendWelcome(ctx context.Context, to, displayName, username string) error
}
