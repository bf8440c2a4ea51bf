package application

import (
	"context"
	"fmt"
	"strings"

	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/usecase"
)

// BotFacade composes use cases into high-level bot commands. Methods return
// the reply text so the Telegram adapter just forwards it to the chat.
type BotFacade struct {
	DirectoryUC   usecase.DirectoryUseCase
	InteractionUC usecase.InteractionUseCase
	StatsUC       usecase.StatsUseCase
	BroadcastUC   usecase.BroadcastUseCase
}

func NewBotFacade(
	directoryUC usecase.DirectoryUseCase,
	interactionUC usecase.InteractionUseCase,
	statsUC usecase.StatsUseCase,
	broadcastUC usecase.BroadcastUseCase,
) *BotFacade {
	return &BotFacade{
		DirectoryUC:   directoryUC,
		InteractionUC: interactionUC,
		StatsUC:       statsUC,
		BroadcastUC:   broadcastUC,
	}
}

// HandleInboundEvent is the single entry point for every bot event: it
// upserts the directory entry, appends the interaction record, and reports
// whether this chat was seen for the first time.
func (b *BotFacade) HandleInboundEvent(ctx context.Context, chatID int64, username, firstName, lastName string, kind model.InteractionKind, payload string) (*model.DirectoryEntry, bool, error) {
	entry, created, err := b.DirectoryUC.Upsert(ctx, chatID, username, firstName, lastName)
	if err != nil {
		return nil, false, fmt.Errorf("directory upsert: %w", err)
	}
	if _, err := b.InteractionUC.Append(ctx, chatID, kind, payload); err != nil {
		return nil, false, fmt.Errorf("append interaction: %w", err)
	}
	return entry, created, nil
}

// HandleStart returns the welcome (or welcome-back) text for /start.
func (b *BotFacade) HandleStart(ctx context.Context, chatID int64, username, firstName, lastName string) (string, error) {
	entry, created, err := b.HandleInboundEvent(ctx, chatID, username, firstName, lastName, model.InteractionCommand, "/start")
	if err != nil {
		return "", err
	}
	if created {
		return fmt.Sprintf(
			"Welcome, %s! Your account has been registered.\n\nUsername: @%s\nChat ID: %d\n\nChoose an option below:",
			entry.DisplayName(), orNotSet(entry.Username), entry.ChatID), nil
	}
	return fmt.Sprintf("Welcome back, %s!\n\nChoose an option below:", entry.DisplayName()), nil
}

// HandleStats renders the personal statistics block.
func (b *BotFacade) HandleStats(ctx context.Context, chatID int64) (string, error) {
	stats, err := b.StatsUC.UserStats(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("user stats: %w", err)
	}

	sb := strings.Builder{}
	sb.WriteString("Your statistics:\n\n")
	sb.WriteString(fmt.Sprintf("Total interactions: %d\n", stats.TotalInteractions))
	sb.WriteString(fmt.Sprintf("This week: %d\n", stats.RecentInteractions))
	sb.WriteString(fmt.Sprintf("Member since: %s\n", stats.MemberSince.Format("January 2, 2006")))
	sb.WriteString(fmt.Sprintf("Rank: #%d of %d\n", stats.Rank, stats.TotalEntries))
	if len(stats.TopCommands) > 0 {
		sb.WriteString("\nMost used commands:\n")
		for i, cmd := range stats.TopCommands {
			sb.WriteString(fmt.Sprintf("%d. %s (%d times)\n", i+1, cmd.Payload, cmd.Count))
		}
	}
	return sb.String(), nil
}

// HandleEndpoints lists the public web API surface for the inline menu.
func (b *BotFacade) HandleEndpoints(ctx context.Context) string {
	return strings.Join([]string{
		"API endpoints:",
		"POST /api/v1/register - Create a web account",
		"POST /api/v1/login - Obtain a JWT pair",
		"POST /api/v1/token/refresh - Refresh tokens",
		"GET /api/v1/public - Public platform counts",
		"GET /api/v1/protected - Your account (JWT)",
		"GET /api/v1/telegram-users - User directory (JWT)",
		"GET /api/v1/stats - Daily report (JWT)",
	}, "\n")
}

// HandleHelp returns the static help text.
func (b *BotFacade) HandleHelp(ctx context.Context) string {
	return strings.Join([]string{
		"Available commands:",
		"/start - Register and show the main menu",
		"/stats - Show your statistics",
		"/help - Show this help message",
		"/broadcast <text> - Send a message to all users (admin only)",
	}, "\n")
}

// HandleBroadcast creates a job from the admin's text and executes it
// immediately, returning a human-readable delivery summary.
func (b *BotFacade) HandleBroadcast(ctx context.Context, adminChatID int64, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Usage: /broadcast <message>", nil
	}
	job, err := b.BroadcastUC.Create(ctx, "Bot broadcast", text, fmt.Sprintf("tg:%d", adminChatID))
	if err != nil {
		return "", fmt.Errorf("create broadcast: %w", err)
	}
	job, err = b.BroadcastUC.Execute(ctx, job.ID)
	if err != nil {
		return "", fmt.Errorf("execute broadcast: %w", err)
	}
	return fmt.Sprintf("Broadcast completed: %d sent, %d failed (of %d recipients).",
		job.SuccessfulSends, job.FailedSends, job.TotalRecipients), nil
}

func orNotSet(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}
