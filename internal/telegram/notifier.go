package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"larkdigest/internal/digest"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Notifier mirrors the digest into a Telegram chat.
type Notifier struct {
	b      *bot.Bot
	chatID int64
	title  string
	log    *slog.Logger
}

func NewNotifier(
	token string,
	chatID int64,
	title string,
	log *slog.Logger,
	opts ...bot.Option,
) (*Notifier, error) {
	token = strings.TrimSpace(token)

	b, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &Notifier{
		b:      b,
		chatID: chatID,
		title:  title,
		log:    log,
	}, nil
}

func (n *Notifier) Name() string {
	return "telegram"
}

// SendDigest sends every part of the formatted digest; a failed part does not
// stop the remaining ones.
func (n *Notifier) SendDigest(ctx context.Context, d digest.Digest) error {
	messages := FormatDigest(n.title, d)

	var errs []error
	for i, text := range messages {
		if err := n.send(ctx, text, models.ParseModeMarkdown); err != nil {
			errs = append(errs, fmt.Errorf("send part %d/%d: %w", i+1, len(messages), err))
		}
	}

	return errors.Join(errs...)
}

func (n *Notifier) SendNotice(ctx context.Context, text string) error {
	return n.send(ctx, text, "")
}

func (n *Notifier) send(ctx context.Context, text string, parseMode models.ParseMode) error {
	_, err := n.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: parseMode,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	})
	if err != nil {
		return fmt.Errorf("send message (chatID = %d): %w", n.chatID, err)
	}

	return nil
}
