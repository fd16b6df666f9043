package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/config"
	"reminder-service/internal/models"
	"reminder-service/internal/utils"
)

// SendBatchAlert notifies the ops chat when a batch finishes with failures.
// A degraded batch is not an erroring invocation, but somebody should look.
// No-op when Telegram is not configured.
func SendBatchAlert(ctx context.Context, cfg config.Config, logger *logrus.Logger, summary models.Summary) error {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
		return nil
	}

	text := fmt.Sprintf(
		"*Reminder dispatch degraded*\n"+
			"Processed: %d\n"+
			"Sent: %d\n"+
			"Failed: %d\n"+
			"Success rate: %.1f%%",
		summary.Processed,
		summary.Sent,
		summary.Failed,
		summary.SuccessRate,
	)

	return utils.Retry(logger, 3, time.Second, func() error {
		b, err := bot.New(cfg.Telegram.BotToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		params := &bot.SendMessageParams{
			ChatID:    cfg.Telegram.ChatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram alert to chat_id %d: %w", cfg.Telegram.ChatID, err)
		}
		return nil
	})
}
