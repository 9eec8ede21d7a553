package notify

import (
	"context"
	"fmt"

	"rentdapp/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var levelIcons = map[string]string{
	LevelInfo:    "ℹ️",
	LevelSuccess: "✅",
	LevelWarning: "⚠️",
	LevelError:   "❌",
}

// TelegramNotifier posts notifications to one chat.
type TelegramNotifier struct {
	bot    Sender
	chatID int64
	logger *zerolog.Logger
}

func NewTelegramNotifier(bot Sender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}
}

// DialTelegram authenticates the bot token.
func DialTelegram(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	logger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", cfg.ChatID).Msg("telegram notifications enabled")
	return NewTelegramNotifier(bot, cfg.ChatID, logger), nil
}

func (n *TelegramNotifier) Notify(_ context.Context, level, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, levelIcons[level]+" "+text)
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
