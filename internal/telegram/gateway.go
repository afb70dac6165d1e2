package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"clinicbot/internal/chat"
	"clinicbot/internal/config"
)

// botAPI is the slice of tgbotapi.BotAPI the gateway needs. Tests swap in
// a fake.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Gateway bridges Telegram chats into the conversation engine. Each chat
// maps to the session "tg:<chat id>", so Telegram users share the same
// booking flow as the web widget.
type Gateway struct {
	bot    botAPI
	engine *chat.Engine
	logger *zerolog.Logger
}

func New(cfg config.TelegramConfig, engine *chat.Engine, logger *zerolog.Logger) (*Gateway, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	botAPI.Debug = cfg.Debug

	logger.Info().Str("username", botAPI.Self.UserName).Msg("Authorized on Telegram account")
	return NewWithBot(botAPI, engine, logger), nil
}

// NewWithBot wires a gateway around an existing bot client.
func NewWithBot(bot botAPI, engine *chat.Engine, logger *zerolog.Logger) *Gateway {
	return &Gateway{
		bot:    bot,
		engine: engine,
		logger: logger,
	}
}

// Start consumes updates until ctx is done.
func (g *Gateway) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := g.bot.GetUpdatesChan(u)
	g.logger.Info().Msg("Telegram gateway started")

	for {
		select {
		case <-ctx.Done():
			g.bot.StopReceivingUpdates()
			g.logger.Info().Msg("Telegram gateway stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			g.handleUpdate(ctx, update)
		}
	}
}

func (g *Gateway) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	chatID := update.Message.Chat.ID
	text := update.Message.Text
	if text == "/start" {
		text = "hello"
	}

	msgCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reply, err := g.engine.HandleMessage(msgCtx, sessionID(chatID), text)
	if err != nil {
		g.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to handle telegram message")
		reply = "Sorry, something went wrong. Please try again."
	}

	if _, err := g.bot.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
		g.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send telegram reply")
	}
}

func sessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}
