package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Notifier interface {
	SendF(ctx context.Context, format string, args ...any)
}

// Telegram — пассивный нотифайер: только шлёт сообщения в один чат.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	log    *zap.Logger
}

func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		log:    log,
	}, nil
}

func (t *Telegram) Send(_ context.Context, msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		// ошибка нотификации не должна ломать обработку сигнала
		t.log.Warn("telegram send failed", zap.Error(err))
	}
}

func (t *Telegram) SendF(ctx context.Context, format string, args ...any) {
	t.Send(ctx, fmt.Sprintf(format, args...))
}

// Log — заглушка, когда телеграм не настроен: всё уходит в лог.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log { return &Log{log: log} }

func (l *Log) SendF(_ context.Context, format string, args ...any) {
	l.log.Info("notify", zap.String("msg", fmt.Sprintf(format, args...)))
}
