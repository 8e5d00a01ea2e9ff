// Package telegram is a chat front-end for exam sessions: one session per
// chat, shortcuts as single-letter messages and voice notes as spoken
// answers.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/SAP-F-2025/accessible-exam-service/internal/accessibility"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/transcription"
)

const requestTimeout = time.Minute

type Bot struct {
	bot    *tele.Bot
	chats  *chats
	logger *slog.Logger
}

func New(token string, serviceManager services.ServiceManager, logger *slog.Logger) (*Bot, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("Telegram handler failed", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telebot.NewBot: %w", err)
	}

	b := &Bot{
		bot:    bot,
		chats:  newChats(serviceManager.Sessions(), serviceManager.Voice(), logger),
		logger: logger,
	}
	b.bot.Use(recoverMiddleware(logger), logMiddleware(logger))
	b.registerHandlers()
	return b, nil
}

// Start polls for updates until Stop is called. It blocks.
func (b *Bot) Start() {
	b.logger.Info("Telegram bot started", "username", b.bot.Me.Username)
	b.bot.Start()
}

// Stop ends polling and closes every chat session.
func (b *Bot) Stop(ctx context.Context) {
	b.bot.Stop()
	b.chats.closeAll(ctx)
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/help", func(c tele.Context) error { return c.Send(helpText) })
	b.bot.Handle("/profiles", func(c tele.Context) error {
		return c.Send(RenderProfiles(accessibility.Profiles()))
	})
	b.bot.Handle("/category", b.withView(func(ctx context.Context, c tele.Context) (models.SessionView, error) {
		if c.Message().Payload == "" {
			return models.SessionView{}, fmt.Errorf("usage: /category <NAME>, see /profiles")
		}
		return b.chats.selectCategory(ctx, c.Chat().ID, c.Message().Payload)
	}))
	b.bot.Handle("/gesture", b.withView(func(ctx context.Context, c tele.Context) (models.SessionView, error) {
		return b.chats.gesture(ctx, c.Chat().ID, c.Message().Payload)
	}))
	b.bot.Handle("/answer", b.withView(func(ctx context.Context, c tele.Context) (models.SessionView, error) {
		return b.chats.answer(ctx, c.Chat().ID, c.Message().Payload)
	}))
	b.bot.Handle("/exit", b.withView(func(ctx context.Context, c tele.Context) (models.SessionView, error) {
		return b.chats.exit(ctx, c.Chat().ID)
	}))
	b.bot.Handle("/view", b.withView(func(ctx context.Context, c tele.Context) (models.SessionView, error) {
		return b.chats.view(ctx, c.Chat().ID)
	}))
	b.bot.Handle("/finish", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if !b.chats.finish(ctx, c.Chat().ID) {
			return c.Send(errNoSession.Error())
		}
		return c.Send("Session finished. Send /start to begin again.")
	})
	b.bot.Handle(tele.OnText, b.withView(func(ctx context.Context, c tele.Context) (models.SessionView, error) {
		text := strings.TrimSpace(c.Text())
		if !services.IsShortcutKey(text) {
			return models.SessionView{}, fmt.Errorf("unknown input %q, send /help for commands", text)
		}
		return b.chats.key(ctx, c.Chat().ID, text)
	}))
	b.bot.Handle(tele.OnVoice, b.handleVoice)
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	view, err := b.chats.start(ctx, c.Chat().ID, candidateID(c.Sender()))
	if err != nil {
		return c.Send(replyForError(err))
	}
	return c.Send(RenderView(view))
}

func (b *Bot) handleVoice(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	voice := c.Message().Voice
	rc, err := b.bot.File(&voice.File)
	var source transcription.AudioSource
	if err != nil {
		b.logger.Warn("Failed to download voice note", "chat_id", c.Chat().ID, "error", err)
		source = transcription.FromBytes(nil, voice.MIME)
	} else {
		defer rc.Close()
		source = transcription.FromReader(rc, voiceMIME(voice))
	}

	result, err := b.chats.speak(ctx, c.Chat().ID, source)
	if err != nil {
		return c.Send(replyForError(err))
	}
	reply := RenderView(result.View)
	if !result.Applied {
		reply = fmt.Sprintf("Heard %q but it matched no option.\n\n%s", result.Transcript, reply)
	}
	return c.Send(reply)
}

// withView runs fn and replies with the rendered view, or the error.
func (b *Bot) withView(fn func(ctx context.Context, c tele.Context) (models.SessionView, error)) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		view, err := fn(ctx, c)
		if err != nil {
			return c.Send(replyForError(err))
		}
		return c.Send(RenderView(view))
	}
}

func candidateID(u *tele.User) string {
	if u == nil {
		return "telegram"
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("tg-%d", u.ID)
}

// voiceMIME defaults to ogg, the format Telegram records voice notes in.
func voiceMIME(v *tele.Voice) string {
	if v.MIME != "" {
		return v.MIME
	}
	return "audio/ogg"
}
