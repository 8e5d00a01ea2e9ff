package telegram

import (
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"
)

// recoverMiddleware turns a handler panic into an error reply instead of
// killing the poller.
func recoverMiddleware(logger *slog.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic in telegram handler: %v", r)
					logger.Error("Recovered from panic", "error", err)
					_ = c.Send("Something went wrong, please try again.")
				}
			}()
			return next(c)
		}
	}
}

func logMiddleware(logger *slog.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)

			args := []any{"duration", time.Since(start)}
			if chat := c.Chat(); chat != nil {
				args = append(args, "chat_id", chat.ID)
			}
			if msg := c.Message(); msg != nil {
				args = append(args, "text", msg.Text, "voice", msg.Voice != nil)
			}
			if err != nil {
				logger.Warn("Telegram update failed", append(args, "error", err)...)
				return err
			}
			logger.Debug("Telegram update handled", args...)
			return nil
		}
	}
}
