// Package telegram implements the bot's Messenger on the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vmunix/tubebot/internal/bot"
	"github.com/vmunix/tubebot/internal/media"
)

// Defaults used when Config fields are zero.
const (
	DefaultPollTimeout = 60 // seconds
	DefaultHTTPTimeout = 15 * time.Minute

	// maxRetryAfter bounds how long a send waits on a flood-control reply.
	maxRetryAfter = 30 * time.Second
)

// Config controls the Bot API client.
type Config struct {
	Token       string
	PollTimeout int // long-poll seconds
	HTTPTimeout time.Duration
	Debug       bool
	Endpoint    string // format string with token and method, defaults to the public API
}

// Messenger talks to Telegram. It satisfies bot.Messenger.
type Messenger struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	log         *slog.Logger
}

var _ bot.Messenger = (*Messenger)(nil)

// New authenticates with the Bot API and returns a messenger.
func New(cfg Config, log *slog.Logger) (*Messenger, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: token is required")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	return NewWithClient(cfg, &http.Client{Timeout: cfg.HTTPTimeout}, log)
}

// NewWithClient is New with a caller-supplied HTTP client.
func NewWithClient(cfg Config, client tgbotapi.HTTPClient, log *slog.Logger) (*Messenger, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "telegram")
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}

	_ = tgbotapi.SetLogger(slogLogger{log: log})

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate: %w", err)
	}
	api.Debug = cfg.Debug
	log.Info("authorized", "username", api.Self.UserName)

	return &Messenger{api: api, pollTimeout: cfg.PollTimeout, log: log}, nil
}

// Username returns the bot's @name without the at sign.
func (m *Messenger) Username() string {
	return m.api.Self.UserName
}

// Updates long-polls for updates until ctx ends.
func (m *Messenger) Updates(ctx context.Context) <-chan bot.Update {
	in := m.api.GetUpdatesChan(tgbotapi.UpdateConfig{
		Timeout:        m.pollTimeout,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	out := make(chan bot.Update)

	go func() {
		defer close(out)
		defer m.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-in:
				if !ok {
					return
				}
				conv, ok := convertUpdate(u)
				if !ok {
					continue
				}
				select {
				case out <- conv:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// SendText sends a plain text message with an optional inline keyboard.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string, kb bot.Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = markup(kb)
	}
	sent, err := m.send(ctx, msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// SendPhoto sends a photo by URL with a caption and optional keyboard.
func (m *Messenger) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, kb bot.Keyboard) (int, error) {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	msg.Caption = caption
	if kb != nil {
		msg.ReplyMarkup = markup(kb)
	}
	sent, err := m.send(ctx, msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditText replaces the text of a message and drops its keyboard.
func (m *Messenger) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	return m.request(ctx, tgbotapi.NewEditMessageText(chatID, messageID, text))
}

// EditCaption replaces the caption of a media message and drops its keyboard.
func (m *Messenger) EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error {
	return m.request(ctx, tgbotapi.NewEditMessageCaption(chatID, messageID, caption))
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (m *Messenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return m.request(ctx, tgbotapi.NewCallback(callbackID, text))
}

// SendVideo uploads f as a streamable video.
func (m *Messenger) SendVideo(ctx context.Context, chatID int64, f media.File) error {
	msg := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(f.Path))
	msg.Caption = f.Title
	msg.Duration = int(f.Duration.Seconds())
	msg.SupportsStreaming = true

	start := time.Now()
	if _, err := m.send(ctx, msg); err != nil {
		return err
	}
	m.log.Info("video uploaded", "chat_id", chatID, "file", f.Name, "size", f.Size, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// SendAudio uploads f as an audio track.
func (m *Messenger) SendAudio(ctx context.Context, chatID int64, f media.File) error {
	msg := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(f.Path))
	msg.Title = f.Title
	msg.Performer = f.Performer
	msg.Duration = int(f.Duration.Seconds())

	start := time.Now()
	if _, err := m.send(ctx, msg); err != nil {
		return err
	}
	m.log.Info("audio uploaded", "chat_id", chatID, "file", f.Name, "size", f.Size, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// send delivers c, retrying once when Telegram asks us to back off.
func (m *Messenger) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	var sent tgbotapi.Message
	op := func() error {
		var err error
		sent, err = m.api.Send(c)
		return err
	}

	err := call(ctx, op)
	if wait, ok := retryAfter(err); ok {
		m.log.Warn("flood control, retrying", "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return tgbotapi.Message{}, ctx.Err()
		}
		err = call(ctx, op)
	}
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("telegram: send: %w", err)
	}
	return sent, nil
}

// request is send for methods whose result is not a message.
func (m *Messenger) request(ctx context.Context, c tgbotapi.Chattable) error {
	err := call(ctx, func() error {
		_, err := m.api.Request(c)
		return err
	})
	if err == nil || isNotModified(err) {
		return nil
	}
	return fmt.Errorf("telegram: request: %w", err)
}

// call runs fn, giving up on it when ctx ends first. The library has no
// context support, so an abandoned call finishes in the background under
// the HTTP client's timeout.
func call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func retryAfter(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 {
		return 0, false
	}
	wait := time.Duration(apiErr.RetryAfter) * time.Second
	if wait > maxRetryAfter {
		return 0, false
	}
	return wait, true
}

// isNotModified matches the error Telegram returns when an edit would leave
// the message unchanged.
func isNotModified(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "message is not modified")
}

func markup(kb bot.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func convertUpdate(u tgbotapi.Update) (bot.Update, bool) {
	switch {
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		out := bot.Update{
			Kind:       bot.UpdateCallback,
			CallbackID: q.ID,
			Data:       q.Data,
		}
		if q.From != nil {
			out.UserID = q.From.ID
		}
		if q.Message != nil {
			out.MessageID = q.Message.MessageID
			out.Caption = q.Message.Caption != "" || len(q.Message.Photo) > 0
			if q.Message.Chat != nil {
				out.ChatID = q.Message.Chat.ID
			}
		}
		return out, true

	case u.Message != nil:
		msg := u.Message
		if msg.Text == "" || msg.Chat == nil {
			return bot.Update{}, false
		}
		out := bot.Update{
			Kind:      bot.UpdateMessage,
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			Text:      msg.Text,
		}
		if msg.From != nil {
			out.UserID = msg.From.ID
		}
		return out, true
	}
	return bot.Update{}, false
}

// slogLogger routes the library's printf-style logging into slog.
type slogLogger struct {
	log *slog.Logger
}

func (l slogLogger) Println(v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l slogLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
