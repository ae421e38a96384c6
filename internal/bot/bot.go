package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/vmunix/tubebot/internal/job"
	"github.com/vmunix/tubebot/internal/media"
	"github.com/vmunix/tubebot/internal/progress"
)

// Bot dispatches inbound updates. Each update is handled on its own
// goroutine so a slow probe never holds up other users.
type Bot struct {
	msgr Messenger
	orch *job.Orchestrator
	log  *slog.Logger

	mu      sync.Mutex
	prompts map[int64]progress.Target // identity -> last selection prompt
}

// New creates a bot.
func New(msgr Messenger, orch *job.Orchestrator, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		msgr:    msgr,
		orch:    orch,
		log:     log,
		prompts: make(map[int64]progress.Target),
	}
}

// Name returns the runner name.
func (b *Bot) Name() string {
	return "bot"
}

// Start consumes updates until ctx ends or the update stream closes, then
// waits for in-flight handlers.
func (b *Bot) Start(ctx context.Context) error {
	updates := b.msgr.Updates(ctx)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Handle(ctx, u)
			}()
		}
	}
}

// Handle processes one update synchronously.
func (b *Bot) Handle(ctx context.Context, u Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panicked", "user_id", u.UserID, "panic", r)
		}
	}()

	switch u.Kind {
	case UpdateCallback:
		b.handleCallback(ctx, u)
	default:
		b.handleMessage(ctx, u)
	}
}

func (b *Bot) handleMessage(ctx context.Context, u Update) {
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, u, text)
		return
	}
	if media.ValidateURL(text) == nil {
		b.request(ctx, u, text, media.ModeVideo)
		return
	}
	b.handleTypedChoice(ctx, u, text)
}

func (b *Bot) handleCommand(ctx context.Context, u Update, text string) {
	cmd, arg, _ := strings.Cut(text, " ")
	// Commands in groups arrive as /cmd@botname.
	cmd, _, _ = strings.Cut(cmd, "@")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "/start":
		b.reply(ctx, u.ChatID, textWelcome)
	case "/help":
		b.reply(ctx, u.ChatID, helpText(b.orch.Limits()))
	case "/stats":
		b.reply(ctx, u.ChatID, statsText(b.orch.Usage.User(u.UserID), b.orch.Usage.Totals(), b.orch.ActiveCount()))
	case "/cancel":
		if msg := b.cancelCommand(ctx, u); msg != "" {
			b.reply(ctx, u.ChatID, msg)
		}
	case "/audio":
		if arg == "" {
			b.reply(ctx, u.ChatID, textAudioUsage)
			return
		}
		b.request(ctx, u, arg, media.ModeAudio)
	default:
		b.reply(ctx, u.ChatID, textUnknownCommand)
	}
}

// request resolves rawURL and renders the selection prompt.
func (b *Bot) request(ctx context.Context, u Update, rawURL string, mode media.Mode) {
	sess, err := b.orch.Request(ctx, u.UserID, u.ChatID, rawURL, mode)
	if err != nil {
		b.reply(ctx, u.ChatID, job.UserMessage(err, b.orch.Limits()))
		return
	}

	cand := sess.Candidate
	caption := promptCaption(cand.Title)
	kb := keyboard(cand)

	target := progress.Target{ChatID: u.ChatID}
	if cand.Thumbnail != "" {
		id, err := b.msgr.SendPhoto(ctx, u.ChatID, cand.Thumbnail, caption, kb)
		if err == nil {
			target.MessageID, target.Caption = id, true
		} else {
			b.log.Warn("thumbnail prompt failed, falling back to text", "user_id", u.UserID, "error", err)
		}
	}
	if target.MessageID == 0 {
		id, err := b.msgr.SendText(ctx, u.ChatID, caption, kb)
		if err != nil {
			b.log.Error("failed to send selection prompt", "user_id", u.UserID, "error", err)
			return
		}
		target.MessageID = id
	}

	b.mu.Lock()
	b.prompts[u.UserID] = target
	b.mu.Unlock()
	b.orch.AttachPrompt(sess, target.MessageID)
}

// keyboard renders one option per row followed by a cancel button.
func keyboard(c *media.Candidate) Keyboard {
	opts := media.Options(c)
	kb := make(Keyboard, 0, len(opts)+1)
	for _, o := range opts {
		kb = append(kb, []Button{{Text: o.Label, Data: o.Selection.Token()}})
	}
	cancel := media.Selection{Kind: media.KindCancel}
	return append(kb, []Button{{Text: "✖ Cancel", Data: cancel.Token()}})
}

func (b *Bot) handleCallback(ctx context.Context, u Update) {
	sel, err := media.ParseToken(u.Data)
	if err != nil {
		b.log.Warn("unparseable callback data", "user_id", u.UserID, "data", u.Data)
		b.answer(ctx, u.CallbackID, job.UserMessage(job.ErrSessionExpired, b.orch.Limits()))
		return
	}

	if sel.Kind == media.KindCancel {
		if _, running := b.orch.Active(u.UserID); running {
			b.answer(ctx, u.CallbackID, b.cancel(u.UserID))
			return
		}
	}

	b.answer(ctx, u.CallbackID, "")
	target := progress.Target{ChatID: u.ChatID, MessageID: u.MessageID, Caption: u.Caption}
	if msg := b.start(ctx, u, sel, target, u.MessageID); msg != "" {
		b.reply(ctx, u.ChatID, msg)
	}
}

// handleTypedChoice treats free text as an answer to the open prompt.
func (b *Bot) handleTypedChoice(ctx context.Context, u Update, text string) {
	sess, ok := b.orch.Session(u.UserID)
	if !ok || sess.Candidate == nil || sess.Selection != nil {
		b.reply(ctx, u.ChatID, job.UserMessage(media.ErrInvalidURL, b.orch.Limits()))
		return
	}
	sel, ok := media.MatchSelection(sess.Candidate, text)
	if !ok {
		b.reply(ctx, u.ChatID, textPickOption)
		return
	}

	b.mu.Lock()
	target, ok := b.prompts[u.UserID]
	b.mu.Unlock()
	if !ok || target.ChatID != u.ChatID {
		id, err := b.msgr.SendText(ctx, u.ChatID, progress.TextStarting, nil)
		if err != nil {
			b.log.Error("failed to send progress message", "user_id", u.UserID, "error", err)
			return
		}
		target = progress.Target{ChatID: u.ChatID, MessageID: id}
	}

	if msg := b.start(ctx, u, sel, target, 0); msg != "" {
		b.reply(ctx, u.ChatID, msg)
	}
}

// start hands the selection to the orchestrator. It returns a short notice
// for the user when the selection was refused outright; failures of the job
// itself are shown in the prompt by the orchestrator. prompt is the message a
// button was pressed on, 0 otherwise.
func (b *Bot) start(ctx context.Context, u Update, sel media.Selection, target progress.Target, prompt int) string {
	j, err := b.orch.Select(ctx, job.SelectRequest{
		Identity:  u.UserID,
		ChatID:    u.ChatID,
		Selection: sel,
		Target:    target,
		Prompt:    prompt,
	})
	switch {
	case errors.Is(err, job.ErrJobActive):
		return textJobActive
	case err != nil:
		b.log.Info("selection refused", "user_id", u.UserID, "token", sel.Token(), "error", err)
	default:
		b.log.Info("job started", "user_id", u.UserID, "job_id", j.ID, "token", sel.Token())
	}

	b.mu.Lock()
	if cur, ok := b.prompts[u.UserID]; ok && cur.MessageID == target.MessageID {
		delete(b.prompts, u.UserID)
	}
	b.mu.Unlock()
	return ""
}

// cancelCommand stops the running job or, failing that, closes the open
// prompt the same way its cancel button does. A non-empty result is replied.
func (b *Bot) cancelCommand(ctx context.Context, u Update) string {
	msg := b.cancel(u.UserID)
	if msg != textNothingRunning {
		return msg
	}
	if sess, ok := b.orch.Session(u.UserID); !ok || sess.Selection != nil {
		return msg
	}

	b.mu.Lock()
	target, ok := b.prompts[u.UserID]
	b.mu.Unlock()
	if !ok || target.ChatID != u.ChatID {
		id, err := b.msgr.SendText(ctx, u.ChatID, textCancelling, nil)
		if err != nil {
			b.log.Error("failed to send cancel message", "user_id", u.UserID, "error", err)
			return ""
		}
		target = progress.Target{ChatID: u.ChatID, MessageID: id}
	}
	return b.start(ctx, u, media.Selection{Kind: media.KindCancel}, target, 0)
}

func (b *Bot) cancel(identity int64) string {
	switch err := b.orch.Cancel(identity); {
	case err == nil:
		return textCancelling
	case errors.Is(err, job.ErrNoJob):
		return textNothingRunning
	case errors.Is(err, job.ErrNotCancellable):
		return textTooLate
	default:
		b.log.Error("cancel failed", "identity", identity, "error", err)
		return job.UserMessage(err, b.orch.Limits())
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.msgr.SendText(ctx, chatID, text, nil); err != nil {
		b.log.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.msgr.AnswerCallback(ctx, callbackID, text); err != nil {
		b.log.Warn("failed to answer callback", "callback_id", callbackID, "error", err)
	}
}
