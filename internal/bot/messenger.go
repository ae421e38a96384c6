// Package bot routes chat updates to the orchestrator and renders its
// prompts. It knows nothing about any particular chat API; adapters implement
// Messenger.
package bot

import (
	"context"

	"github.com/vmunix/tubebot/internal/job"
	"github.com/vmunix/tubebot/internal/progress"
)

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of buttons.
type Keyboard [][]Button

// UpdateKind distinguishes inbound updates.
type UpdateKind int

const (
	UpdateMessage UpdateKind = iota
	UpdateCallback
)

// Update is one inbound event from the messaging surface.
type Update struct {
	Kind      UpdateKind
	UserID    int64
	ChatID    int64
	MessageID int // the message sent, or the message the button is attached to
	Text      string

	// Callback fields.
	CallbackID string
	Data       string
	Caption    bool // the button's message is a photo with caption
}

// Messenger is the chat surface: inbound updates plus the outbound calls the
// bot and the orchestrator make.
type Messenger interface {
	progress.Sink
	job.Deliverer

	// Updates streams inbound updates until ctx ends, then closes the channel.
	Updates(ctx context.Context) <-chan Update
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, kb Keyboard) (int, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

//go:generate mockgen -destination=mocks/mock_messenger.go -package=mocks github.com/vmunix/tubebot/internal/bot Messenger
