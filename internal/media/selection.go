package media

import (
	"fmt"
	"strings"
)

// Kind distinguishes what a selection asks for.
type Kind string

const (
	KindVideo  Kind = "video"
	KindAudio  Kind = "audio"
	KindCancel Kind = "cancel"
)

// AudioSelector is the format selector used for every audio tier.
const AudioSelector = "bestaudio/best"

// Selection is a user's choice among a candidate's options.
type Selection struct {
	Kind     Kind
	FormatID string
	Tier     AudioTier
}

// Token encodes the selection into opaque button data.
func (s Selection) Token() string {
	switch s.Kind {
	case KindVideo:
		return "v:" + s.FormatID
	case KindAudio:
		return "a:" + string(s.Tier)
	default:
		return "x"
	}
}

// ParseToken decodes button data produced by Token.
func ParseToken(token string) (Selection, error) {
	if token == "x" {
		return Selection{Kind: KindCancel}, nil
	}
	prefix, value, ok := strings.Cut(token, ":")
	if !ok || value == "" {
		return Selection{}, fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	switch prefix {
	case "v":
		return Selection{Kind: KindVideo, FormatID: value}, nil
	case "a":
		return Selection{Kind: KindAudio, Tier: AudioTier(value)}, nil
	default:
		return Selection{}, fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
}

// Selector returns the format selector string handed to the collaborator.
func (s Selection) Selector() string {
	if s.Kind == KindAudio {
		return AudioSelector
	}
	return s.FormatID
}

// IsAudio reports whether the selection asks for an audio-only artifact.
func (s Selection) IsAudio() bool {
	return s.Kind == KindAudio
}

// Option is one selectable entry for a candidate.
type Option struct {
	Label     string
	Selection Selection
}

// Options lists the video formats followed by the audio tiers.
func Options(c *Candidate) []Option {
	opts := make([]Option, 0, len(c.Videos)+len(c.AudioTiers))
	for _, f := range c.Videos {
		opts = append(opts, Option{
			Label:     "🎥 " + f.Label(),
			Selection: Selection{Kind: KindVideo, FormatID: f.ID},
		})
	}
	for _, t := range c.AudioTiers {
		opts = append(opts, Option{
			Label:     "🎵 " + t.Label(),
			Selection: Selection{Kind: KindAudio, Tier: t},
		})
	}
	return opts
}

// Valid reports whether sel refers to an option surfaced by c.
func (c *Candidate) Valid(sel Selection) bool {
	switch sel.Kind {
	case KindVideo:
		_, ok := c.Video(sel.FormatID)
		return ok
	case KindAudio:
		return c.HasTier(sel.Tier)
	default:
		return false
	}
}
