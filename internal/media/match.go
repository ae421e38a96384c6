package media

import (
	"strconv"
	"strings"

	"github.com/hbollon/go-edlib"
)

// minMatchScore is the Jaro-Winkler similarity a typed reply needs to be
// accepted as a fuzzy match for an option label.
const minMatchScore = 0.80

// MatchSelection maps a typed reply such as "720", "1080p mp4" or "mp3 320"
// to one of the candidate's options.
func MatchSelection(c *Candidate, text string) (Selection, bool) {
	q := foldText(text)
	if q == "" {
		return Selection{}, false
	}
	words := strings.Fields(q)

	if containsAny(words, "mp3", "audio", "music", "song") && len(c.AudioTiers) > 0 {
		for _, w := range words {
			if c.HasTier(AudioTier(w)) {
				return Selection{Kind: KindAudio, Tier: AudioTier(w)}, true
			}
		}
		// Highest tier when none is named.
		return Selection{Kind: KindAudio, Tier: c.AudioTiers[len(c.AudioTiers)-1]}, true
	}

	for _, w := range words {
		height, err := strconv.Atoi(strings.TrimSuffix(w, "p"))
		if err != nil {
			continue
		}
		for _, f := range c.Videos {
			if f.Height == height {
				return Selection{Kind: KindVideo, FormatID: f.ID}, true
			}
		}
	}

	var (
		best      Selection
		bestScore float32
	)
	for _, opt := range Options(c) {
		score := edlib.JaroWinklerSimilarity(q, foldText(opt.Label))
		if score > bestScore {
			best, bestScore = opt.Selection, score
		}
	}
	if bestScore < minMatchScore {
		return Selection{}, false
	}
	return best, true
}

func containsAny(words []string, targets ...string) bool {
	for _, w := range words {
		for _, t := range targets {
			if w == t {
				return true
			}
		}
	}
	return false
}
