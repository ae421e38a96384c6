package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vmunix/tubebot/internal/job"
)

const (
	textWelcome = "🎬 Welcome to YouTube Downloader Pro!\nSend me a YouTube link to get started."

	textCancelling     = "✖ Cancelling download..."
	textNothingRunning = "Nothing to cancel"
	textTooLate        = "⏳ Too late to cancel, the file is already uploading"
	textJobActive      = "⏳ A download is already in progress. Use /cancel to stop it"
	textPickOption     = "Pick one of the options above, or send a new link"
	textAudioUsage     = "Usage: /audio <link>"
	textUnknownCommand = "Unknown command. See /help"
)

func promptCaption(title string) string {
	return fmt.Sprintf("📽 %s\nSelect quality:", title)
}

func helpText(l job.Limits) string {
	var b strings.Builder
	b.WriteString("🌟 YouTube Downloader Pro Help 🌟\n\n")
	b.WriteString("• Send any YouTube link to download\n")
	b.WriteString("• Choose video quality or MP3 audio\n")
	fmt.Fprintf(&b, "• Max video length: %s\n", lengthLimit(l.MaxDuration))
	if l.MaxFileSize > 0 {
		fmt.Fprintf(&b, "• Max file size: %s\n", humanize.IBytes(uint64(l.MaxFileSize)))
	}
	b.WriteString("• Supported formats: MP4, WebM, MP3\n\n")
	b.WriteString("Commands:\n")
	b.WriteString("/help - Show this help\n")
	b.WriteString("/stats - Show usage statistics\n")
	b.WriteString("/audio <link> - Download audio only\n")
	b.WriteString("/cancel - Stop the running download")
	return b.String()
}

func lengthLimit(d time.Duration) string {
	switch {
	case d <= 0:
		return "unlimited"
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	default:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
}

func statsText(mine job.UserUsage, all job.Totals, active int) string {
	var b strings.Builder
	b.WriteString("📊 Usage statistics\n\n")
	fmt.Fprintf(&b, "Your downloads: %d (%s)\n", mine.Completed, humanize.IBytes(uint64(mine.Bytes)))
	if !mine.LastCompleted.IsZero() {
		fmt.Fprintf(&b, "Last download: %s\n", humanize.Time(mine.LastCompleted))
	}
	fmt.Fprintf(&b, "All users: %s, %s, %s\n",
		plural(all.Users, "user"), plural(all.Completed, "download"), humanize.IBytes(uint64(all.Bytes)))
	fmt.Fprintf(&b, "Active downloads: %d", active)
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), word)
}
