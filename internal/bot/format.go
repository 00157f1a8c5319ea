package bot

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/xaenox/diary-bot/internal/diary"
	"github.com/xaenox/diary-bot/internal/models"
	"github.com/xaenox/diary-bot/internal/topic"
)

const previewLength = 40

// maxMessageLength is Telegram's limit on message text, counted in UTF-16
// code units.
const maxMessageLength = 4096

// splitMessage cuts text into pieces Telegram accepts, preferring to break
// after a newline in the second half of a piece.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for text != "" {
		units, cut, lastNewline := 0, len(text), -1
		for i, r := range text {
			n := utf16.RuneLen(r)
			if n < 0 {
				n = 1
			}
			if units+n > limit {
				cut = i
				break
			}
			units += n
			if r == '\n' && units > limit/2 {
				lastNewline = i + 1
			}
		}
		if cut < len(text) && lastNewline > 0 {
			cut = lastNewline
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return chunks
}

func formatSaved(result *diary.WriteResult) string {
	entry := result.Entry
	var b strings.Builder
	fmt.Fprintf(&b, "📔 %s の日記を保存しました。\n\n", entry.Date)

	switch {
	case result.Superseded:
		b.WriteString("この日記は新しい内容で書き直されたため、返信は新しい内容に対して作成されます。")
	case result.ReplyFailed:
		b.WriteString("⚠️ AIからの返信を作成できませんでした。\n")
		b.WriteString(entry.Reply())
	default:
		b.WriteString("💌 ")
		b.WriteString(entry.Reply())
	}
	return b.String()
}

func formatEntry(entry *models.DiaryEntry, state diary.ReplyState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📔 %s\n\n%s\n\n", entry.Date, entry.Content)

	switch state {
	case diary.ReplyReady:
		b.WriteString("💌 ")
		b.WriteString(entry.Reply())
	case diary.ReplyFailed:
		b.WriteString("⚠️ ")
		b.WriteString(entry.Reply())
	case diary.ReplyPending:
		b.WriteString("⏳ AIが返信を考えています…")
	default:
		b.WriteString("返信はありません。もう一度保存すると返信を作成します。")
	}
	return b.String()
}

func formatList(title string, entries []*models.DiaryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s（%d件）\n", title, len(entries))
	for _, entry := range entries {
		fmt.Fprintf(&b, "\n%s  %s\n/diary %s\n", entry.Date, preview(entry.Content), entry.ID)
	}
	return b.String()
}

func formatTopic(view *topic.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💬 今日の話題（%s）\n%s\n", view.Topic.Date, view.Topic.Title)
	if len(view.Comments) == 0 {
		b.WriteString("\nまだコメントはありません。/comment で最初の書き込みをどうぞ。")
		return b.String()
	}
	for _, c := range view.Comments {
		fmt.Fprintf(&b, "\n%s: %s", displayName(c.Author), c.Content)
	}
	return b.String()
}

func displayName(name string) string {
	if name == "" {
		return "名無しさん"
	}
	return name
}

func preview(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "…"
}

// parseSearch reads "keyword [from] [to]". Arguments that parse as dates
// fill from then to; the rest form the keyword.
func parseSearch(args string) diary.SearchRequest {
	var (
		req      diary.SearchRequest
		keywords []string
	)
	for _, field := range strings.Fields(args) {
		if d, err := models.ParseDate(field); err == nil {
			switch {
			case req.From.IsZero():
				req.From = d
				continue
			case req.To.IsZero():
				req.To = d
				continue
			}
		}
		keywords = append(keywords, field)
	}
	req.Keyword = strings.Join(keywords, " ")
	return req
}
