package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/diary-bot/internal/ai"
	"github.com/xaenox/diary-bot/internal/diary"
	"github.com/xaenox/diary-bot/internal/models"
	"github.com/xaenox/diary-bot/internal/storage"
	"github.com/xaenox/diary-bot/internal/topic"
	"go.uber.org/zap/zaptest"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	actions  []tgbotapi.ChatActionConfig
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.messages = append(s.messages, msg)
	}
	return tgbotapi.Message{}, nil
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if action, ok := c.(tgbotapi.ChatActionConfig); ok {
		s.actions = append(s.actions, action)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.messages)
	return s.messages[len(s.messages)-1]
}

type stubGenerator struct {
	reply string
	err   error
}

func (g stubGenerator) Name() string { return "stub" }

func (g stubGenerator) GenerateReply(ctx context.Context, p string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if g.reply != "" {
		return g.reply, nil
	}
	return "お疲れさまでした。", nil
}

const adminID = 1

type harness struct {
	bot    *Bot
	sender *fakeSender
	store  *storage.MemoryStorage
	now    time.Time
}

func newHarness(t *testing.T, gen ai.Generator) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := storage.NewMemoryStorage()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	clock := diary.ClockFunc(func() time.Time { return now })

	sender := &fakeSender{}
	b := newBot(sender, Deps{
		Users:   store,
		Diaries: diary.NewService(store, gen, clock, diary.Config{}, logger),
		Topics:  topic.NewService(store, clock, time.UTC, logger),
		IsAdmin: func(id int64) bool { return id == adminID },
	}, logger)

	return &harness{bot: b, sender: sender, store: store, now: now}
}

func (h *harness) say(from int64, text string) {
	message := &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: from, UserName: fmt.Sprintf("user%d", from)},
		Chat:      &tgbotapi.Chat{ID: from * 100},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		command, _, _ := strings.Cut(text, " ")
		message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}}
	}
	h.bot.handleMessage(context.Background(), message)
}

func TestWriteAndToday(t *testing.T) {
	h := newHarness(t, stubGenerator{})

	h.say(2, "今日は散歩した")
	saved := h.sender.last(t)
	assert.Equal(t, int64(200), saved.ChatID)
	assert.Equal(t, 7, saved.ReplyToMessageID)
	assert.Contains(t, saved.Text, "2026-10-15")
	assert.Contains(t, saved.Text, "お疲れさまでした。")
	require.Len(t, h.sender.actions, 1)
	assert.Equal(t, tgbotapi.ChatTyping, h.sender.actions[0].Action)

	h.say(2, "/today")
	today := h.sender.last(t)
	assert.Contains(t, today.Text, "今日は散歩した")
	assert.Contains(t, today.Text, "💌 お疲れさまでした。")
}

func TestWriteShowsFailureNotice(t *testing.T) {
	h := newHarness(t, stubGenerator{err: &ai.Error{Provider: "stub", Message: "quota exceeded"}})

	h.say(2, "今日は疲れた")
	msg := h.sender.last(t)
	assert.Contains(t, msg.Text, "返信を作成できませんでした")
	assert.Contains(t, msg.Text, diary.FailurePrefix+"stub: quota exceeded")
}

func TestTodayWithoutEntry(t *testing.T) {
	h := newHarness(t, stubGenerator{})

	h.say(2, "/today")
	assert.Contains(t, h.sender.last(t).Text, "まだありません")
}

func TestHistorySearchAndDetail(t *testing.T) {
	h := newHarness(t, stubGenerator{})
	ctx := context.Background()

	h.say(2, "/start")
	user, _, err := h.store.EnsureUser(ctx, 2, "", false)
	require.NoError(t, err)
	entry, err := h.store.UpsertEntry(ctx, user.ID, models.Date{Year: 2026, Month: time.October, Day: 10}, "映画を見た", h.now)
	require.NoError(t, err)

	h.say(2, "/history")
	list := h.sender.last(t).Text
	assert.Contains(t, list, "2026-10-10")
	assert.Contains(t, list, "/diary "+entry.ID)

	h.say(2, "/search 映画 2026-10-01 2026-10-11")
	assert.Contains(t, h.sender.last(t).Text, "映画を見た")

	h.say(2, "/search 映画 2026-10-11 2026-10-01")
	assert.Contains(t, h.sender.last(t).Text, "期間の指定が正しくありません")

	h.say(2, "/search 読書")
	assert.Contains(t, h.sender.last(t).Text, "見つかりませんでした")

	h.say(2, "/diary "+entry.ID)
	assert.Contains(t, h.sender.last(t).Text, "映画を見た")

	h.say(3, "/diary "+entry.ID)
	assert.Contains(t, h.sender.last(t).Text, "見つかりませんでした")
}

func TestAdviceCommand(t *testing.T) {
	h := newHarness(t, stubGenerator{})
	ctx := context.Background()

	h.say(2, "/advice on")
	assert.Contains(t, h.sender.last(t).Text, "アドバイス")

	user, profile, err := h.store.EnsureUser(ctx, 2, "", false)
	require.NoError(t, err)
	assert.True(t, profile.AdviceEnabled)

	h.say(2, "/advice off")
	profile, err = h.store.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, profile.AdviceEnabled)

	h.say(2, "/advice maybe")
	assert.Contains(t, h.sender.last(t).Text, "使い方")
}

func TestTopicFlow(t *testing.T) {
	h := newHarness(t, stubGenerator{})

	h.say(2, "/topic")
	assert.Contains(t, h.sender.last(t).Text, "登録されていません")

	h.say(2, "/settopic 2026-10-15 好きな季節")
	assert.Contains(t, h.sender.last(t).Text, "管理者のみ")

	h.say(adminID, "/settopic 2026-10-15 好きな季節")
	assert.Contains(t, h.sender.last(t).Text, "登録しました")

	h.say(adminID, "/settopic 2026-10-15 別の話題")
	assert.Contains(t, h.sender.last(t).Text, "すでに登録されています")

	h.say(adminID, "/settopic 2026-10-16 "+strings.Repeat("長", models.MaxTopicTitleLength+1))
	assert.Contains(t, h.sender.last(t).Text, "文字以内")

	h.say(adminID, "/settopic tomorrow 話題")
	assert.Contains(t, h.sender.last(t).Text, "使い方")

	h.say(2, "/comment 秋が好き")
	h.say(3, "/comment 春かな")
	thread := h.sender.last(t).Text
	assert.Contains(t, thread, "好きな季節")
	assert.Less(t, strings.Index(thread, "秋が好き"), strings.Index(thread, "春かな"))

	h.say(3, "/comment")
	assert.Contains(t, h.sender.last(t).Text, "使い方")
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t, stubGenerator{})

	h.say(2, "/dance")
	assert.Contains(t, h.sender.last(t).Text, "不明なコマンド")
}

func TestParseSearch(t *testing.T) {
	tests := []struct {
		args    string
		keyword string
		from    string
		to      string
	}{
		{args: "", keyword: ""},
		{args: "映画", keyword: "映画"},
		{args: "映画 館", keyword: "映画 館"},
		{args: "2026-10-01", from: "2026-10-01"},
		{args: "映画 2026-10-01 2026-10-31", keyword: "映画", from: "2026-10-01", to: "2026-10-31"},
		{args: "2026-10-01 2026-10-02 2026-10-03", keyword: "2026-10-03", from: "2026-10-01", to: "2026-10-02"},
	}

	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			req := parseSearch(tt.args)
			assert.Equal(t, tt.keyword, req.Keyword)
			if tt.from != "" {
				assert.Equal(t, tt.from, req.From.String())
			} else {
				assert.True(t, req.From.IsZero())
			}
			if tt.to != "" {
				assert.Equal(t, tt.to, req.To.String())
			} else {
				assert.True(t, req.To.IsZero())
			}
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "一行目 二行目", preview("一行目\n二行目"))

	long := strings.Repeat("あ", previewLength+5)
	got := preview(long)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, previewLength+1, len([]rune(got)))
}

func TestFormatEntryStates(t *testing.T) {
	reply := "いい日でしたね。"
	entry := &models.DiaryEntry{Date: models.Date{Year: 2026, Month: time.October, Day: 15}, Content: "晴れ", AIResponse: &reply}

	assert.Contains(t, formatEntry(entry, diary.ReplyReady), "💌 いい日でしたね。")
	assert.Contains(t, formatEntry(entry, diary.ReplyPending), "⏳")
	assert.Contains(t, formatEntry(entry, diary.ReplyAbsent), "返信はありません")
}

func TestLongEntryIsSentInPieces(t *testing.T) {
	reply := strings.Repeat("返", 300)
	h := newHarness(t, stubGenerator{reply: reply})
	content := strings.Repeat("長", diary.MaxContentLength)

	h.say(2, content)
	h.say(2, "/today")

	h.sender.mu.Lock()
	messages := append([]tgbotapi.MessageConfig(nil), h.sender.messages...)
	h.sender.mu.Unlock()

	var today strings.Builder
	for _, msg := range messages[1:] {
		assert.LessOrEqual(t, len(utf16.Encode([]rune(msg.Text))), maxMessageLength)
		assert.Zero(t, msg.ReplyToMessageID)
		today.WriteString(msg.Text)
	}
	assert.Greater(t, len(messages), 2)
	assert.Contains(t, today.String(), content)
	assert.Contains(t, today.String(), "💌 "+reply)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"短い"}, splitMessage("短い", maxMessageLength))
	assert.Empty(t, splitMessage("", maxMessageLength))

	assert.Equal(t, []string{"abcd", "ef"}, splitMessage("abcdef", 4))
	assert.Equal(t, []string{"abc\n", "def"}, splitMessage("abc\ndef", 5))
	// A newline early in the piece is not worth breaking at.
	assert.Equal(t, []string{"a\nbcd", "ef"}, splitMessage("a\nbcdef", 5))
	// Surrogate pairs count twice and are never cut in half.
	assert.Equal(t, []string{"a💌", "b"}, splitMessage("a💌b", 3))

	long := strings.Repeat("行\n", 3000)
	chunks := splitMessage(long, maxMessageLength)
	assert.Equal(t, long, strings.Join(chunks, ""))
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(utf16.Encode([]rune(chunk))), maxMessageLength)
		assert.True(t, strings.HasSuffix(chunk, "\n"))
	}
}
