package models

import "time"

// User represents a diary owner. Identity comes from Telegram.
type User struct {
	ID         string    `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
}

// Profile holds per-user reply settings.
type Profile struct {
	UserID string `json:"user_id"`
	// AdviceEnabled selects replies that add health-maintenance advice
	// on top of empathy.
	AdviceEnabled bool `json:"advice_enabled"`
}

// DiaryEntry is one user's text for one calendar day plus its AI reply.
// At most one entry exists per (UserID, Date).
type DiaryEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Date       Date      `json:"date"`
	Content    string    `json:"content"`
	AIResponse *string   `json:"ai_response,omitempty"`
	Revision   int64     `json:"revision"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasReply reports whether a reply (success or failure notice) is stored.
func (e *DiaryEntry) HasReply() bool {
	return e.AIResponse != nil
}

// Reply returns the stored reply or an empty string.
func (e *DiaryEntry) Reply() string {
	if e.AIResponse == nil {
		return ""
	}
	return *e.AIResponse
}

// MaxTopicTitleLength is the longest title a DailyTopic may carry, in characters.
const MaxTopicTitleLength = 100

// DailyTopic is the administrator-posted discussion prompt for one day.
type DailyTopic struct {
	ID    string `json:"id"`
	Date  Date   `json:"date"`
	Title string `json:"title"`
}

// ThreadComment is an append-only post on a DailyTopic thread.
type ThreadComment struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topic_id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
