package diary

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xaenox/diary-bot/internal/models"
)

// MaxContentLength bounds a diary entry, in characters. It stays under
// Telegram's message limit so the text of an entry fits in one message.
const MaxContentLength = 4000

var (
	ErrEmptyContent   = errors.New("diary content is empty")
	ErrContentTooLong = errors.New("diary content is too long")
	ErrInvalidPeriod  = errors.New("search period ends before it starts")
)

// WriteRequest is the body of a diary save.
type WriteRequest struct {
	Content string `json:"content"`
}

func (r WriteRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyContent
	}
	if n := utf8.RuneCountInString(r.Content); n > MaxContentLength {
		return fmt.Errorf("%w: %d characters, max %d", ErrContentTooLong, n, MaxContentLength)
	}
	return nil
}

// SearchRequest filters past entries. Zero dates leave that side open.
type SearchRequest struct {
	Keyword string      `json:"keyword"`
	From    models.Date `json:"from"`
	To      models.Date `json:"to"`
}

func (r SearchRequest) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, r.From, r.To)
	}
	return nil
}
