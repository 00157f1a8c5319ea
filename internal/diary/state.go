package diary

import (
	"strings"
	"time"

	"github.com/xaenox/diary-bot/internal/models"
)

// ReplyState describes where an entry's reply stands.
type ReplyState int

const (
	// ReplyAbsent means no reply was stored and none is expected any more,
	// e.g. the process stopped between the content and reply writes.
	ReplyAbsent ReplyState = iota
	// ReplyPending means the content was saved recently and the reply
	// call may still be running.
	ReplyPending
	ReplyReady
	// ReplyFailed means the stored reply is a failure notice.
	ReplyFailed
)

func (s ReplyState) String() string {
	switch s {
	case ReplyPending:
		return "pending"
	case ReplyReady:
		return "ready"
	case ReplyFailed:
		return "failed"
	default:
		return "absent"
	}
}

// StateOf classifies entry at now. window is how long after a save a
// missing reply still counts as pending.
func StateOf(entry *models.DiaryEntry, now time.Time, window time.Duration) ReplyState {
	if entry.AIResponse == nil {
		if now.Sub(entry.UpdatedAt) <= window {
			return ReplyPending
		}
		return ReplyAbsent
	}
	if strings.HasPrefix(*entry.AIResponse, FailurePrefix) {
		return ReplyFailed
	}
	return ReplyReady
}
