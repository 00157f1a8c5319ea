// Package prompt builds the text sent to the reply model for a diary entry.
package prompt

import "fmt"

const (
	// AdviceShortThreshold is the entry length from which advice-mode
	// replies switch to the long form.
	AdviceShortThreshold = 150
	// PlainShortThreshold is the same switch for empathy-only replies.
	PlainShortThreshold = 100

	AdviceLengthCap = 400
	PlainLengthCap  = 300

	shortEmpathyLength = 60
	shortAdviceLength  = 40
)

// Instruction tells the model what kind of reply to write and how long.
type Instruction struct {
	Text string
	// TargetLength is the requested reply length in characters.
	TargetLength int
	// Advice is true when the reply should include health advice.
	Advice bool
	// Long is true for the length-proportional form.
	Long bool
}

// Compose derives the reply instruction from the profile's advice flag
// and the entry length in characters.
func Compose(adviceEnabled bool, contentLength int) Instruction {
	if contentLength < 0 {
		contentLength = 0
	}

	if adviceEnabled {
		if contentLength < AdviceShortThreshold {
			return Instruction{
				Text: fmt.Sprintf("%d文字程度で短く温かく共感し、続けて%d文字程度で健康維持（食事・睡眠・運動・リフレッシュ）に関する前向きなアドバイスを1つ伝えて。",
					shortEmpathyLength, shortAdviceLength),
				TargetLength: shortEmpathyLength + shortAdviceLength,
				Advice:       true,
			}
		}
		target := proportionalLength(contentLength, AdviceLengthCap)
		return Instruction{
			Text:         fmt.Sprintf("%d文字程度で、内容を深く汲み取って共感した上で、複数の視点から健康維持（食事・睡眠・運動・リフレッシュ）に関する前向きなアドバイスを伝えて。", target),
			TargetLength: target,
			Advice:       true,
			Long:         true,
		}
	}

	if contentLength < PlainShortThreshold {
		return Instruction{
			Text:         fmt.Sprintf("%d文字程度で、短く温かく共感して。", shortEmpathyLength),
			TargetLength: shortEmpathyLength,
		}
	}
	target := proportionalLength(contentLength, PlainLengthCap)
	return Instruction{
		Text:         fmt.Sprintf("%d文字程度で、日記の内容に深く共感し、丁寧に寄り添って。", target),
		TargetLength: target,
		Long:         true,
	}
}

// proportionalLength is two thirds of n, rounded down and capped.
func proportionalLength(n, limit int) int {
	return min(n*2/3, limit)
}
