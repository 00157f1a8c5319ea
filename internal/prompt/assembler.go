package prompt

import (
	"strings"
	"unicode/utf8"
)

// Persona is the fixed tone policy prepended to every prompt.
const Persona = "あなたはユーザーの健康と心を支える専属のカウンセラーです。" +
	"常に丁寧で、包み込むような優しさを持った言葉遣いで返信してください。" +
	"日記がタメ語であっても敬語であっても、一貫して「です・ます」調の丁寧な言葉を使い、安心感を提供してください。" +
	"【内容のガイドライン】" +
	"・事務的な敬語ではなく、親身になって寄り添う柔らかい表現を選んでください。" +
	"・数日後に読み返しても役立つよう、「今すぐ」「今夜は」などは使わず、「疲れた時は」「次に〜する時は」といった持続的な表現にしてください。" +
	"・【】や「---」、箇条書きは使わず、自然なメッセージのみで構成してください。"

const (
	instructionLabel = "指示："
	contentLabel     = "日記内容："
	sectionSeparator = "\n\n"
)

// Assemble joins the policy, the instruction and the diary text into one
// prompt, in that order, separated by blank lines.
func Assemble(policy, instruction, content string) string {
	var b strings.Builder
	b.Grow(len(policy) + len(instruction) + len(content) + 64)
	b.WriteString(policy)
	b.WriteString(sectionSeparator)
	b.WriteString(instructionLabel)
	b.WriteString(instruction)
	b.WriteString(sectionSeparator)
	b.WriteString(contentLabel)
	b.WriteString("\n")
	b.WriteString(content)
	return b.String()
}

// Length counts characters the way reply lengths are requested.
func Length(content string) int {
	return utf8.RuneCountInString(content)
}

// Build composes the instruction for content and assembles the full prompt
// around the default Persona.
func Build(adviceEnabled bool, content string) (string, Instruction) {
	instruction := Compose(adviceEnabled, Length(content))
	return Assemble(Persona, instruction.Text, content), instruction
}

// Sections splits an assembled prompt back into instruction and content.
// ok is false when p was not produced by Assemble.
func Sections(p string) (instruction, content string, ok bool) {
	i := strings.Index(p, sectionSeparator+instructionLabel)
	if i < 0 {
		return "", "", false
	}
	rest := p[i+len(sectionSeparator)+len(instructionLabel):]
	j := strings.Index(rest, sectionSeparator+contentLabel+"\n")
	if j < 0 {
		return "", "", false
	}
	return rest[:j], rest[j+len(sectionSeparator)+len(contentLabel)+1:], true
}
