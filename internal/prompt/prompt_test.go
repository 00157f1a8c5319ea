package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeBranches(t *testing.T) {
	tests := []struct {
		name         string
		advice       bool
		length       int
		targetLength int
		long         bool
		contains     []string
		excludes     []string
	}{
		{
			name:         "advice short",
			advice:       true,
			length:       149,
			targetLength: 100,
			contains:     []string{"60文字程度", "40文字程度", "健康維持", "アドバイスを1つ"},
		},
		{
			name:         "advice long at threshold",
			advice:       true,
			length:       150,
			targetLength: 100,
			long:         true,
			contains:     []string{"100文字程度", "複数の視点", "健康維持"},
		},
		{
			name:         "advice long 200",
			advice:       true,
			length:       200,
			targetLength: 133,
			long:         true,
			contains:     []string{"133文字程度", "複数の視点"},
		},
		{
			name:         "advice long capped",
			advice:       true,
			length:       3000,
			targetLength: 400,
			long:         true,
			contains:     []string{"400文字程度"},
		},
		{
			name:         "plain short",
			advice:       false,
			length:       99,
			targetLength: 60,
			contains:     []string{"60文字程度", "共感"},
			excludes:     []string{"アドバイス"},
		},
		{
			name:         "plain long at threshold",
			advice:       false,
			length:       100,
			targetLength: 66,
			long:         true,
			contains:     []string{"66文字程度", "寄り添って"},
			excludes:     []string{"アドバイス"},
		},
		{
			name:         "plain long capped",
			advice:       false,
			length:       451,
			targetLength: 300,
			long:         true,
			contains:     []string{"300文字程度"},
		},
		{
			name:         "empty entry",
			advice:       false,
			length:       0,
			targetLength: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.advice, tt.length)
			assert.Equal(t, tt.targetLength, got.TargetLength)
			assert.Equal(t, tt.long, got.Long)
			assert.Equal(t, tt.advice, got.Advice)
			for _, s := range tt.contains {
				assert.Contains(t, got.Text, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, got.Text, s)
			}
		})
	}
}

func TestComposeThresholdsSelectDifferentBranches(t *testing.T) {
	assert.NotEqual(t, Compose(true, 149).Text, Compose(true, 150).Text)
	assert.False(t, Compose(true, 149).Long)
	assert.True(t, Compose(true, 150).Long)

	assert.NotEqual(t, Compose(false, 99).Text, Compose(false, 100).Text)
	assert.False(t, Compose(false, 99).Long)
	assert.True(t, Compose(false, 100).Long)
}

func TestComposeIsDeterministicAndCapped(t *testing.T) {
	for _, advice := range []bool{true, false} {
		limit := PlainLengthCap
		if advice {
			limit = AdviceLengthCap
		}
		for n := 0; n <= 2000; n++ {
			first := Compose(advice, n)
			require.Equal(t, first, Compose(advice, n), "advice=%v n=%d", advice, n)
			require.LessOrEqual(t, first.TargetLength, limit, "advice=%v n=%d", advice, n)
			if first.Long {
				require.Equal(t, min(n*2/3, limit), first.TargetLength)
				require.Contains(t, first.Text, fmt.Sprintf("%d文字程度", first.TargetLength))
			}
		}
	}
}

func TestAssembleOrderAndContent(t *testing.T) {
	instruction := Compose(false, 6).Text
	content := "今日は疲れた"

	got := Assemble(Persona, instruction, content)

	policyAt := strings.Index(got, Persona)
	instructionAt := strings.Index(got, instruction)
	contentAt := strings.LastIndex(got, content)
	require.Equal(t, 0, policyAt)
	require.Greater(t, instructionAt, policyAt)
	require.Greater(t, contentAt, instructionAt)

	assert.Equal(t, Persona+"\n\n指示："+instruction+"\n\n日記内容：\n"+content, got)
	assert.Equal(t, got, Assemble(Persona, instruction, content))
}

func TestAssembleKeepsContentVerbatim(t *testing.T) {
	content := "一行目\n\n指示：これは日記の一部\n三行目  "
	got := Assemble("policy", "do this", content)
	assert.True(t, strings.HasSuffix(got, content))

	instruction, parsed, ok := Sections(got)
	require.True(t, ok)
	assert.Equal(t, "do this", instruction)
	assert.Equal(t, content, parsed)
}

func TestSectionsRejectsForeignText(t *testing.T) {
	_, _, ok := Sections("just a question")
	assert.False(t, ok)
}

func TestBuildCountsCharactersNotBytes(t *testing.T) {
	content := strings.Repeat("あ", 150)
	require.Equal(t, 150, Length(content))

	p, instruction := Build(true, content)
	assert.True(t, instruction.Long)
	assert.Equal(t, 100, instruction.TargetLength)
	assert.Contains(t, p, instruction.Text)
	assert.Contains(t, p, content)
}

func TestPersonaForbidsTimeDeicticPhrasing(t *testing.T) {
	for _, rule := range []string{"今すぐ", "今夜は", "疲れた時は", "箇条書き", "です・ます"} {
		assert.Contains(t, Persona, rule)
	}
}
