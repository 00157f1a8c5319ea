package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/xaenox/diary-bot/internal/prompt"
)

// OfflineGenerator writes a canned reply from keywords in the diary text.
// It needs no credentials and is meant for local runs.
type OfflineGenerator struct {
	moods []mood
}

type mood struct {
	keywords []string
	empathy  string
	advice   string
}

func NewOfflineGenerator() *OfflineGenerator {
	return &OfflineGenerator{
		moods: []mood{
			{
				keywords: []string{"疲れ", "しんど", "だる", "眠い"},
				empathy:  "毎日本当にお疲れさまです。がんばってきたあなたの一日が、日記から伝わってきました。",
				advice:   "疲れを感じた時は、温かい飲み物でひと息ついて、いつもより少し早めに休んでみてくださいね。",
			},
			{
				keywords: []string{"不安", "心配", "悩", "つらい", "辛い"},
				empathy:  "気持ちを言葉にしてくださってありがとうございます。心が揺れる日があっても大丈夫ですよ。",
				advice:   "気持ちが落ち着かない時は、ゆっくり深呼吸をしたり、短い散歩で外の空気を感じてみてください。",
			},
			{
				keywords: []string{"嬉し", "楽し", "よかった", "良かった", "幸せ"},
				empathy:  "素敵な出来事があったのですね。読んでいる私まで嬉しい気持ちになりました。",
				advice:   "良い気分の日は、軽いストレッチや好きな食事で、その心地よさを体にも届けてあげてくださいね。",
			},
			{
				keywords: []string{"仕事", "会議", "締め切り", "残業", "勉強"},
				empathy:  "やるべきことに向き合った一日だったのですね。その積み重ねはきっと力になっています。",
				advice:   "集中が続いた後は、画面から目を離して肩や首をほぐす時間を少しだけ作ってみてください。",
			},
		},
	}
}

func (g *OfflineGenerator) Name() string {
	return "offline"
}

func (g *OfflineGenerator) GenerateReply(ctx context.Context, p string) (string, error) {
	return guard(ctx, g.Name(), func(ctx context.Context) (string, error) {
		instruction, content, ok := prompt.Sections(p)
		if !ok {
			return "", errors.New("prompt has no diary content section")
		}

		m := g.match(content)
		reply := m.empathy
		if strings.Contains(instruction, "アドバイス") {
			reply += m.advice
		}
		return reply, nil
	})
}

func (g *OfflineGenerator) match(content string) mood {
	for _, m := range g.moods {
		for _, keyword := range m.keywords {
			if strings.Contains(content, keyword) {
				return m
			}
		}
	}
	return mood{
		empathy: "今日の日記を書いてくださってありがとうございます。あなたの毎日をいつも応援しています。",
		advice:  "日々の中で、よく眠り、よく食べ、少し体を動かす時間を大切にしてみてくださいね。",
	}
}
