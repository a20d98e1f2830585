package domain

import "math/rand/v2"

// Option はフォームの選択肢1件です。
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options はフォームに表示する選択肢の一覧です。
type Options struct {
	Tones         []Option `json:"tones"`
	Goals         []Option `json:"goals"`
	VisualStyles  []Option `json:"visualStyles"`
	CaptionLength []Option `json:"captionLengths"`
	AspectRatios  []Option `json:"aspectRatios"`
	MediaTypes    []Option `json:"mediaTypes"`
}

// FormOptions は表示順を保った選択肢を返します。
func FormOptions() Options {
	return Options{
		Tones: []Option{
			{string(ToneProfessional), "👔 Profissional"},
			{string(ToneFun), "🎉 Divertido"},
			{string(ToneMinimalist), "✨ Minimalista"},
			{string(ToneInspirational), "💡 Inspiracional"},
			{string(ToneWitty), "😜 Engraçado"},
			{string(ToneUrgent), "🚨 Urgente"},
			{string(ToneEducational), "📚 Educativo"},
		},
		Goals: []Option{
			{string(GoalEngagement), "💬 Engajamento"},
			{string(GoalSales), "💰 Vendas"},
			{string(GoalAwareness), "🚀 Branding"},
			{string(GoalEducation), "📖 Educação"},
		},
		VisualStyles: []Option{
			{string(StylePhotography), "📸 Fotografia"},
			{string(StyleDigitalArt), "🎨 Arte Digital"},
			{string(StyleMinimalist), "⚪ Minimalista"},
			{string(StyleVintage), "🎞️ Vintage"},
			{string(StyleCyberpunk), "🤖 Cyberpunk"},
			{string(StyleMagazine), "📖 Editorial"},
		},
		CaptionLength: []Option{
			{string(LengthShort), "⚡ Curta"},
			{string(LengthMedium), "⚖️ Média"},
			{string(LengthLong), "📖 Longa"},
		},
		AspectRatios: []Option{
			{string(RatioSquare), "Quadrado (Feed - 1:1)"},
			{string(RatioPortrait), "Retrato (Feed - 3:4)"},
			{string(RatioStory), "Story/Reels (9:16)"},
			{string(RatioLandscape), "Paisagem (16:9)"},
		},
		MediaTypes: []Option{
			{string(MediaImage), "Imagem"},
			{string(MediaVideo), "Vídeo"},
		},
	}
}

// SuggestedTopics は「ランダムなトピック」ボタンで使う候補です。
var SuggestedTopics = []string{
	"Dicas de produtividade para trabalhar em casa",
	"A importância do minimalismo no design digital",
	"Receita rápida de café da manhã saudável",
	"Tendências de moda sustentável para 2025",
	"Como a inteligência artificial está mudando o marketing",
	"5 livros que mudaram minha mentalidade de negócios",
	"Guia de viagem para um fim de semana na serra",
	"Exercícios de mindfulness para reduzir a ansiedade",
	"Bastidores do lançamento do meu novo produto",
	"Por que a consistência vence a intensidade nos estudos",
}

// RandomTopic は候補からトピックを1つ選びます。
func RandomTopic() string {
	return SuggestedTopics[rand.IntN(len(SuggestedTopics))]
}
