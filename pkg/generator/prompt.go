package generator

import (
	"fmt"
	"strings"

	"github.com/shouni/gemini-post-kit/pkg/domain"
)

// ratioDescriptions はアスペクト比ごとの構図の説明です。
var ratioDescriptions = map[domain.AspectRatio]string{
	domain.RatioSquare:    "quadrada (1:1), ideal para o feed do Instagram",
	domain.RatioPortrait:  "vertical (3:4), formato retrato para o feed do Instagram",
	domain.RatioStory:     "vertical longa (9:16), perfeita para Stories ou Reels do Instagram",
	domain.RatioLandscape: "horizontal (16:9), formato paisagem",
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func buildTextPrompt(cfg domain.GenerationConfig) string {
	return fmt.Sprintf(`Você é um estrategista de conteúdo especialista em Instagram.
Crie um post de alta conversão sobre: "%s".

Contexto Adicional:
- Público-alvo: %s
- Objetivo do Post: %s
- Tom de voz: %s
- Tamanho da Legenda: %s

Estrutura da Legenda:
1. Gancho inicial (Hook) impactante nas primeiras 2 linhas.
2. Corpo do texto com informações valiosas ou storytelling envolvente.
3. Use quebras de linha para facilitar a leitura (escaneabilidade).
4. Inclua um Call to Action (CTA) claro no final condizente com o objetivo (%s).
5. Use emojis de forma estratégica.

Inclua também de 10 a 15 hashtags relevantes.
Escreva em Português do Brasil.`,
		cfg.Topic,
		orDefault(cfg.Audience, "Geral"),
		cfg.Goal.Value(),
		cfg.Tone.Value(),
		cfg.CaptionLength.Value(),
		cfg.Goal.Value(),
	)
}

func buildEnhancePrompt(draft string) string {
	return fmt.Sprintf(`You are an expert prompt engineer for Instagram content creation.
Rewrite the following user description into a detailed, high-quality prompt suitable for generating a stunning, scroll-stopping Instagram post (image or video).

User description: "%s"

Rules:
1. Focus on lighting (e.g., golden hour, soft studio, cinematic), textures, composition, and a clear, compelling subject.
2. Make it sound like a high-end lifestyle or professional photography shot.
3. Keep it concise but highly descriptive (under 60 words).
4. Output ONLY the enhanced prompt text in English for maximum compatibility with AI models.
5. Do not add quotes, explanations, or prefixes.`, draft)
}

func buildImagePrompt(cfg domain.GenerationConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Create a professional, high-end Instagram post image about: "%s".
The visual style should be: %s.
The mood and tone should be: %s.
Target Audience: %s.

CRITICAL REQUIREMENT:
- You MUST generate the image in the following format: %s.
- This is for an Instagram post, so ensure the composition perfectly fits a %s aspect ratio.

Compositional Guidelines:
- Aesthetic: Modern, clean, and highly engaging for social media.
- Style Specifics: %s aesthetic.
- Lighting: Professional studio lighting or soft natural daylight.
- Quality: Photorealistic, 8k resolution, cinematic depth of field, sharp focus.
- Vibe: Trending on Instagram, influencer-style photography, premium brand aesthetic.
- NO text, NO logos, NO watermarks.`,
		cfg.Topic,
		cfg.VisualStyle.Value(),
		cfg.Tone.Value(),
		orDefault(cfg.Audience, "General Instagram users"),
		ratioDescriptions[cfg.AspectRatio],
		cfg.AspectRatio,
		cfg.VisualStyle.Value(),
	)
	if len(cfg.ReferenceImages) > 0 {
		b.WriteString(" The output image MUST be strongly inspired by the provided reference images in terms of composition, lighting, and color palette.")
	}
	return b.String()
}

func buildVideoPrompt(cfg domain.GenerationConfig) string {
	return fmt.Sprintf(`Cinematic video about: %s.
Style: %s.
Mood: %s.
Target Audience: %s.
High quality, professional lighting, 4k, trending on social media.`,
		cfg.Topic,
		cfg.VisualStyle.Value(),
		cfg.Tone.Value(),
		orDefault(cfg.Audience, "General social media users"),
	)
}
