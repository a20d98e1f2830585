package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/gemini-post-kit/pkg/domain"
	"google.golang.org/genai"
)

// textResponseSchema はキャプション生成で要求する JSON の形です。
var textResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"caption": {
			Type:        genai.TypeString,
			Description: "Uma legenda envolvente para o Instagram, incluindo emojis relevantes.",
		},
		"hashtags": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Uma lista de 10-15 hashtags relevantes e populares.",
		},
	},
	Required: []string{"caption", "hashtags"},
}

// GenerateText はキャプションとハッシュタグを構造化出力で生成します。
func (c *Client) GenerateText(ctx context.Context, cfg domain.GenerationConfig) (*TextResult, error) {
	resp, err := c.content.GenerateContent(ctx, c.opts.TextModel, genai.Text(buildTextPrompt(cfg)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   textResponseSchema,
		Temperature:      c.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("テキスト生成リクエストに失敗しました: %w", err)
	}
	if resp == nil {
		return nil, ErrNoTextPayload
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return nil, ErrNoTextPayload
	}

	var out TextResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTextPayload, err)
	}
	if out.Hashtags == nil {
		out.Hashtags = []string{}
	}
	return &out, nil
}

// EnhancePrompt は短い下書きを画像・動画向けの詳細なプロンプトに書き換えます。
// 失敗しても下書きをそのまま返すだけで、エラーにはしません。
func (c *Client) EnhancePrompt(ctx context.Context, draft string) string {
	resp, err := c.aiClient.GenerateContent(ctx, c.opts.TextModel, buildEnhancePrompt(draft))
	if err != nil {
		slog.WarnContext(ctx, "プロンプトの改善に失敗しました。下書きをそのまま使います", "error", err)
		return draft
	}
	if resp == nil {
		return draft
	}
	if enhanced := strings.TrimSpace(resp.Text); enhanced != "" {
		return enhanced
	}
	return draft
}
