package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/gemini-post-kit/pkg/domain"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// GenerateImage は投稿用の画像を1枚生成し、data URL として返します。
func (c *Client) GenerateImage(ctx context.Context, cfg domain.GenerationConfig) (string, error) {
	parts := []*genai.Part{{Text: buildImagePrompt(cfg)}}
	refParts := c.refs.Parts(ctx, cfg.ReferenceImages)
	parts = append(parts, refParts...)

	slog.InfoContext(ctx, "Gemini画像生成リクエスト準備中",
		"model", c.opts.ImageModel,
		"aspect_ratio", cfg.AspectRatio,
		"ref_count", len(cfg.ReferenceImages),
		"ref_parts", len(refParts))

	resp, err := c.aiClient.GenerateWithParts(ctx, c.opts.ImageModel, parts, gemini.GenerateOptions{
		AspectRatio: string(cfg.AspectRatio),
	})
	if err != nil {
		return "", fmt.Errorf("画像生成リクエストに失敗しました: %w", err)
	}
	if resp == nil {
		return "", ErrNoImage
	}

	return imageFromResponse(resp.RawResponse)
}
