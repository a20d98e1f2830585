package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/gemini-post-kit/pkg/domain"
	"google.golang.org/genai"
)

// OperationError は動画生成オペレーションが失敗で終了したことを表します。
type OperationError struct {
	Message string
}

func (e *OperationError) Error() string {
	return e.Message
}

// MapVideoAspectRatio は投稿のアスペクト比を Veo が扱える2種類に寄せます。
// 16:9 だけが横長のまま残り、それ以外はすべて 9:16 になります。
func MapVideoAspectRatio(r domain.AspectRatio) string {
	if r == domain.RatioLandscape {
		return string(domain.RatioLandscape)
	}
	return string(domain.RatioStory)
}

// startingFrame は最初の参照画像だけを開始フレームとして使います。
func (c *Client) startingFrame(ctx context.Context, refs []string) *genai.Image {
	if len(refs) == 0 {
		return nil
	}
	if len(refs) > 1 {
		slog.DebugContext(ctx, "動画では最初の参照画像のみを使用します", "ignored", len(refs)-1)
	}
	blob, err := c.refs.Resolve(ctx, refs[0])
	if err != nil {
		slog.WarnContext(ctx, "開始フレームの読み込みに失敗しました。テキストのみで続行します", "error", err)
		return nil
	}
	return &genai.Image{ImageBytes: blob.Data, MIMEType: blob.MIMEType}
}

// GenerateVideo は Veo で動画を生成し、そのまま取得できる URI を返します。
// オペレーションが完了するまで PollInterval ごとに状態を問い合わせます。
func (c *Client) GenerateVideo(ctx context.Context, cfg domain.GenerationConfig) (string, error) {
	videoConfig := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     c.opts.VideoResolution,
		AspectRatio:    MapVideoAspectRatio(cfg.AspectRatio),
	}

	op, err := c.video.GenerateVideos(ctx, c.opts.VideoModel, buildVideoPrompt(cfg), c.startingFrame(ctx, cfg.ReferenceImages), videoConfig)
	if err != nil {
		return "", fmt.Errorf("動画生成の開始に失敗しました: %w", err)
	}
	if op == nil {
		return "", fmt.Errorf("動画生成オペレーションが返されませんでした")
	}

	slog.InfoContext(ctx, "動画生成オペレーションを開始しました", "operation", op.Name, "aspect_ratio", videoConfig.AspectRatio)

	op, err = c.waitOperation(ctx, op)
	if err != nil {
		return "", err
	}

	if op.Error != nil {
		return "", operationError(op.Error)
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 ||
		op.Response.GeneratedVideos[0].Video == nil || op.Response.GeneratedVideos[0].Video.URI == "" {
		return "", ErrNoVideoURI
	}

	return withQueryKey(op.Response.GeneratedVideos[0].Video.URI, c.apiKey())
}

func (c *Client) waitOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	for attempt := 0; !op.Done; attempt++ {
		if c.opts.MaxPollAttempts > 0 && attempt >= c.opts.MaxPollAttempts {
			return nil, fmt.Errorf("%w (%d attempts)", ErrPollExhausted, attempt)
		}

		timer := time.NewTimer(c.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		next, err := c.ops.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, fmt.Errorf("動画生成オペレーションの取得に失敗しました: %w", err)
		}
		if next == nil {
			return nil, fmt.Errorf("動画生成オペレーションの状態が空でした")
		}
		op = next
		slog.DebugContext(ctx, "動画生成オペレーションを確認しました", "operation", op.Name, "attempt", attempt+1, "done", op.Done)
	}
	return op, nil
}

// operationError はオペレーションのエラーからメッセージを取り出します。
// メッセージ自体が JSON の場合は入れ子の error.message を優先します。
func operationError(opErr map[string]any) error {
	var raw string
	switch v := opErr["message"].(type) {
	case string:
		raw = v
	case nil:
		b, _ := json.Marshal(opErr)
		raw = string(b)
	default:
		b, _ := json.Marshal(v)
		raw = string(b)
	}

	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return &OperationError{Message: envelope.Error.Message}
	}
	return &OperationError{Message: "Veo Error: " + raw}
}
