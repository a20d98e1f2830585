package generator

import (
	"context"
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// Client はテキスト・画像・動画の3つの生成処理をまとめた窓口です。
// 各メソッドは設定のスナップショットだけを受け取り、状態を持ちません。
// 画像生成とプロンプト改善は aiClient を、スキーマ付きのテキスト生成と Veo は genai を直接使います。
type Client struct {
	aiClient gemini.GenerativeModel
	content  ContentModel
	video   VideoModel
	ops     OperationPoller
	refs    *ReferenceResolver
	opts    Options
}

// NewClient は依存関係を注入して Client を初期化します。
func NewClient(aiClient gemini.GenerativeModel, content ContentModel, video VideoModel, ops OperationPoller, refs *ReferenceResolver, opts Options) (*Client, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (gemini.GenerativeModel) is required")
	}
	if content == nil {
		return nil, fmt.Errorf("content model is required")
	}
	if video == nil {
		return nil, fmt.Errorf("video model is required")
	}
	if ops == nil {
		return nil, fmt.Errorf("operation poller is required")
	}
	// refs は nil を許容（data URL のみで動作）
	if refs == nil {
		refs = NewReferenceResolver(nil, nil, nil, 0, 0)
	}

	return &Client{
		aiClient: aiClient,
		content:  content,
		video:    video,
		ops:      ops,
		refs:     refs,
		opts:     opts.withDefaults(),
	}, nil
}

// NewGenAIClient は Gemini API バックエンドの genai クライアントを生成します。
func NewGenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai クライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}

// NewAIClient は画像生成とプロンプト改善に使う gemini クライアントを初期化します。
// temperature が nil ならクライアントのデフォルトを使います。
func NewAIClient(ctx context.Context, apiKey string, temperature *float32) (gemini.GenerativeModel, error) {
	aiClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      apiKey,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// NewClientFromGenAI は genai.Client の Models / Operations をそのまま使って Client を組み立てます。
func NewClientFromGenAI(aiClient gemini.GenerativeModel, gc *genai.Client, refs *ReferenceResolver, opts Options) (*Client, error) {
	if gc == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	return NewClient(aiClient, gc.Models, gc.Models, gc.Operations, refs, opts)
}

func (c *Client) apiKey() string {
	if c.opts.APIKey == nil {
		return ""
	}
	return c.opts.APIKey()
}
