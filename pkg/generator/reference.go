package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/gemini-post-kit/pkg/imgutil"
	"google.golang.org/genai"
)

var (
	ErrUnsupportedReference = errors.New("unsupported reference image")
	ErrNotImage             = errors.New("reference is not an image")
)

// ReferenceResolver は参照画像の文字列表現（data URL / http(s) / gs://）をバイト列に解決します。
type ReferenceResolver struct {
	httpClient HTTPClient
	reader     ReferenceReader
	cache      ImageCacher
	cacheTTL   time.Duration
	maxBytes   int
}

// NewReferenceResolver は依存関係を注入して ReferenceResolver を初期化します。
// httpClient / reader / cache はいずれも nil を許容し、その場合は該当スキームを扱いません。
func NewReferenceResolver(httpClient HTTPClient, reader ReferenceReader, cache ImageCacher, cacheTTL time.Duration, maxBytes int) *ReferenceResolver {
	return &ReferenceResolver{
		httpClient: httpClient,
		reader:     reader,
		cache:      cache,
		cacheTTL:   cacheTTL,
		maxBytes:   maxBytes,
	}
}

// Resolve は参照画像1件を MIME タイプ付きのバイト列にします。
func (r *ReferenceResolver) Resolve(ctx context.Context, ref string) (*genai.Blob, error) {
	switch {
	case imgutil.IsDataURL(ref):
		mimeType, data, err := imgutil.ParseDataURL(ref)
		if err != nil {
			return nil, err
		}
		return r.toBlob(data, mimeType), nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err := r.fetchRemote(ctx, ref)
		if err != nil {
			return nil, err
		}
		return r.sniffBlob(data)
	case strings.HasPrefix(ref, "gs://"):
		data, err := r.readStorage(ctx, ref)
		if err != nil {
			return nil, err
		}
		return r.sniffBlob(data)
	default:
		return nil, ErrUnsupportedReference
	}
}

// Parts は参照画像を順番どおり InlineData パーツに変換します。
// 解決できなかった参照は警告ログを残してスキップし、生成自体は続行します。
func (r *ReferenceResolver) Parts(ctx context.Context, refs []string) []*genai.Part {
	parts := make([]*genai.Part, 0, len(refs))
	for i, ref := range refs {
		if ref == "" {
			continue
		}
		blob, err := r.Resolve(ctx, ref)
		if err != nil {
			slog.WarnContext(ctx, "参照画像の読み込みに失敗しました。スキップします", "index", i, "error", err)
			continue
		}
		parts = append(parts, &genai.Part{InlineData: blob})
	}
	return parts
}

func (r *ReferenceResolver) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	if r.cache != nil {
		if cached, found := r.cache.Get(cacheKeyReference + rawURL); found {
			if data, ok := cached.([]byte); ok {
				return data, nil
			}
			slog.WarnContext(ctx, "キャッシュデータが不正な型です", "url", rawURL, "type", fmt.Sprintf("%T", cached))
		}
	}
	if r.httpClient == nil {
		return nil, fmt.Errorf("%w: http client not configured", ErrUnsupportedReference)
	}
	if safe, err := isSafeURL(rawURL); err != nil || !safe {
		return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
	}

	data, err := r.httpClient.FetchBytes(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("参照画像のダウンロードに失敗しました: %w", err)
	}
	if r.cache != nil {
		r.cache.Set(cacheKeyReference+rawURL, data, r.cacheTTL)
	}
	return data, nil
}

func (r *ReferenceResolver) readStorage(ctx context.Context, uri string) ([]byte, error) {
	if r.reader == nil {
		return nil, fmt.Errorf("%w: storage reader not configured", ErrUnsupportedReference)
	}
	rc, err := r.reader.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *ReferenceResolver) sniffBlob(data []byte) (*genai.Blob, error) {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}
	return r.toBlob(data, mimeType), nil
}

func (r *ReferenceResolver) toBlob(data []byte, mimeType string) *genai.Blob {
	data, mimeType = imgutil.ShrinkIfLarger(data, mimeType, r.maxBytes)
	return &genai.Blob{MIMEType: mimeType, Data: data}
}
