package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shouni/gemini-post-kit/internal/store"
	"github.com/shouni/gemini-post-kit/pkg/credential"
	"github.com/shouni/gemini-post-kit/pkg/domain"
	"github.com/shouni/gemini-post-kit/pkg/generator"
	"github.com/shouni/gemini-post-kit/pkg/orchestrator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mocks ---

// mockGenerator は release が閉じられるまで応答を保留できる生成器です。
type mockGenerator struct {
	release chan struct{}

	textErr  error
	imageURL string
	videoURL string
	mediaErr error
}

func (m *mockGenerator) wait(ctx context.Context) {
	if m.release == nil {
		return
	}
	select {
	case <-m.release:
	case <-ctx.Done():
	}
}

func (m *mockGenerator) GenerateText(ctx context.Context, cfg domain.GenerationConfig) (*generator.TextResult, error) {
	m.wait(ctx)
	if m.textErr != nil {
		return nil, m.textErr
	}
	return &generator.TextResult{Caption: "Legenda de teste", Hashtags: []string{"#teste"}}, nil
}

func (m *mockGenerator) GenerateImage(ctx context.Context, cfg domain.GenerationConfig) (string, error) {
	m.wait(ctx)
	if m.mediaErr != nil {
		return "", m.mediaErr
	}
	return m.imageURL, nil
}

func (m *mockGenerator) GenerateVideo(ctx context.Context, cfg domain.GenerationConfig) (string, error) {
	m.wait(ctx)
	if m.mediaErr != nil {
		return "", m.mediaErr
	}
	return m.videoURL, nil
}

type mockEnhancer struct {
	drafts []string
}

func (m *mockEnhancer) EnhancePrompt(ctx context.Context, draft string) string {
	m.drafts = append(m.drafts, draft)
	return "enhanced: " + draft
}

type mockFetcher struct {
	mu   sync.Mutex
	data []byte
	err  error
	urls []string
}

func (m *mockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, url)
	return m.data, m.err
}

// --- Helpers ---

type testServer struct {
	*Server
	gen      *mockGenerator
	enhancer *mockEnhancer
	fetcher  *mockFetcher
	store    *store.MemoryStore
}

func newTestServer(t *testing.T, gen *mockGenerator, keys credential.Selector, opts Options) *testServer {
	t.Helper()
	if gen == nil {
		gen = &mockGenerator{imageURL: "data:image/png;base64,iVBORw0KGgo=", videoURL: "https://example.com/video.mp4?key=k"}
	}
	mem := store.NewMemoryStore(time.Hour)
	enhancer := &mockEnhancer{}
	fetcher := &mockFetcher{data: []byte("mp4-bytes")}

	s := New(Deps{
		Orchestrator: orchestrator.New(gen, keys),
		Enhancer:     enhancer,
		Store:        mem,
		Fetcher:      fetcher,
	}, opts)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	t.Cleanup(s.Wait)

	return &testServer{Server: s, gen: gen, enhancer: enhancer, fetcher: fetcher, store: mem}
}

var errRefused = errors.New("user closed the dialog")

// refusingSelector はキーが未選択で、選択も拒否されるホストです。
type refusingSelector struct{}

func (refusingSelector) HasSelectedKey(ctx context.Context) (bool, error) { return false, nil }
func (refusingSelector) OpenSelectKey(ctx context.Context) error          { return errRefused }
