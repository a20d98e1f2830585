package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/shouni/gemini-post-kit/pkg/domain"
	"github.com/shouni/gemini-post-kit/pkg/generator"
)

// --- Mocks ---

type mockGenerator struct {
	mu    sync.Mutex
	calls []string
	cfgs  []domain.GenerationConfig

	text  func(ctx context.Context) (*generator.TextResult, error)
	image func(ctx context.Context) (string, error)
	video func(ctx context.Context) (string, error)
}

func (m *mockGenerator) record(name string, cfg domain.GenerationConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	m.cfgs = append(m.cfgs, cfg)
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockGenerator) GenerateText(ctx context.Context, cfg domain.GenerationConfig) (*generator.TextResult, error) {
	m.record("text", cfg)
	if m.text != nil {
		return m.text(ctx)
	}
	return &generator.TextResult{Caption: "Legenda", Hashtags: []string{"#a", "#b"}}, nil
}

func (m *mockGenerator) GenerateImage(ctx context.Context, cfg domain.GenerationConfig) (string, error) {
	m.record("image", cfg)
	if m.image != nil {
		return m.image(ctx)
	}
	return "data:image/png;base64,AAAA", nil
}

func (m *mockGenerator) GenerateVideo(ctx context.Context, cfg domain.GenerationConfig) (string, error) {
	m.record("video", cfg)
	if m.video != nil {
		return m.video(ctx)
	}
	return "https://example.com/video.mp4?key=k", nil
}

type mockSelector struct {
	mu       sync.Mutex
	selected bool
	hasErr   error
	openErr  error
	opens    int
}

func (m *mockSelector) HasSelectedKey(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected, m.hasErr
}

func (m *mockSelector) OpenSelectKey(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	return m.openErr
}

func (m *mockSelector) openCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

type branchObservation struct {
	branch, media, outcome string
}

type mockRecorder struct {
	mu   sync.Mutex
	seen []branchObservation
}

func (m *mockRecorder) ObserveBranch(branch, media, outcome string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, branchObservation{branch, media, outcome})
}

// --- Helpers ---

func validConfig(media domain.MediaType) domain.GenerationConfig {
	cfg := domain.DefaultGenerationConfig()
	cfg.Topic = "Dicas de produtividade"
	cfg.MediaType = media
	return cfg
}

// snapshotLog は Observer に渡されたスナップショットを順番に記録します。
type snapshotLog struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (l *snapshotLog) observe(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snaps = append(l.snaps, s)
}

func (l *snapshotLog) all() []Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Snapshot, len(l.snaps))
	copy(out, l.snaps)
	return out
}
