// Package server は投稿生成の画面と JSON API を提供します。
package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/shouni/gemini-post-kit/internal/metrics"
	"github.com/shouni/gemini-post-kit/internal/store"
	"github.com/shouni/gemini-post-kit/pkg/domain"
	"github.com/shouni/gemini-post-kit/pkg/orchestrator"
)

//go:embed templates/*.html
var templateFS embed.FS

// Orchestrator は1サイクルの検証と起動を行います。*orchestrator.Orchestrator が満たします。
type Orchestrator interface {
	Prepare(ctx context.Context, cfg domain.GenerationConfig, st *orchestrator.State) (domain.GenerationConfig, error)
	Start(ctx context.Context, cfg domain.GenerationConfig, st *orchestrator.State) <-chan struct{}
}

// Enhancer は下書きプロンプトを書き換えます。
type Enhancer interface {
	EnhancePrompt(ctx context.Context, draft string) string
}

// MediaFetcher は生成済み動画のダウンロードに使います。
type MediaFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Deps はサーバーが利用するコンポーネントです。
type Deps struct {
	Orchestrator Orchestrator
	Enhancer     Enhancer
	Store        store.Store
	Fetcher      MediaFetcher
	// Metrics と MetricsHandler は nil 可
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

// Options はサーバーの挙動に関する設定です。
type Options struct {
	Env            string
	CycleTimeout   time.Duration
	SessionTTL     time.Duration
	MaxUploadBytes int64
	MetricsPath    string
	CORS           CORSConfig
	RateLimit      RateLimitConfig
}

const defaultMaxUploadBytes = 20 << 20

// Server は gin のエンジンと生成中のセッションを管理します。
type Server struct {
	engine *gin.Engine
	deps   Deps
	opts   Options

	// live はセッション ID ごとの State です。再生成時に前回の結果を引き継ぐために保持します。
	live *cache.Cache
	// inflight は生成中のセッション ID です。
	inflight sync.Map
	cycles   sync.WaitGroup

	now func() time.Time
}

// New はルーティングとミドルウェアを設定した Server を返します。
func New(deps Deps, opts Options) *Server {
	if opts.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	s := &Server{
		engine: gin.New(),
		deps:   deps,
		opts:   opts,
		live:   cache.New(opts.SessionTTL, 10*time.Minute),
		now:    time.Now,
	}
	s.engine.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler は http.Server に渡すハンドラです。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Wait は実行中の生成サイクルがすべて終わるまで待ちます。
func (s *Server) Wait() {
	s.cycles.Wait()
}

func (s *Server) setupMiddleware() {
	s.engine.Use(Recovery())
	s.engine.Use(RequestID())
	s.engine.Use(AccessLog())
	s.engine.Use(CORS(s.opts.CORS))
	if s.deps.Metrics != nil {
		s.engine.Use(Metrics(s.deps.Metrics))
	}
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.index)
	s.engine.GET("/health", s.health)
	if s.deps.MetricsHandler != nil {
		s.engine.GET(s.opts.MetricsPath, gin.WrapH(s.deps.MetricsHandler))
	}

	throttle := Throttle(s.opts.RateLimit)

	api := s.engine.Group("/api")
	{
		api.GET("/options", s.options)
		api.GET("/topics/random", s.randomTopic)

		api.POST("/generations", throttle, s.createGeneration)
		api.GET("/generations/:id", s.getGeneration)
		api.GET("/generations/:id/download", s.downloadMedia)

		api.POST("/prompts/enhance", throttle, s.enhancePrompt)
		api.POST("/references", s.uploadReferences)
	}
}
