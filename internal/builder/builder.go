// Package builder は設定から各コンポーネントを組み立てます。
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shouni/gemini-post-kit/internal/config"
	"github.com/shouni/gemini-post-kit/internal/metrics"
	"github.com/shouni/gemini-post-kit/internal/server"
	"github.com/shouni/gemini-post-kit/internal/store"
	"github.com/shouni/gemini-post-kit/pkg/credential"
	"github.com/shouni/gemini-post-kit/pkg/generator"
	"github.com/shouni/gemini-post-kit/pkg/orchestrator"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"
)

// AppContext はコマンドの実行に必要な共通コンポーネントを保持します。
type AppContext struct {
	Config       *config.Config
	HTTPClient   httpkit.ClientInterface
	Generator    *generator.Client
	Orchestrator *orchestrator.Orchestrator
	// Reader は GCS が有効な場合のみ設定されます。
	// Writer は常に設定され、GCS が無効ならローカルのみを扱います。
	Reader remoteio.InputReader
	Writer remoteio.OutputWriter

	closers []func() error
}

// Build は設定に従って AppContext を初期化します。
func Build(ctx context.Context, cfg *config.Config, opts ...orchestrator.Option) (*AppContext, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("gemini.api_key (GEMINI_API_KEY) is required")
	}

	app := &AppContext{
		Config:     cfg,
		HTTPClient: httpkit.New(cfg.Reference.HTTPTimeout),
		Writer:     remoteio.NewUniversalIOWriter(nil, nil),
	}

	if cfg.Reference.GCSEnabled {
		if err := app.initializeRemoteIO(ctx); err != nil {
			return nil, err
		}
	}

	var reader generator.ReferenceReader
	if app.Reader != nil {
		reader = app.Reader
	}
	gen, err := InitializeGenerator(ctx, cfg, app.HTTPClient, reader)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Generator = gen

	keys, err := InitializeSelector(cfg.Credential)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Orchestrator = orchestrator.New(gen, keys, opts...)
	return app, nil
}

// initializeRemoteIO は GCS を読み書きする Reader と Writer を設定します。
// ファクトリは AppContext.Close で閉じられます。
func (a *AppContext) initializeRemoteIO(ctx context.Context) error {
	factory, err := gcsfactory.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	reader, err := factory.InputReader()
	if err != nil {
		factory.Close()
		return fmt.Errorf("failed to create input reader: %w", err)
	}
	writer, err := factory.OutputWriter()
	if err != nil {
		factory.Close()
		return fmt.Errorf("failed to create output writer: %w", err)
	}
	a.Reader = reader
	a.Writer = writer
	a.closers = append(a.closers, factory.Close)
	return nil
}

// InitializeGenerator は Gemini のクライアントと参照画像の解決処理から generator.Client を作ります。
func InitializeGenerator(ctx context.Context, cfg *config.Config, httpClient generator.HTTPClient, reader generator.ReferenceReader) (*generator.Client, error) {
	temperature := genai.Ptr(cfg.Gemini.Temperature)

	aiClient, err := generator.NewAIClient(ctx, cfg.Gemini.APIKey, temperature)
	if err != nil {
		return nil, err
	}
	gc, err := generator.NewGenAIClient(ctx, cfg.Gemini.APIKey)
	if err != nil {
		return nil, err
	}

	// 参照画像のダウンロード結果を保持するキャッシュ
	imgCache := cache.New(cfg.Reference.CacheTTL, cfg.Reference.CacheCleanup)
	refs := generator.NewReferenceResolver(httpClient, reader, imgCache, cfg.Reference.CacheTTL, cfg.Reference.MaxBytes)

	apiKey := cfg.Gemini.APIKey
	return generator.NewClientFromGenAI(aiClient, gc, refs, generator.Options{
		TextModel:       cfg.Gemini.TextModel,
		ImageModel:      cfg.Gemini.ImageModel,
		VideoModel:      cfg.Gemini.VideoModel,
		VideoResolution: cfg.Gemini.VideoResolution,
		Temperature:     temperature,
		PollInterval:    cfg.Gemini.PollInterval,
		MaxPollAttempts: cfg.Gemini.MaxPollAttempts,
		APIKey:          func() string { return apiKey },
	})
}

// InitializeSelector はキー選択機能を作ります。無効な場合は nil を返します。
func InitializeSelector(cfg config.CredentialConfig) (credential.Selector, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	sel, err := credential.NewEnvSelector(cfg.EnvVar, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential selector: %w", err)
	}
	return sel, nil
}

// InitializeStore は設定されたドライバの Store を作ります。
// Redis の場合は接続を閉じる関数も返します。
func InitializeStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func() error, error) {
	switch cfg.Driver {
	case "redis":
		rdb, err := store.NewRedisClient(ctx, store.RedisOptions{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisStore(rdb, cfg.TTL), rdb.Close, nil
	case "memory", "":
		return store.NewMemoryStore(cfg.TTL), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
}

// InitializeMetrics は専用のレジストリにコレクタを登録し、/metrics 用のハンドラと一緒に返します。
func InitializeMetrics() (*metrics.Metrics, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg), promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// BuildServer はサービスとして起動するためのすべての依存関係を組み立てます。
func BuildServer(ctx context.Context, cfg *config.Config) (*AppContext, *server.Server, error) {
	var (
		m          *metrics.Metrics
		promHandle http.Handler
		orchOpts   []orchestrator.Option
	)
	if cfg.Metrics.Enabled {
		m, promHandle = InitializeMetrics()
		orchOpts = append(orchOpts, orchestrator.WithRecorder(m))
	}

	app, err := Build(ctx, cfg, orchOpts...)
	if err != nil {
		return nil, nil, err
	}

	st, closeStore, err := InitializeStore(ctx, cfg.Store)
	if err != nil {
		app.Close()
		return nil, nil, err
	}
	app.closers = append(app.closers, closeStore)

	srv := server.New(server.Deps{
		Orchestrator:   app.Orchestrator,
		Enhancer:       app.Generator,
		Store:          st,
		Fetcher:        app.HTTPClient,
		Metrics:        m,
		MetricsHandler: promHandle,
	}, server.Options{
		Env:          cfg.App.Env,
		CycleTimeout: cfg.Generation.CycleTimeout,
		SessionTTL:   cfg.Store.TTL,
		MetricsPath:  cfg.Metrics.Path,
		CORS: server.CORSConfig{
			AllowedOrigins: cfg.Security.CORS.AllowedOrigins,
			AllowedMethods: cfg.Security.CORS.AllowedMethods,
			AllowedHeaders: cfg.Security.CORS.AllowedHeaders,
		},
		RateLimit: server.RateLimitConfig{
			Enabled:           cfg.Security.RateLimit.Enabled,
			RequestsPerSecond: cfg.Security.RateLimit.RequestsPerSecond,
			Burst:             cfg.Security.RateLimit.Burst,
		},
	})
	return app, srv, nil
}

// Close は保持している接続を閉じます。
func (a *AppContext) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		slog.Warn("リソースの解放に失敗しました", "errors", len(errs))
	}
	return errors.Join(errs...)
}

// WaitTimeout は fn の完了を最大 d まで待ちます。時間内に終われば true を返します。
func WaitTimeout(fn func(), d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
