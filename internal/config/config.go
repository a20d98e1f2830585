// Package config はアプリケーション設定の定義と読み込みを行います。
package config

import (
	"net"
	"strconv"
	"time"
)

// Config はアプリケーション設定のルートです。
type Config struct {
	App        AppConfig        `yaml:"app" mapstructure:"app"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Credential CredentialConfig `yaml:"credential" mapstructure:"credential"`
	Reference  ReferenceConfig  `yaml:"reference" mapstructure:"reference"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Security   SecurityConfig   `yaml:"security" mapstructure:"security"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig は HTTP サーバーの設定です。
type HTTPServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// GeminiConfig は生成モデルの設定です。
type GeminiConfig struct {
	APIKey          string        `yaml:"api_key" mapstructure:"api_key"`
	TextModel       string        `yaml:"text_model" mapstructure:"text_model"`
	ImageModel      string        `yaml:"image_model" mapstructure:"image_model"`
	VideoModel      string        `yaml:"video_model" mapstructure:"video_model"`
	VideoResolution string        `yaml:"video_resolution" mapstructure:"video_resolution"`
	Temperature     float32       `yaml:"temperature" mapstructure:"temperature"`
	PollInterval    time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	// MaxPollAttempts が 0 以下なら上限なし
	MaxPollAttempts int `yaml:"max_poll_attempts" mapstructure:"max_poll_attempts"`
}

// CredentialConfig は動画生成前のキー選択の設定です。
// Enabled が false の場合、キー選択機能のないホストとして動作します。
type CredentialConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	EnvVar  string `yaml:"env_var" mapstructure:"env_var"`
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`
}

// ReferenceConfig は参照画像の取得設定です。
type ReferenceConfig struct {
	HTTPTimeout  time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	CacheCleanup time.Duration `yaml:"cache_cleanup" mapstructure:"cache_cleanup"`
	MaxBytes     int           `yaml:"max_bytes" mapstructure:"max_bytes"`
	// GCSEnabled が true なら gs:// の参照画像と出力先を扱います。
	GCSEnabled bool `yaml:"gcs_enabled" mapstructure:"gcs_enabled"`
}

type GenerationConfig struct {
	// CycleTimeout が 0 なら1サイクルに時間制限を設けません。
	CycleTimeout time.Duration `yaml:"cycle_timeout" mapstructure:"cycle_timeout"`
}

// StoreConfig は生成状態の保存先の設定です。
type StoreConfig struct {
	Driver string        `yaml:"driver" mapstructure:"driver"`
	TTL    time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Redis  RedisConfig   `yaml:"redis" mapstructure:"redis"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

type SecurityConfig struct {
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// RateLimitConfig は生成リクエストの流量制限です。
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Addr は HTTP サーバーの待ち受けアドレスです。
func (c HTTPServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
