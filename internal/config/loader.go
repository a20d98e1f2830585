package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultPath は設定ファイルの既定の場所です。
const DefaultPath = "configs/config.yaml"

var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load は設定を読み込みます。
// 優先順位は 環境変数 > 設定ファイル > 既定値 です。path が空なら DefaultPath を読み、存在しなくてもエラーにしません。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	optional := path == ""
	if optional {
		path = DefaultPath
	}
	if err := loadConfigFile(v, path, optional); err != nil {
		return nil, err
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// AI Studio 由来の API_KEY も受け付ける
	if err := v.BindEnv("gemini.api_key", "GEMINI_API_KEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFile はファイルを読み、${VAR:default} を展開してから viper に渡します。
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := v.ReadConfig(strings.NewReader(expandEnv(string(content)))); err != nil {
		return fmt.Errorf("failed to read processed config %s: %w", path, err)
	}
	v.SetConfigFile(path)
	return nil
}

// expandEnv は ${VAR} と ${VAR:default} を環境変数の値で置き換えます。
// 未定義でデフォルトもない場合は元の文字列を残します。
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := envPattern.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}

// Validate は値の組み合わせを検証します。
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported store driver: %q", c.Store.Driver)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %q", c.Log.Format)
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 1 {
		return fmt.Errorf("gemini.temperature must be between 0 and 1: %v", c.Gemini.Temperature)
	}
	if c.Credential.Enabled && c.Credential.EnvVar == "" && c.Credential.KeyFile == "" {
		return fmt.Errorf("credential.env_var or credential.key_file is required when credential.enabled is true")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gemini-post-kit")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "120s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "15s")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.text_model", "gemini-2.5-flash")
	v.SetDefault("gemini.image_model", "gemini-2.5-flash-image")
	v.SetDefault("gemini.video_model", "veo-3.1-fast-generate-preview")
	v.SetDefault("gemini.video_resolution", "720p")
	v.SetDefault("gemini.temperature", 0.8)
	v.SetDefault("gemini.poll_interval", "5s")
	v.SetDefault("gemini.max_poll_attempts", 120)

	v.SetDefault("credential.enabled", false)
	v.SetDefault("credential.env_var", "GEMINI_PAID_API_KEY")
	v.SetDefault("credential.key_file", "")

	v.SetDefault("reference.http_timeout", "30s")
	v.SetDefault("reference.cache_ttl", "1h")
	v.SetDefault("reference.cache_cleanup", "1h")
	v.SetDefault("reference.max_bytes", 4<<20)
	v.SetDefault("reference.gcs_enabled", false)

	v.SetDefault("generation.cycle_timeout", "0s")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.ttl", "24h")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.pool_size", 10)
	v.SetDefault("store.redis.dial_timeout", "5s")
	v.SetDefault("store.redis.read_timeout", "3s")
	v.SetDefault("store.redis.write_timeout", "3s")

	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "X-Request-ID"})
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_second", 1.0)
	v.SetDefault("security.rate_limit.burst", 5)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
