package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/shouni/go-utils/envutil"
)

// ErrNoKeySelected は有料キーが選択されていないことを示します。
var ErrNoKeySelected = errors.New("no paid API key selected")

// Selector はホスト環境が提供するキー選択機能です。
// 機能がない環境では Selector 自体を nil にします。
type Selector interface {
	// HasSelectedKey は有料キーが選択済みかを返します。
	HasSelectedKey(ctx context.Context) (bool, error)
	// OpenSelectKey はキーの選択をやり直します。
	OpenSelectKey(ctx context.Context) error
}

// EnvSelector は環境変数またはキーファイルから有料キーを読み出す Selector です。
// 問い合わせのたびに読み直すので、プロセスを再起動せずにキーを差し替えられます。
type EnvSelector struct {
	envVar  string
	keyFile string

	mu  sync.RWMutex
	key string
}

// NewEnvSelector は EnvSelector を初期化します。envVar と keyFile の両方が空の場合はエラーを返します。
func NewEnvSelector(envVar, keyFile string) (*EnvSelector, error) {
	if envVar == "" && keyFile == "" {
		return nil, fmt.Errorf("credential source is required (env var or key file)")
	}
	return &EnvSelector{envVar: envVar, keyFile: keyFile}, nil
}

func (s *EnvSelector) HasSelectedKey(ctx context.Context) (bool, error) {
	key, err := s.read()
	if err != nil {
		return false, err
	}
	s.store(key)
	return key != "", nil
}

func (s *EnvSelector) OpenSelectKey(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := s.read()
	if err != nil {
		return err
	}
	s.store(key)
	if key == "" {
		return ErrNoKeySelected
	}
	return nil
}

// Key は最後に読み出したキーを返します。
func (s *EnvSelector) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

func (s *EnvSelector) store(key string) {
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
}

// read は環境変数を優先し、なければキーファイルを読みます。
func (s *EnvSelector) read() (string, error) {
	if s.envVar != "" {
		if v := strings.TrimSpace(envutil.GetEnv(s.envVar, "")); v != "" {
			return v, nil
		}
	}
	if s.keyFile == "" {
		return "", nil
	}
	b, err := os.ReadFile(s.keyFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("キーファイルの読み込みに失敗しました: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
