// Package store は生成状態のスナップショットを保存します。
package store

import (
	"context"
	"errors"

	"github.com/shouni/gemini-post-kit/pkg/orchestrator"
)

// ErrNotFound は指定された ID の生成状態が存在しないことを示します。
var ErrNotFound = errors.New("generation not found")

// Store は生成 ID ごとに最新のスナップショットを保持します。
type Store interface {
	Save(ctx context.Context, id string, snap orchestrator.Snapshot) error
	Load(ctx context.Context, id string) (orchestrator.Snapshot, error)
}
