package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/gemini-post-kit/pkg/credential"
	"github.com/shouni/gemini-post-kit/pkg/domain"
	"github.com/shouni/gemini-post-kit/pkg/generator"
	"golang.org/x/sync/errgroup"
)

// ErrCredentialRequired は動画生成に必要なキー選択が完了しなかったことを示します。
var ErrCredentialRequired = errors.New("paid API key selection is required for video generation")

// 枝の名前と結果。メトリクスのラベルに使います。
const (
	BranchText  = "text"
	BranchMedia = "media"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeAuth    = "auth"
)

// Generator は1サイクルで呼び出す生成処理です。*generator.Client が満たします。
type Generator interface {
	GenerateText(ctx context.Context, cfg domain.GenerationConfig) (*generator.TextResult, error)
	GenerateImage(ctx context.Context, cfg domain.GenerationConfig) (string, error)
	GenerateVideo(ctx context.Context, cfg domain.GenerationConfig) (string, error)
}

// Recorder は枝ごとの所要時間と結果を受け取ります。
type Recorder interface {
	ObserveBranch(branch, media, outcome string, d time.Duration)
}

type Option func(*Orchestrator)

// WithRecorder は枝ごとの計測結果の送り先を設定します。
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.rec = r
	}
}

// Orchestrator はテキストとメディアの2つの生成を同時に走らせ、結果を State に反映します。
type Orchestrator struct {
	gen  Generator
	keys credential.Selector
	rec  Recorder

	// reselect はバックグラウンドで走らせたキー再選択の完了待ちに使います。
	reselect sync.WaitGroup
}

// New は Orchestrator を生成します。keys が nil の場合、キー選択は行いません。
func New(gen Generator, keys credential.Selector, opts ...Option) *Orchestrator {
	o := &Orchestrator{gen: gen, keys: keys}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate は1サイクルを実行し、両方の枝が終わるまで待ちます。
// 戻り値はディスパッチ前の失敗だけで、生成の失敗は State のエラーとして記録されます。
func (o *Orchestrator) Generate(ctx context.Context, cfg domain.GenerationConfig, st *State) error {
	snapshot, err := o.Prepare(ctx, cfg, st)
	if err != nil {
		return err
	}
	o.Run(ctx, snapshot, st)
	return nil
}

// Prepare はディスパッチ前の検証とキー選択を行い、以降の編集から切り離した設定を返します。
// トピックが空なら State には一切触れません。
func (o *Orchestrator) Prepare(ctx context.Context, cfg domain.GenerationConfig, st *State) (domain.GenerationConfig, error) {
	snapshot := cfg.WithDefaults()
	if err := snapshot.Validate(); err != nil {
		return domain.GenerationConfig{}, err
	}

	if snapshot.MediaType == domain.MediaVideo && o.keys != nil {
		if err := o.ensureKey(ctx); err != nil {
			slog.WarnContext(ctx, "動画生成用のキーが選択されていません", "error", err)
			st.rejectCredential()
			return domain.GenerationConfig{}, ErrCredentialRequired
		}
	}
	return snapshot, nil
}

func (o *Orchestrator) ensureKey(ctx context.Context) error {
	ok, err := o.keys.HasSelectedKey(ctx)
	if err == nil && ok {
		return nil
	}
	if err != nil {
		slog.WarnContext(ctx, "キーの選択状態を確認できませんでした", "error", err)
	}
	return o.keys.OpenSelectKey(ctx)
}

// Run は Prepare 済みの設定で2つの枝を起動し、両方の完了を待ちます。
func (o *Orchestrator) Run(ctx context.Context, cfg domain.GenerationConfig, st *State) {
	<-o.Start(ctx, cfg, st)
}

// Start は State を生成中にしてから2つの枝を起動し、すぐに戻ります。
// 返されるチャネルは両方の枝が終わると閉じられます。
func (o *Orchestrator) Start(ctx context.Context, cfg domain.GenerationConfig, st *State) <-chan struct{} {
	ignored := 0
	if cfg.MediaType == domain.MediaVideo && len(cfg.ReferenceImages) > 1 {
		ignored = len(cfg.ReferenceImages) - 1
	}
	st.begin(ignored)

	slog.InfoContext(ctx, "生成サイクルを開始します",
		"media_type", cfg.MediaType,
		"aspect_ratio", cfg.AspectRatio,
		"references", len(cfg.ReferenceImages))

	done := make(chan struct{})
	go func() {
		defer close(done)

		// 片方の失敗でもう片方を止めないよう、WithContext は使わない。
		var g errgroup.Group
		g.Go(func() error {
			o.runText(ctx, cfg, st)
			return nil
		})
		g.Go(func() error {
			o.runMedia(ctx, cfg, st)
			return nil
		})
		_ = g.Wait()

		snap := st.Snapshot()
		slog.InfoContext(ctx, "生成サイクルが完了しました",
			"has_caption", snap.Content.Caption != "",
			"has_media", snap.Content.HasMedia(),
			"errors", len(snap.Status.Errors))
	}()
	return done
}

// Wait はバックグラウンドのキー再選択がすべて終わるまで待ちます。
func (o *Orchestrator) Wait() {
	o.reselect.Wait()
}

func (o *Orchestrator) runText(ctx context.Context, cfg domain.GenerationConfig, st *State) {
	start := time.Now()
	res, err := o.gen.GenerateText(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "テキストの生成に失敗しました", "error", err)
		st.failText()
		o.observe(BranchText, cfg.MediaType, OutcomeFailure, start)
		return
	}
	st.settleText(res.Caption, res.Hashtags)
	o.observe(BranchText, cfg.MediaType, OutcomeSuccess, start)
}

func (o *Orchestrator) runMedia(ctx context.Context, cfg domain.GenerationConfig, st *State) {
	start := time.Now()

	var (
		url string
		err error
	)
	if cfg.MediaType == domain.MediaVideo {
		url, err = o.gen.GenerateVideo(ctx, cfg)
	} else {
		url, err = o.gen.GenerateImage(ctx, cfg)
	}

	if err == nil {
		st.settleMedia(cfg.MediaType, url)
		o.observe(BranchMedia, cfg.MediaType, OutcomeSuccess, start)
		return
	}

	slog.ErrorContext(ctx, "メディアの生成に失敗しました", "media_type", cfg.MediaType, "error", err)

	if generator.IsAuthFailure(err) {
		o.reselectKey(ctx)
		st.failMedia(func(bool) domain.ErrorEntry {
			return domain.ErrorEntry{Kind: domain.ErrorKindAuth, Message: domain.MsgAuthReselect}
		})
		o.observe(BranchMedia, cfg.MediaType, OutcomeAuth, start)
		return
	}

	st.failMedia(func(hasPrior bool) domain.ErrorEntry {
		return mediaFailure(cfg.MediaType, err, hasPrior)
	})
	o.observe(BranchMedia, cfg.MediaType, OutcomeFailure, start)
}

// mediaFailure は既存のエラーの有無に応じてメディア失敗のメッセージを組み立てます。
func mediaFailure(media domain.MediaType, err error, hasPrior bool) domain.ErrorEntry {
	if media == domain.MediaVideo {
		msg := domain.MsgVideoFailedPrefix + providerMessage(err)
		if hasPrior {
			msg = domain.MsgVideoFailedAppended
		}
		return domain.ErrorEntry{Kind: domain.ErrorKindVideo, Message: msg}
	}
	msg := domain.MsgImageFailed
	if hasPrior {
		msg = domain.MsgImageFailedAppended
	}
	return domain.ErrorEntry{Kind: domain.ErrorKindImage, Message: msg}
}

// providerMessage はオペレーションが返したメッセージがあればそれを、なければエラー全体を返します。
func providerMessage(err error) string {
	var opErr *generator.OperationError
	if errors.As(err, &opErr) {
		return opErr.Message
	}
	return err.Error()
}

// reselectKey はキーの再選択を待たずに起動します。結果はログに残すだけです。
func (o *Orchestrator) reselectKey(ctx context.Context) {
	if o.keys == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	o.reselect.Add(1)
	go func() {
		defer o.reselect.Done()
		if err := o.keys.OpenSelectKey(detached); err != nil {
			slog.WarnContext(detached, "キーの再選択に失敗しました", "error", err)
		}
	}()
}

func (o *Orchestrator) observe(branch string, media domain.MediaType, outcome string, start time.Time) {
	if o.rec == nil {
		return
	}
	o.rec.ObserveBranch(branch, string(media), outcome, time.Since(start))
}
