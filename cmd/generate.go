package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/gemini-post-kit/internal/builder"
	"github.com/shouni/gemini-post-kit/pkg/domain"
	"github.com/shouni/gemini-post-kit/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var (
	genCfg     = domain.DefaultGenerationConfig()
	genOutput  string
	genEnhance bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "キャプションとハッシュタグ、画像または動画を1回生成します。",
	Long:  "テキストとメディアを並行して生成し、結果を標準出力に、メディアをローカルまたは gs:// に保存します。",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		if cfg.Generation.CycleTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Generation.CycleTimeout)
			defer cancel()
		}

		app, err := builder.Build(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		req := genCfg.Clone()
		if genEnhance && req.HasTopic() {
			req.Topic = app.Generator.EnhancePrompt(ctx, req.Topic)
			slog.Info("トピックを書き換えました", "topic", req.Topic)
		}

		st := orchestrator.NewState(logProgress)
		start := time.Now()
		if err := app.Orchestrator.Generate(ctx, req, st); err != nil {
			if errors.Is(err, orchestrator.ErrCredentialRequired) {
				return fmt.Errorf("%s: %w", st.Snapshot().Status.Error, err)
			}
			return err
		}
		snap := st.Snapshot()
		slog.Info("生成サイクルが完了しました", "elapsed", time.Since(start).Round(time.Millisecond))

		out := cmd.OutOrStdout()
		content := snap.Content
		if content.Caption != "" {
			fmt.Fprintln(out, content.Caption)
			fmt.Fprintln(out)
			fmt.Fprintln(out, content.HashtagText())
		}
		if snap.Status.Error != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠️", snap.Status.Error)
		}
		if snap.ReferencesIgnored > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "参照画像のうち %d 枚は動画生成で使われませんでした\n", snap.ReferencesIgnored)
		}

		if content.HasMedia() {
			path, err := resolveOutputPath(genOutput, content, time.Now())
			if err != nil {
				return err
			}
			writer, err := selectWriter(app.Writer, cfg.Reference.GCSEnabled, path)
			if err != nil {
				return err
			}
			if err := saveMedia(ctx, app.HTTPClient, writer, content, path); err != nil {
				return err
			}
			fmt.Fprintln(out, "💾", path)
		}

		if content.Caption == "" && !content.HasMedia() {
			return fmt.Errorf("生成に失敗しました: %s", snap.Status.Error)
		}
		return nil
	},
}

func logProgress(s orchestrator.Snapshot) {
	slog.Debug("生成状態が更新されました",
		"version", s.Version,
		"text", s.Status.IsGeneratingText,
		"media", s.Status.IsGeneratingMedia,
		"error", s.Status.Error,
	)
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&genCfg.Topic, "topic", "t", "", "投稿のトピック（必須）")
	f.StringVarP(&genCfg.Audience, "audience", "a", "", "ターゲット層")
	f.StringVar((*string)(&genCfg.Tone), "tone", string(genCfg.Tone), "語り口 ("+optionValues(domain.FormOptions().Tones)+")")
	f.StringVar((*string)(&genCfg.Goal), "goal", string(genCfg.Goal), "投稿の目的 ("+optionValues(domain.FormOptions().Goals)+")")
	f.StringVar((*string)(&genCfg.VisualStyle), "style", string(genCfg.VisualStyle), "画風 ("+optionValues(domain.FormOptions().VisualStyles)+")")
	f.StringVar((*string)(&genCfg.CaptionLength), "length", string(genCfg.CaptionLength), "キャプションの長さ ("+optionValues(domain.FormOptions().CaptionLength)+")")
	f.StringVar((*string)(&genCfg.AspectRatio), "ratio", string(genCfg.AspectRatio), "アスペクト比 ("+optionValues(domain.FormOptions().AspectRatios)+")")
	f.StringVarP((*string)(&genCfg.MediaType), "media", "m", string(genCfg.MediaType), "メディアの種類 ("+optionValues(domain.FormOptions().MediaTypes)+")")
	// data URL はカンマを含むため StringArray で受け取る
	f.StringArrayVarP(&genCfg.ReferenceImages, "ref", "r", nil, "参照画像（data URL, https://, gs://）。複数指定可")
	f.StringVarP(&genOutput, "output", "o", "", "メディアの保存先（ローカル or gs://...）。末尾が / ならディレクトリとして扱います")
	f.BoolVar(&genEnhance, "enhance", false, "生成前にトピックを具体的なプロンプトに書き換えます")
}

func optionValues(opts []domain.Option) string {
	vals := make([]string, 0, len(opts))
	for _, o := range opts {
		vals = append(vals, o.Value)
	}
	return strings.Join(vals, ", ")
}
