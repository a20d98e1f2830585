package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/gemini-post-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

const appName = "gemini-post-kit"

var (
	logLevel string
	// cfg は preRunAppE で読み込まれた設定です。
	cfg *config.Config
)

// addAppFlags はすべてのサブコマンドで使う永続フラグを定義します。
// --config と --verbose は clibase が定義します。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.Short = "Gemini でSNS投稿のキャプション・画像・動画を生成します。"
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
}

// preRunAppE は設定を読み込み、ロガーを初期化します。
func preRunAppE(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(clibase.Flags.ConfigFile)
	if err != nil {
		return err
	}
	applyLogFlags(loaded, logLevel, clibase.Flags.Verbose)
	slog.SetDefault(config.NewLogger(os.Stderr, loaded.Log))
	cfg = loaded
	return nil
}

// applyLogFlags はフラグ指定のログレベルを設定に反映します。--log-level は --verbose より優先されます。
func applyLogFlags(c *config.Config, level string, verbose bool) {
	switch {
	case level != "":
		c.Log.Level = level
	case verbose:
		c.Log.Level = "debug"
	}
}

// signalContext は SIGINT / SIGTERM でキャンセルされるコンテキストを返します。
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// Execute はコマンドライン解析を開始します。
func Execute() {
	clibase.Execute(
		appName,
		addAppFlags,
		preRunAppE,
		serveCmd,
		generateCmd,
		enhanceCmd,
		topicsCmd,
	)
}
