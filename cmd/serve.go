package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shouni/gemini-post-kit/internal/builder"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Web 画面と JSON API を起動します。",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		app, srv, err := builder.BuildServer(ctx, cfg)
		if err != nil {
			return fmt.Errorf("サーバーの初期化に失敗しました: %w", err)
		}
		defer app.Close()

		httpCfg := cfg.Server.HTTP
		hs := &http.Server{
			Addr:         httpCfg.Addr(),
			Handler:      srv.Handler(),
			ReadTimeout:  httpCfg.ReadTimeout,
			WriteTimeout: httpCfg.WriteTimeout,
			IdleTimeout:  httpCfg.IdleTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("HTTP サーバーを起動しました", "addr", hs.Addr, "env", cfg.App.Env)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("HTTP サーバーが停止しました: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		slog.Info("シャットダウンを開始します", "timeout", httpCfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), httpCfg.ShutdownTimeout)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP サーバーの停止に失敗しました", "error", err)
		}

		// 実行中の生成サイクルとキー再選択の完了を待つ
		drained := builder.WaitTimeout(func() {
			srv.Wait()
			app.Orchestrator.Wait()
		}, httpCfg.ShutdownTimeout)
		if !drained {
			slog.Warn("実行中の生成サイクルを待たずに終了します")
		}
		return nil
	},
}
