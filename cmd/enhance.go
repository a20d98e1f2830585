package cmd

import (
	"fmt"
	"strings"

	"github.com/shouni/gemini-post-kit/internal/builder"
	"github.com/spf13/cobra"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance <draft>",
	Short: "トピックの下書きを具体的なプロンプトに書き換えます。",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		draft := strings.TrimSpace(strings.Join(args, " "))
		if draft == "" {
			return fmt.Errorf("下書きが空です")
		}

		app, err := builder.Build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		// 失敗時は下書きがそのまま返る
		fmt.Fprintln(cmd.OutOrStdout(), app.Generator.EnhancePrompt(cmd.Context(), draft))
		return nil
	},
}
