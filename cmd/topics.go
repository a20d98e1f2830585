package cmd

import (
	"fmt"

	"github.com/shouni/gemini-post-kit/pkg/domain"
	"github.com/spf13/cobra"
)

var topicsRandom bool

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "トピックの候補を表示します。",
	// 設定ファイルや API キーは不要
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if topicsRandom {
			fmt.Fprintln(out, domain.RandomTopic())
			return nil
		}
		for _, t := range domain.SuggestedTopics {
			fmt.Fprintln(out, t)
		}
		return nil
	},
}

func init() {
	topicsCmd.Flags().BoolVarP(&topicsRandom, "random", "r", false, "候補から1つだけ選んで表示します")
}
