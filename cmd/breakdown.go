package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// breakdownCmd は、シーンのショット分解のみを実行するのだ。
var breakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "シーンをショット一覧へ分解するのだ。",
	Long: `保存済みのシーン本文をAIに渡し、撮影計画としてのショット一覧
（構図、レンズ、照明、音響などの14項目）へ分解して保存するのだ。`,
	RunE: breakdownCommand,
}

func init() {
}

func breakdownCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if opts.ParseJobID == "" {
		return fmt.Errorf("ジョブID（--job-id）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("ショット分解モードを起動するのだ！",
		"job_id", opts.ParseJobID,
		"scene", opts.SceneIndex,
		"text_model", cfg.GeminiModel,
		"tier", opts.Tier)

	if err := pipeline.ExecuteBreakdown(ctx, cfg); err != nil {
		return fmt.Errorf("ショット分解中にエラーが発生したのだ: %w", err)
	}
	return nil
}
