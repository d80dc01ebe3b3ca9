package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// renderCmd は、分解済みショットの画像生成を実行するのだ。
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "ショットの絵コンテ画像を生成するのだ。",
	Long: `保存済みのショット一覧に対してAIによる画像生成を発行するのだ。
成功済みのショットは飛ばすのだよ（--force で作り直せるのだ）。`,
	RunE: renderCommand,
}

func init() {
}

func renderCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if opts.ParseJobID == "" {
		return fmt.Errorf("ジョブID（--job-id）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("画像生成モードを起動するのだ！",
		"job_id", opts.ParseJobID,
		"scene", opts.SceneIndex,
		"image_model", cfg.GeminiImageModel,
		"tier", opts.Tier,
		"force", opts.Force)

	if err := pipeline.ExecuteRender(ctx, cfg); err != nil {
		return fmt.Errorf("画像生成中にエラーが発生したのだ: %w", err)
	}
	return nil
}
