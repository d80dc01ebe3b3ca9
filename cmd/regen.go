package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// regenCmd は、1ショットだけの作り直しを実行するのだ。
var regenCmd = &cobra.Command{
	Use:   "regen",
	Short: "1ショットだけを作り直すのだ。",
	Long: `指定したシーンとショット番号の画像だけを再生成するのだ。
--prompt で基点プロンプトを上書きできるのだよ。`,
	RunE: regenCommand,
}

func init() {
}

func regenCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if opts.ParseJobID == "" {
		return fmt.Errorf("ジョブID（--job-id）を指定してほしいのだ")
	}
	if opts.SceneIndex <= 0 || opts.ShotNumber <= 0 {
		return fmt.Errorf("シーン番号（--scene）とショット番号（--shot）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("ショット再生成モードを起動するのだ！",
		"job_id", opts.ParseJobID,
		"scene", opts.SceneIndex,
		"shot", opts.ShotNumber)

	if err := pipeline.ExecuteRegenerate(ctx, cfg); err != nil {
		return fmt.Errorf("ショット再生成中にエラーが発生したのだ: %w", err)
	}
	return nil
}
