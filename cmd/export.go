package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// exportCmd は、香盤表CSVと生成画像の書き出しを実行するのだ。
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "香盤表CSVと生成画像を書き出すのだ。",
	Long: `ジョブ全体のショット一覧をCSV（香盤表）として書き出し、
生成済みの画像をシーン・ショット番号の連番ファイルで保存するのだ。`,
	RunE: exportCommand,
}

func init() {
}

func exportCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if opts.ParseJobID == "" {
		return fmt.Errorf("ジョブID（--job-id）を指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("書き出しモードを起動するのだ！",
		"job_id", opts.ParseJobID,
		"export_dir", opts.ExportDir)

	if err := pipeline.ExecuteExport(ctx, cfg); err != nil {
		return fmt.Errorf("書き出し中にエラーが発生したのだ: %w", err)
	}
	return nil
}
