package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// parseCmd は、脚本のシーン分割のみを実行するのだ。
var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "脚本をシーンへ分割して保存するのだ。",
	Long: `脚本テキストをスラグライン（INT./EXT.）で分割し、シーンの一覧として保存するのだ。
出力されるジョブIDが breakdown 以降の工程のキーになるのだよ。`,
	RunE: parseCommand,
}

func init() {
}

func parseCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	// 1. 入力ソースの必須チェック (opts は addAppFlags で紐付け済みと想定)
	if opts.ScriptFile == "" && !isStdin() {
		return fmt.Errorf("ソース（--script-file）を指定してほしいのだ")
	}

	// 2. 設定のロード
	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("脚本解析モードを起動するのだ！", "script", opts.ScriptFile)

	// 3. 実行
	if err := pipeline.ExecuteParse(ctx, cfg); err != nil {
		return fmt.Errorf("脚本解析中にエラーが発生したのだ: %w", err)
	}
	return nil
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
