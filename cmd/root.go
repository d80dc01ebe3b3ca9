package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は CLI フラグで受け取った実行時パラメータを保持するのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.ScriptFile, "script-file", "f", "", "脚本ファイルのパス（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.ParseJobID, "job-id", "j", "", "解析ジョブのIDなのだ。parse コマンドの出力で採番されるのだ。")
	rootCmd.PersistentFlags().IntVarP(&opts.SceneIndex, "scene", "s", 0, "対象のシーン番号なのだ。0なら全シーンが対象なのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.ExportDir, "export-dir", "o", config.DefaultExportDir, "CSVと画像の保存先（ローカル or gs://...）なのだ。")

	// --- 利用者とティア ---
	rootCmd.PersistentFlags().StringVarP(&opts.UserID, "user", "u", "local", "消費台帳を記帳する利用者IDなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.Tier, "tier", "t", "free", "利用ティア（free / pro）なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", config.DefaultModel, "テキスト分解に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "画像生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")

	// --- 再生成固有設定 ---
	regenCmd.Flags().IntVar(&opts.ShotNumber, "shot", 0, "作り直すショット番号なのだ。")
	regenCmd.Flags().StringVar(&opts.OverridePrompt, "prompt", "", "再生成で使う上書きプロンプトなのだ。")
	renderCmd.Flags().BoolVar(&opts.Force, "force", false, "成功済みショットも作り直すのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"storyboard-kit",
		addAppFlags,
		preRunAppE,
		parseCmd,
		breakdownCmd,
		renderCmd,
		regenCmd,
		exportCmd,
	)
}
