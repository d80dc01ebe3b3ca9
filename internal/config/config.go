package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"

	pkgconfig "github.com/shouni/go-storyboard-kit/pkg/config"
)

// デフォルト値の定義なのだ
const (
	DefaultModel        = "gemini-3-flash-preview"
	DefaultImageModel   = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultRateInterval = 5 * time.Second
	DefaultDatabase     = "output/storyboard.db" // ショットと台帳を保持するSQLiteのパス
	DefaultExportDir    = "output"               // CSVと画像のデフォルト保存先なのだ
)

// Config はアプリケーション全体の環境設定（APIキーやモデル設定）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	RateInterval     time.Duration
	DatabasePath     string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		DatabasePath:     envutil.GetEnv("STORYBOARD_DB_PATH", DefaultDatabase),
		RateInterval:     parseInterval(envutil.GetEnv("STORYBOARD_RATE_INTERVAL", "")),
	}
	return cfg
}

// parseInterval は環境変数の発行間隔指定を解釈します。不正値はデフォルトへ落とします。
func parseInterval(raw string) time.Duration {
	if raw == "" {
		return DefaultRateInterval
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return DefaultRateInterval
	}
	return d
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	ScriptFile string // --script-file
	ParseJobID string // --job-id
	SceneIndex int    // --scene
	ShotNumber int    // --shot

	// 出力関連
	ExportDir string // --export-dir

	// 利用者とティア
	UserID string // --user
	Tier   string // --tier

	// AI挙動設定
	AIModel    string // --model: テキスト分解用のGeminiモデル
	ImageModel string // --image-model: 画像生成用のGeminiモデル

	// 実行制御
	Force          bool          // --force: 成功済みショットも作り直す
	OverridePrompt string        // --prompt: 再生成時の上書きプロンプト
	HTTPTimeout    time.Duration // --http-timeout
}

// ToPkgConfig はライブラリ側へ渡す設定へ写し替えます。
func (c *Config) ToPkgConfig() pkgconfig.Config {
	pc := pkgconfig.DefaultConfig()
	pc.GeminiAPIKey = c.GeminiAPIKey
	pc.GeminiModel = c.GeminiModel
	pc.GeminiImageModel = c.GeminiImageModel
	pc.RateInterval = c.RateInterval
	pc.DatabasePath = c.DatabasePath
	pc.RequestTimeout = c.Options.HTTPTimeout
	if c.Options.AIModel != "" {
		pc.GeminiModel = c.Options.AIModel
	}
	if c.Options.ImageModel != "" {
		pc.GeminiImageModel = c.Options.ImageModel
	}
	return pc
}
