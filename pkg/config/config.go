package config

import (
	"time"
)

// デフォルト値の定義
const (
	DefaultGeminiModel  = "gemini-3-flash-preview"
	DefaultImageModel   = "gemini-3-pro-image-preview"
	DefaultRateInterval = 5 * time.Second
	DefaultRetryBase    = 2 * time.Second
	DefaultConcurrency  = 3
	DefaultDatabasePath = "output/storyboard.db"
)

// Config は Go Storyboard Kit の各工程を動作させるための基本設定です。
type Config struct {
	// --- AI Model Settings ---
	GeminiModel      string // テキスト分解・書き換え用
	GeminiImageModel string // 画像生成用

	// --- Google AI (Gemini API) Settings ---
	GeminiAPIKey string

	// --- Generation Settings ---
	RateInterval time.Duration // 画像生成リクエストの発行間隔
	RetryBase    time.Duration // 一時的障害リトライの初期間隔
	Concurrency  int           // シーン内の同時生成数

	// --- Storage Settings ---
	DatabasePath string

	// --- Timeout & Retries ---
	RequestTimeout time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		GeminiModel:      DefaultGeminiModel,
		GeminiImageModel: DefaultImageModel,
		RateInterval:     DefaultRateInterval,
		RetryBase:        DefaultRetryBase,
		Concurrency:      DefaultConcurrency,
		DatabasePath:     DefaultDatabasePath,
	}
}
