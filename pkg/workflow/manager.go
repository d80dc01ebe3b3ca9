// Package workflow は絵コンテ生成パイプラインの各工程を束ねる組み立て層です。
// 外部サービスのクライアント初期化と各工程への依存注入はここに集約します。
package workflow

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/shouni/go-storyboard-kit/pkg/breakdown"
	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/engine"
	"github.com/shouni/go-storyboard-kit/pkg/export"
	"github.com/shouni/go-storyboard-kit/pkg/memory"
	"github.com/shouni/go-storyboard-kit/pkg/orchestrator"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/quota"
	"github.com/shouni/go-storyboard-kit/pkg/screenplay"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// ManagerArgs は Manager の構築に必要な外部依存の一式です。
type ManagerArgs struct {
	Config     config.Config
	HTTPClient httpkit.ClientInterface
	Reader     remoteio.InputReader
	Writer     remoteio.OutputWriter
	Store      store.Store
}

// Manager は、脚本の解析から画像生成、書き出しまでの各工程を構築・管理します。
type Manager struct {
	cfg        config.Config
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
	writer     remoteio.OutputWriter
	aiClient   gemini.GenerativeModel
	store      store.Store

	segmenter    *screenplay.Segmenter
	breakdown    *breakdown.Generator
	orchestrator *orchestrator.Orchestrator
	exporter     *export.Exporter
}

// New は、設定と外部依存を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.HTTPClient == nil {
		return nil, fmt.Errorf("httpClient は必須です")
	}
	if args.Reader == nil {
		return nil, fmt.Errorf("InputReader は必須です")
	}
	if args.Writer == nil {
		return nil, fmt.Errorf("OutputWriter は必須です")
	}
	if args.Store == nil {
		return nil, fmt.Errorf("Store は必須です")
	}

	aiClient, err := initializeAIClient(ctx, args.Config.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	completer := newGeminiCompleter(aiClient, args.Config.GeminiModel)

	imgGen, err := initializeImageGenerator(args.Reader, args.HTTPClient, aiClient, args.Config.GeminiImageModel)
	if err != nil {
		return nil, fmt.Errorf("画像生成エンジンの初期化に失敗しました: %w", err)
	}

	gate := quota.NewGovernor(args.Store, 0)
	characterMemory := memory.New(completer, args.Store)
	rewriter := prompts.NewSafetyRewriter(completer, prompts.DefaultRewriteConfidence)

	eng := engine.New(engine.Config{
		Images:        newFrameImageClient(imgGen),
		Enricher:      characterMemory,
		Rewriter:      rewriter,
		Gate:          gate,
		Shots:         args.Store,
		Limiter:       rate.NewLimiter(rate.Every(args.Config.RateInterval), defaultRateBurst),
		RetryInterval: args.Config.RetryBase,
	})

	return &Manager{
		cfg:          args.Config,
		httpClient:   args.HTTPClient,
		reader:       args.Reader,
		writer:       args.Writer,
		aiClient:     aiClient,
		store:        args.Store,
		segmenter:    screenplay.NewSegmenter(),
		breakdown:    breakdown.NewGenerator(completer, gate, 1),
		orchestrator: orchestrator.New(eng, args.Store, args.Config.Concurrency),
		exporter:     export.NewExporter(args.Writer),
	}, nil
}

// initializeAIClient は gemini クライアントを初期化します。
func initializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// initializeImageGenerator は、画像キャッシュを含む ImageGenerator を初期化します。
func initializeImageGenerator(
	reader remoteio.InputReader,
	httpClient httpkit.ClientInterface,
	aiClient gemini.GenerativeModel,
	model string,
) (imagekit.ImageGenerator, error) {
	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	core, err := imagekit.NewGeminiImageCore(
		aiClient,
		reader,
		httpClient,
		imgCache,
		defaultTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCore の初期化に失敗しました: %w", err)
	}

	imgGen, err := imagekit.NewGeminiGenerator(
		model,
		core,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiGenerator の初期化に失敗しました: %w", err)
	}

	return imgGen, nil
}
