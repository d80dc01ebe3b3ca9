// Package pipeline はCLIコマンドから呼ばれる実行フローを定義するのだ。
// AppContext の組み立てと、ワークフロー各工程の呼び出し順序だけを受け持ちます。
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/engine"
)

// ExecuteParse は、脚本ファイルをシーンへ分割して保存するのだ。
func ExecuteParse(ctx context.Context, cfg *config.Config) error {
	appCtx, cleanup, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	jobID, scenes, err := appCtx.Manager.ParseScreenplay(ctx, cfg.Options.ScriptFile)
	if err != nil {
		return fmt.Errorf("脚本の解析に失敗したのだ: %w", err)
	}

	for _, scene := range scenes {
		slog.Info("シーンを抽出したのだ",
			"scene", scene.SceneNumber,
			"heading", scene.SceneHeading,
			"location", scene.Location,
			"time_of_day", scene.TimeOfDay)
	}
	slog.Info("脚本の解析が完了したのだ！", "job_id", jobID, "scenes", len(scenes))
	return nil
}

// ExecuteBreakdown は、指定シーン（未指定なら全シーン）をショット一覧へ分解するのだ。
func ExecuteBreakdown(ctx context.Context, cfg *config.Config) error {
	appCtx, cleanup, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	indices, err := targetScenes(ctx, appCtx, cfg)
	if err != nil {
		return err
	}

	for _, sceneIndex := range indices {
		result, err := appCtx.Manager.BreakdownScene(ctx, cfg.Options.ParseJobID, sceneIndex, cfg.Options.UserID, cfg.Options.Tier)
		if err != nil {
			return fmt.Errorf("シーン %d の分解に失敗したのだ: %w", sceneIndex, err)
		}
		if result.Warning != nil {
			slog.Warn("ティア上限により提示ショット数を切り詰めたのだ",
				"scene", sceneIndex,
				"generated", result.Warning.TotalGenerated,
				"returned", result.Warning.Returned,
				"tier", result.Warning.TierName)
		}
		slog.Info("シーンの分解が完了したのだ", "scene", sceneIndex, "shots", len(result.Stored))
	}
	return nil
}

// ExecuteRender は、指定シーン（未指定なら全シーン）のショット画像を生成するのだ。
func ExecuteRender(ctx context.Context, cfg *config.Config) error {
	appCtx, cleanup, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	indices, err := targetScenes(ctx, appCtx, cfg)
	if err != nil {
		return err
	}

	for _, sceneIndex := range indices {
		batch, err := appCtx.Manager.GenerateSceneImages(ctx, cfg.Options.ParseJobID, sceneIndex, cfg.Options.UserID, cfg.Options.Tier, cfg.Options.Force)
		if err != nil {
			return fmt.Errorf("シーン %d の画像生成に失敗したのだ: %w", sceneIndex, err)
		}
		for _, result := range batch.Results {
			if result.Kind == engine.OutcomeFailed {
				slog.Warn("生成に失敗したショットがあるのだ",
					"shot", result.Shot.String(), "reason", result.Reason)
			}
		}
		slog.Info("シーンの画像生成が完了したのだ",
			"scene", sceneIndex,
			"succeeded", batch.Succeeded,
			"failed", batch.Failed,
			"quota_denied", batch.QuotaDenied,
			"skipped", batch.Skipped)
	}
	return nil
}

// ExecuteRegenerate は、1ショットだけを作り直すのだ。
func ExecuteRegenerate(ctx context.Context, cfg *config.Config) error {
	appCtx, cleanup, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := appCtx.Manager.RegenerateShotImage(ctx,
		cfg.Options.ParseJobID, cfg.Options.SceneIndex, cfg.Options.ShotNumber,
		cfg.Options.OverridePrompt, cfg.Options.UserID, cfg.Options.Tier)
	if err != nil {
		return fmt.Errorf("ショットの再生成に失敗したのだ: %w", err)
	}

	slog.Info("ショットの再生成が完了したのだ", "shot", result.Shot.String(), "outcome", string(result.Kind))
	return nil
}

// ExecuteExport は、香盤表CSVと生成画像を書き出すのだ。
func ExecuteExport(ctx context.Context, cfg *config.Config) error {
	appCtx, cleanup, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := appCtx.Manager.ExportStoryboard(ctx, cfg.Options.ParseJobID, cfg.Options.ExportDir)
	if err != nil {
		return fmt.Errorf("書き出しに失敗したのだ: %w", err)
	}

	slog.Info("書き出しが完了したのだ！", "csv", result.CSVPath, "images", len(result.ImagePaths))
	return nil
}

// targetScenes は --scene 指定があればそのシーンだけを、なければ全シーンを返すのだ。
func targetScenes(ctx context.Context, appCtx *builder.AppContext, cfg *config.Config) ([]int, error) {
	if cfg.Options.SceneIndex > 0 {
		return []int{cfg.Options.SceneIndex}, nil
	}
	scenes, err := appCtx.Store.ListScenes(ctx, cfg.Options.ParseJobID)
	if err != nil {
		return nil, fmt.Errorf("シーン一覧の取得に失敗したのだ (job=%s): %w", cfg.Options.ParseJobID, err)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("ジョブ %s にシーンが見つからないのだ", cfg.Options.ParseJobID)
	}
	indices := make([]int, 0, len(scenes))
	for _, scene := range scenes {
		indices = append(indices, scene.SceneNumber)
	}
	return indices, nil
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
// 戻り値の cleanup は永続化層のクローズを担うので、呼び出し側で必ず defer するのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, func(), error) {
	httpClient := httpkit.New(config.DefaultHTTPTimeout)

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, nil, err
	}

	st, err := builder.InitializeStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Warn("永続化層のクローズに失敗したのだ", "error", closeErr)
		}
	}

	manager, err := builder.InitializeManager(ctx, cfg, httpClient, reader, writer, st)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	appCtx := builder.NewAppContext(cfg, httpClient, reader, writer, st, manager)
	return &appCtx, cleanup, nil
}
