package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/google/uuid"

	"github.com/shouni/go-storyboard-kit/pkg/breakdown"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/orchestrator"
)

// ParseScreenplay は脚本ファイルをシーンへ分割し、新しい解析ジョブとして保存します。
// 戻り値のジョブIDが以降の全工程のキーになります。
func (m *Manager) ParseScreenplay(ctx context.Context, scriptPath string) (string, []domain.Scene, error) {
	rc, err := m.reader.Open(ctx, scriptPath)
	if err != nil {
		return "", nil, fmt.Errorf("脚本の読み込みに失敗しました (path: %s): %w", scriptPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", nil, fmt.Errorf("脚本の読み込みに失敗しました (path: %s): %w", scriptPath, err)
	}

	scenes := m.segmenter.Segment(string(data))
	if len(scenes) == 0 {
		slog.Warn("スラグラインが1つも見つかりませんでした", "path", scriptPath)
	}

	parseJobID := uuid.NewString()
	if err := m.store.SaveScenes(ctx, parseJobID, scenes); err != nil {
		return "", nil, fmt.Errorf("シーンの保存に失敗しました (job=%s): %w", parseJobID, err)
	}
	slog.Info("脚本を解析しました", "job_id", parseJobID, "scenes", len(scenes))
	return parseJobID, scenes, nil
}

// BreakdownScene は指定シーンをショット一覧へ分解して保存します。
// ティア上限で切り詰められた場合も保存は全件に対して行われます。
func (m *Manager) BreakdownScene(ctx context.Context, parseJobID string, sceneIndex int, userID, tierName string) (breakdown.Result, error) {
	tier := domain.TierByName(tierName)
	scene, err := m.findScene(ctx, parseJobID, sceneIndex)
	if err != nil {
		return breakdown.Result{}, err
	}

	result, err := m.breakdown.Breakdown(ctx, parseJobID, scene, userID, tier)
	if err != nil {
		return breakdown.Result{}, err
	}
	if err := m.store.SaveShots(ctx, result.Stored); err != nil {
		return breakdown.Result{}, fmt.Errorf("ショットの保存に失敗しました (job=%s scene=%d): %w", parseJobID, sceneIndex, err)
	}
	slog.Info("シーンを分解しました", "job_id", parseJobID, "scene", sceneIndex, "shots", len(result.Stored))
	return result, nil
}

// GenerateSceneImages はシーンの全ショットに対して画像生成を発行します。
func (m *Manager) GenerateSceneImages(ctx context.Context, parseJobID string, sceneIndex int, userID, tierName string, force bool) (orchestrator.BatchResult, error) {
	tier := domain.TierByName(tierName)
	scene, err := m.findScene(ctx, parseJobID, sceneIndex)
	if err != nil {
		return orchestrator.BatchResult{}, err
	}
	return m.orchestrator.GenerateScene(ctx, orchestrator.BatchRequest{
		ParseJobID:   parseJobID,
		SceneIndex:   sceneIndex,
		SceneHeading: scene.SceneHeading,
		UserID:       userID,
		Tier:         tier,
		Force:        force,
	})
}

// RegenerateShotImage は1ショットだけを作り直します。成功済みでも再生成します。
func (m *Manager) RegenerateShotImage(ctx context.Context, parseJobID string, sceneIndex, shotNumber int, overridePrompt, userID, tierName string) (orchestrator.ShotResult, error) {
	tier := domain.TierByName(tierName)
	scene, err := m.findScene(ctx, parseJobID, sceneIndex)
	if err != nil {
		return orchestrator.ShotResult{}, err
	}
	return m.orchestrator.RegenerateShot(ctx, orchestrator.BatchRequest{
		ParseJobID:   parseJobID,
		SceneIndex:   sceneIndex,
		SceneHeading: scene.SceneHeading,
		UserID:       userID,
		Tier:         tier,
	}, shotNumber, overridePrompt)
}

// ExportResult は書き出しの成果物パスの一覧です。
type ExportResult struct {
	CSVPath    string
	ImagePaths []string
}

// ExportStoryboard はジョブ全体の香盤表CSVと生成画像を destDir 配下へ書き出します。
func (m *Manager) ExportStoryboard(ctx context.Context, parseJobID, destDir string) (ExportResult, error) {
	scenes, err := m.store.ListScenes(ctx, parseJobID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("シーン一覧の読み出しに失敗しました (job=%s): %w", parseJobID, err)
	}

	var all domain.Shots
	for _, scene := range scenes {
		shots, err := m.store.ListShots(ctx, parseJobID, scene.SceneNumber)
		if err != nil {
			return ExportResult{}, fmt.Errorf("ショット一覧の読み出しに失敗しました (job=%s scene=%d): %w", parseJobID, scene.SceneNumber, err)
		}
		all = append(all, shots...)
	}

	csvPath := path.Join(destDir, "storyboard.csv")
	if err := m.exporter.WriteCSV(ctx, csvPath, all); err != nil {
		return ExportResult{}, err
	}
	imagePaths, err := m.exporter.WriteImages(ctx, path.Join(destDir, "images"), all)
	if err != nil {
		return ExportResult{}, err
	}
	return ExportResult{CSVPath: csvPath, ImagePaths: imagePaths}, nil
}

func (m *Manager) findScene(ctx context.Context, parseJobID string, sceneIndex int) (domain.Scene, error) {
	scenes, err := m.store.ListScenes(ctx, parseJobID)
	if err != nil {
		return domain.Scene{}, fmt.Errorf("シーン一覧の読み出しに失敗しました (job=%s): %w", parseJobID, err)
	}
	for _, scene := range scenes {
		if scene.SceneNumber == sceneIndex {
			return scene, nil
		}
	}
	return domain.Scene{}, fmt.Errorf("シーンが見つかりません (job=%s scene=%d)", parseJobID, sceneIndex)
}
