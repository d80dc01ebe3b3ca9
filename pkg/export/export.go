// Package export は香盤表のCSV出力と生成画像のファイル出力を受け持ちます。
// 出力先は remoteio 経由なので、ローカルパスでもGCSパスでも同じ経路で書けます。
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// csvHeader はCSVの列見出しです。シーン帰属の2列に続けて分解表の14列、
// 末尾に生成ステータスと使用プロンプトを並べます。
var csvHeader = []string{
	"Scene",
	"Shot",
	"Shot Description",
	"Shot Type",
	"Lens",
	"Camera Movement",
	"Mood & Ambience",
	"Lighting",
	"Props",
	"Notes",
	"Sound Design",
	"Colour Temp",
	"Tone",
	"Characters",
	"Action",
	"Dialogue",
	"Generation Status",
	"Image Prompt",
}

// Exporter は成果物の書き出し役です。
type Exporter struct {
	writer remoteio.OutputWriter
}

func NewExporter(writer remoteio.OutputWriter) *Exporter {
	return &Exporter{writer: writer}
}

// WriteCSV は香盤表をCSVとして destPath へ書き出します。
// 登場人物の列は名前をセミコロンで連結し直します。引用符の扱いは
// encoding/csv の標準規則に任せます。
func (e *Exporter) WriteCSV(ctx context.Context, destPath string, shots domain.Shots) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("CSVヘッダの書き込みに失敗しました: %w", err)
	}
	for _, shot := range shots {
		record := []string{
			strconv.Itoa(shot.SceneIndex),
			strconv.Itoa(shot.ShotNumberInScene),
			shot.ShotDescription,
			shot.ShotType,
			shot.Lens,
			shot.Movement,
			shot.MoodAndAmbience,
			shot.Lighting,
			shot.Props,
			shot.Notes,
			shot.SoundDesign,
			shot.ColourTemp,
			shot.Tone,
			strings.Join(shot.CharacterNames(), ";"),
			shot.Action,
			shot.Dialogue,
			string(shot.GenerationStatus),
			shot.ImagePromptText,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("CSV行の書き込みに失敗しました (%s): %w", shot.String(), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("CSVの畳み込みに失敗しました: %w", err)
	}

	if err := e.writer.Write(ctx, destPath, &buf, "text/csv; charset=utf-8"); err != nil {
		return fmt.Errorf("CSVの保存に失敗しました (path: %s): %w", destPath, err)
	}
	slog.Info("香盤表CSVを書き出しました", "path", destPath, "shots", len(shots))
	return nil
}

// WriteImages は成功済みショットの画像を連番ファイル名で destDir へ書き出し、
// 書き出したパスの一覧を返します。画像を持たないショットは黙って飛ばします。
func (e *Exporter) WriteImages(ctx context.Context, destDir string, shots domain.Shots) ([]string, error) {
	paths := make([]string, 0, len(shots))
	for _, shot := range shots {
		if shot.GenerationStatus != domain.StatusSucceeded || len(shot.ImageData) == 0 {
			continue
		}
		name := fmt.Sprintf("scene_%03d_shot_%03d%s", shot.SceneIndex, shot.ShotNumberInScene, extensionFor(shot.ImageMimeType))
		fullPath := path.Join(destDir, name)
		if err := e.writer.Write(ctx, fullPath, bytes.NewReader(shot.ImageData), shot.ImageMimeType); err != nil {
			return nil, fmt.Errorf("画像の書き込みに失敗しました %s: %w", fullPath, err)
		}
		paths = append(paths, fullPath)
	}
	slog.Info("生成画像を書き出しました", "dir", destDir, "count", len(paths))
	return paths, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
