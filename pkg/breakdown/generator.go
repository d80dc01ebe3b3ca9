// Package breakdown はシーン本文をLLMでショットリストに分解します。
package breakdown

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/quota"

	"github.com/google/uuid"
)

// TextCompleter はテキスト補完サービスへの最小限の契約です。
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TierLimitWarning はティア上限による提示件数の切り詰めを通知します。
// データは一切破棄されず、制限されるのは見せ方だけなのだ。
type TierLimitWarning struct {
	TotalGenerated int    `json:"total_generated"`
	Returned       int    `json:"returned"`
	TierName       string `json:"tier_name"`
}

// Result はシーン1つ分の分解結果です。
type Result struct {
	// Shots は呼び出し元に提示するリスト（ティア上限適用済み）です。
	Shots []domain.Shot
	// Stored は永続化対象となる全ショットです。上限前の全件を含みます。
	Stored []domain.Shot
	// Warning は切り詰めが発生した場合のみ設定されます。
	Warning *TierLimitWarning
}

// Generator はシーンをショットに分解する本体です。
// 全てのLLM呼び出しは Gate の事前許可を得てから発行されます。
type Generator struct {
	ai           TextCompleter
	gate         quota.Gate
	llmCostUnits float64
}

// NewGenerator は Generator を初期化します。
func NewGenerator(ai TextCompleter, gate quota.Gate, llmCostUnits float64) *Generator {
	if llmCostUnits <= 0 {
		llmCostUnits = 1
	}
	return &Generator{ai: ai, gate: gate, llmCostUnits: llmCostUnits}
}

const breakdownSystemPrompt = `You are a professional film director breaking a scene into shots.
For each shot output exactly ONE line with exactly 14 fields separated by "|" in this order:
Shot Description | Shot Type | Lens | Camera Movement | Mood & Ambience | Lighting | Props | Notes | Sound Design | Colour Temp | Tone | Characters | Action | Dialogue
Do NOT output the header row. Do NOT use markdown tables. One line per shot, nothing else.`

// Breakdown はシーンをショットリストに分解します。
// 複数段落のシーンは段落ごとに逐次処理され、ショット番号はシーン全体を
// 通した連番になります。LLM呼び出しの失敗はそのまま伝播し、シーンは
// ゼロショットになります（画像生成の失敗とは異なり、ここでは握りつぶさないのだ）。
func (g *Generator) Breakdown(ctx context.Context, parseJobID string, scene domain.Scene, userID string, tier domain.Tier) (Result, error) {
	paragraphs := splitParagraphs(scene.RawText)
	if len(paragraphs) == 0 {
		return Result{}, fmt.Errorf("シーン %d に本文がありません", scene.SceneNumber)
	}

	logger := slog.With("scene", scene.SceneNumber, "paragraphs", len(paragraphs))
	logger.Info("ショット分解を開始します", "location", scene.Location, "time_of_day", scene.TimeOfDay)

	var shots []domain.Shot
	shotNumber := 0 // シーン全体を通した連番。段落境界でリセットしないのだ

	for i, paragraph := range paragraphs {
		decision, err := g.gate.CanSpend(ctx, userID, tier, domain.SpendLLM)
		if err != nil {
			return Result{}, fmt.Errorf("消費ゲートの確認に失敗しました: %w", err)
		}
		if err := decision.Err(); err != nil {
			return Result{}, err
		}

		raw, err := g.ai.Complete(ctx, breakdownSystemPrompt, g.userPrompt(scene, paragraph))
		if err != nil {
			return Result{}, fmt.Errorf("シーン %d 段落 %d の分解呼び出しに失敗しました: %w", scene.SceneNumber, i+1, err)
		}
		if err := g.gate.Record(ctx, userID, domain.SpendLLM, g.llmCostUnits); err != nil {
			logger.Warn("消費の記録に失敗しました", "error", err)
		}

		for _, line := range strings.Split(raw, "\n") {
			shot, ok := ParseShotLine(line)
			if !ok {
				if trimmed := strings.TrimSpace(line); trimmed != "" {
					// 14フィールドに割れない行は捨てるが、沈黙はさせないのだ
					logger.Warn("分解結果の行を破棄しました", "line", trimmed)
				}
				continue
			}
			shotNumber++
			shot.ID = uuid.NewString()
			shot.ParseJobID = parseJobID
			shot.SceneIndex = scene.SceneNumber
			shot.ShotNumberInScene = shotNumber
			shots = append(shots, shot)
		}
	}

	logger.Info("ショット分解が完了しました", "shots", len(shots))
	return g.applyTierCap(shots, tier), nil
}

func (g *Generator) userPrompt(scene domain.Scene, paragraph string) string {
	var b strings.Builder
	if scene.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", scene.Location)
	}
	if scene.TimeOfDay != "" {
		fmt.Fprintf(&b, "Time of day: %s\n", scene.TimeOfDay)
	}
	b.WriteString("\nScene text:\n")
	b.WriteString(paragraph)
	return b.String()
}

// applyTierCap は提示リストにだけ上限を適用します。Stored は常に全件です。
func (g *Generator) applyTierCap(shots []domain.Shot, tier domain.Tier) Result {
	result := Result{Shots: shots, Stored: shots}
	limit := tier.MaxShotsPerScene
	if limit <= 0 || len(shots) <= limit {
		return result
	}

	result.Shots = shots[:limit]
	result.Warning = &TierLimitWarning{
		TotalGenerated: len(shots),
		Returned:       limit,
		TierName:       tier.Name,
	}
	slog.Info("ティア上限により提示件数を切り詰めました",
		"total", len(shots), "returned", limit, "tier", tier.Name)
	return result
}

// splitParagraphs は本文を空行で段落に分割します。
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}
