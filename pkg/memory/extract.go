package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

var jsonArrayRegex = regexp.MustCompile(`(?s)\[.*\]`)

const extractSystemPrompt = `You extract character names from screenplay text.
Respond with ONLY a JSON array of names, e.g. ["Sarah", "John"].
No prose, no explanation. An empty array if there are no named characters.`

// ExtractCharacters はショットに登場する人物名を返します。
// 構造化された Characters フィールドがあればそれを最優先し、
// 無い場合のみLLMに名前リストを問い合わせます。
func (m *CharacterMemory) ExtractCharacters(ctx context.Context, shot domain.Shot) ([]string, error) {
	if names := shot.CharacterNames(); len(names) > 0 {
		return names, nil
	}

	text := strings.TrimSpace(shot.Action + "\n" + shot.Dialogue + "\n" + shot.ShotDescription)
	if text == "" {
		return nil, nil
	}

	raw, err := m.ai.Complete(ctx, extractSystemPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("人物名抽出の呼び出しに失敗しました: %w", err)
	}

	names, ok := parseNameList(raw)
	if !ok {
		// 構造化パースが全滅した場合でも、手動のトークン抽出で拾えるだけ拾うのだ
		slog.Warn("人物名リストの構造化パースに失敗したため手動抽出に切り替えます", "raw", truncateRaw(raw))
		names = manualNameExtraction(raw)
	}
	return names, nil
}

// parseNameList はJSON配列としての解釈を試みます。
// LLMがシングルクォートで囲んでくるような崩れも許容します。
func parseNameList(raw string) ([]string, bool) {
	candidate := strings.TrimSpace(raw)
	if m := jsonArrayRegex.FindString(candidate); m != "" {
		candidate = m
	}

	var names []string
	if err := json.Unmarshal([]byte(candidate), &names); err == nil {
		return cleanNames(names), true
	}

	// シングルクォートをダブルクォートに矯正して再試行
	fixed := strings.ReplaceAll(candidate, `'`, `"`)
	if err := json.Unmarshal([]byte(fixed), &names); err == nil {
		return cleanNames(names), true
	}

	return nil, false
}

// manualNameExtraction は最終手段のトークンレベル抽出です。
// 区切り文字で割り、引用符と括弧を剥がすだけの軽量な処理なのだ。
func manualNameExtraction(raw string) []string {
	raw = strings.Trim(strings.TrimSpace(raw), "[]")
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	var names []string
	for _, p := range parts {
		name := strings.Trim(strings.TrimSpace(p), `"'`)
		if name == "" || len(name) > 64 {
			continue
		}
		names = append(names, name)
	}
	return names
}

func cleanNames(names []string) []string {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	return cleaned
}

func truncateRaw(s string) string {
	if len(s) <= 120 {
		return s
	}
	return s[:120] + "..."
}
