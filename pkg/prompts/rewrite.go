package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// DefaultRewriteConfidence はLLM書き換えを採用する信頼度の下限です。
const DefaultRewriteConfidence = 0.6

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// TextCompleter はテキスト補完サービスへの最小限の契約です。
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RewriteResult はLLMによる安全書き換えの結果です。
type RewriteResult struct {
	RewrittenPrompt string  `json:"rewritten_prompt"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
}

const rewriteSystemPrompt = `You rewrite image-generation prompts that were rejected by a content policy.
Preserve the cinematic intent while removing anything that could trigger safety filters.
Respond with a single JSON object: {"rewritten_prompt": "...", "confidence": 0.0-1.0, "reasoning": "..."}`

// SafetyRewriter は決定論的サニタイザの前に試みる、ベストエフォートの書き換え器です。
// これは強化であって依存ではなく、失敗や低信頼度は常にサニタイザへ倒れるのだ。
type SafetyRewriter struct {
	ai        TextCompleter
	threshold float64
}

// NewSafetyRewriter は SafetyRewriter を初期化します。threshold が 0 以下なら既定値を使います。
func NewSafetyRewriter(ai TextCompleter, threshold float64) *SafetyRewriter {
	if threshold <= 0 {
		threshold = DefaultRewriteConfidence
	}
	return &SafetyRewriter{ai: ai, threshold: threshold}
}

// Rewrite は拒否されたプロンプトの書き換えを試みます。
// 信頼度が閾値未満、または応答が解釈不能な場合はエラーを返し、
// 呼び出し側は決定論的な Sanitize に切り替えます。
func (r *SafetyRewriter) Rewrite(ctx context.Context, prompt string) (RewriteResult, error) {
	raw, err := r.ai.Complete(ctx, rewriteSystemPrompt,
		fmt.Sprintf("The following prompt was rejected. Rewrite it:\n\n%s", prompt))
	if err != nil {
		return RewriteResult{}, fmt.Errorf("書き換え呼び出しに失敗しました: %w", err)
	}

	result, err := parseRewriteResponse(raw)
	if err != nil {
		return RewriteResult{}, err
	}
	if result.RewrittenPrompt == "" {
		return RewriteResult{}, fmt.Errorf("書き換え結果が空でした")
	}
	if result.Confidence < r.threshold {
		return RewriteResult{}, fmt.Errorf("書き換えの信頼度 %.2f が閾値 %.2f を下回りました", result.Confidence, r.threshold)
	}
	return result, nil
}

// parseRewriteResponse はコードブロックや余計な前置きを許容しながらJSONを取り出します。
func parseRewriteResponse(raw string) (RewriteResult, error) {
	raw = strings.TrimSpace(raw)
	var rawJSON string

	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		rawJSON = matches[1]
	} else if first, last := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); first != -1 && last > first {
		rawJSON = raw[first : last+1]
	} else {
		rawJSON = raw
	}

	var result RewriteResult
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		return RewriteResult{}, fmt.Errorf("書き換え応答のJSON解析に失敗しました (応答抜粋: %q): %w", truncate(raw, 200), err)
	}
	return result, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
