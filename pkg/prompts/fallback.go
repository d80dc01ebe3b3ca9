package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Category はショット内容の粗い分類です。フォールバックプロンプトは
// 本文を一切引用せず、この分類とショットタイプだけから組み立てます。
type Category string

const (
	CategoryAction   Category = "action"
	CategoryDialogue Category = "dialogue"
	CategoryGeneric  Category = "generic"
)

// CategoryFor はショットを粗い分類に割り当てます。
func CategoryFor(shot domain.Shot) Category {
	if strings.TrimSpace(shot.Dialogue) != "" {
		return CategoryDialogue
	}
	if strings.TrimSpace(shot.Action) != "" {
		return CategoryAction
	}
	return CategoryGeneric
}

// SmartFallbackPrompt はポリシー拒否後の第2段として使う、内容中立のプロンプトです。
// ショット本文は含めず、ショットタイプと分類だけで構成するのだ。
func SmartFallbackPrompt(shotType string, category Category) string {
	if shotType == "" {
		shotType = "medium"
	}

	var subject string
	switch category {
	case CategoryAction:
		subject = "a dynamic moment in a professional film scene, actors mid-performance"
	case CategoryDialogue:
		subject = "two actors in conversation on a professional film set"
	default:
		subject = "a cinematic establishing moment on a professional film set"
	}

	return fmt.Sprintf("%s%s shot of %s, cinematic composition, natural lighting",
		FramingPrefix, strings.ToLower(shotType), subject)
}

// LocationCategory はシーン見出しから粗いロケーション区分を導きます。
func LocationCategory(sceneHeading string) string {
	heading := strings.ToUpper(strings.TrimSpace(sceneHeading))
	switch {
	case strings.HasPrefix(heading, "INT."):
		return "interior film set"
	case strings.HasPrefix(heading, "EXT."):
		return "exterior film location"
	default:
		return "professional film studio"
	}
}

// UltraSafePrompt は最終段のプロンプトです。ショットタイプとロケーション区分、
// 一般的な品質語彙のみで構成され、これ以上安全側に倒せない終端なのだ。
func UltraSafePrompt(shotType, locationCategory string) string {
	if shotType == "" {
		shotType = "wide"
	}
	if locationCategory == "" {
		locationCategory = "professional film studio"
	}
	return fmt.Sprintf("%s%s shot of a %s, high production value, cinematic lighting, photorealistic",
		FramingPrefix, strings.ToLower(shotType), locationCategory)
}
