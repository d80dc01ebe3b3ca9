// Package prompts はショットから画像生成プロンプトを構築・無害化するロジックを提供します。
package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// BuildShotPrompt はショットの全フィールドを決定論的に補間した
// 複数行の自然言語プロンプトを生成します。同じショットからは常に同じ文字列が得られます。
func BuildShotPrompt(shot domain.Shot) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Storyboard frame %d of scene %d.\n", shot.ShotNumberInScene, shot.SceneIndex))

	if shot.ShotDescription != "" {
		b.WriteString(shot.ShotDescription)
		b.WriteString("\n")
	}

	writeField(&b, "Shot type", shot.ShotType)
	writeField(&b, "Lens", shot.Lens)
	writeField(&b, "Camera movement", shot.Movement)
	writeField(&b, "Mood and ambience", shot.MoodAndAmbience)
	writeField(&b, "Lighting", shot.Lighting)
	writeField(&b, "Colour temperature", shot.ColourTemp)
	writeField(&b, "Tone", shot.Tone)
	writeField(&b, "Props", shot.Props)
	writeField(&b, "Sound design", shot.SoundDesign)
	writeField(&b, "Notes", shot.Notes)

	// 末尾は Action / Characters / Dialogue の各セクションで締めるのだ
	writeField(&b, "Action", shot.Action)
	writeField(&b, "Characters", shot.Characters)
	writeField(&b, "Dialogue", shot.Dialogue)

	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(strings.TrimSpace(value))
	b.WriteString("\n")
}
