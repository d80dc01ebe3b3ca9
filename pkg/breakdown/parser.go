package breakdown

import (
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// NumColumns はLLMに要求するパイプ区切り行の固定カラム数です。
const NumColumns = 14

// columnHeaders は各カラムの見出し名です。モデルが見出し行をそのまま
// エコーしてくるケースの防御（先頭3カラムの一致判定）にも使います。
var columnHeaders = [NumColumns]string{
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
}

// ParseShotLine は1行をショットとして解釈します。
// ちょうど14個のパイプ区切りフィールドに分割でき、かつ見出し行の
// エコーでない場合のみ受理します。受理されない行は ok=false です。
func ParseShotLine(line string) (domain.Shot, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return domain.Shot{}, false
	}
	// 行頭・行末の装飾パイプ（"| a | b |" 形式）を剥がすのだ
	line = strings.Trim(line, "|")

	fields := strings.Split(line, "|")
	if len(fields) != NumColumns {
		return domain.Shot{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if isHeaderEcho(fields) {
		return domain.Shot{}, false
	}

	return domain.Shot{
		ShotDescription: fields[0],
		ShotType:        fields[1],
		Lens:            fields[2],
		Movement:        fields[3],
		MoodAndAmbience: fields[4],
		Lighting:        fields[5],
		Props:           fields[6],
		Notes:           fields[7],
		SoundDesign:     fields[8],
		ColourTemp:      fields[9],
		Tone:            fields[10],
		Characters:      fields[11],
		Action:          fields[12],
		Dialogue:        fields[13],
		GenerationStatus: domain.StatusUnattempted,
	}, true
}

// isHeaderEcho は先頭3フィールドが見出し文字列そのものかを判定します。
func isHeaderEcho(fields []string) bool {
	for i := 0; i < 3; i++ {
		if !strings.EqualFold(fields[i], columnHeaders[i]) {
			return false
		}
	}
	return true
}
