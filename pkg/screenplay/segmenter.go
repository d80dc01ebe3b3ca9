package screenplay

import (
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// timeOfDayKeywords はシーン見出しで時刻として認識する閉じた語彙集合です。
var timeOfDayKeywords = map[string]struct{}{
	"DAY":       {},
	"NIGHT":     {},
	"MORNING":   {},
	"EVENING":   {},
	"AFTERNOON": {},
	"DAWN":      {},
	"DUSK":      {},
}

// Segmenter は脚本テキストをシーン単位に分割する構造体です。
type Segmenter struct {
}

// NewSegmenter は Segmenter を初期化するのだ。状態は持たないのだ。
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment は脚本全文を受け取り、出現順のシーンのリストを返します。
// 見出し（スラッグライン）が1つも見つからない場合はエラーではなく
// 空のリストを返し、「シーンなし」として呼び出し元に委ねます。
func (sg *Segmenter) Segment(text string) []domain.Scene {
	var scenes []domain.Scene
	var current *domain.Scene
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.RawText = strings.TrimSpace(strings.Join(body, "\n"))
		scenes = append(scenes, *current)
		current = nil
		body = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = cleanLine(line)

		if m := SluglineRegex.FindStringSubmatch(line); m != nil {
			flush()

			heading := strings.TrimSpace(line)
			location, timeOfDay := parseHeading(m[2])
			current = &domain.Scene{
				SceneNumber:  len(scenes) + 1,
				SceneHeading: heading,
				Location:     location,
				TimeOfDay:    timeOfDay,
			}
			body = append(body, heading)
			continue
		}

		// 見出し前の行（タイトルページ等）はどのシーンにも属さないのだ
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	if len(scenes) == 0 {
		slog.Debug("脚本から認識可能なシーン見出しが見つかりませんでした")
	}
	return scenes
}

// cleanLine は制御文字と、ページ番号などの単独数字トークンを取り除きます。
func cleanLine(line string) string {
	line = controlCharRegex.ReplaceAllString(line, "")
	line = bareNumberRegex.ReplaceAllString(line, " ")
	return strings.TrimRight(line, " \t")
}

// parseHeading は見出しのプレフィックス以降から location と timeOfDay を導出します。
// "-" で区切られたセグメントを走査し、時刻キーワードに一致したものを timeOfDay、
// 最初の非時刻セグメントを location として採用します。
func parseHeading(rest string) (location, timeOfDay string) {
	for _, segment := range strings.Split(rest, "-") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		if _, ok := timeOfDayKeywords[strings.ToUpper(segment)]; ok {
			if timeOfDay == "" {
				timeOfDay = titleCase(segment)
			}
			continue
		}
		if location == "" {
			location = titleCase(segment)
		}
	}
	return location, timeOfDay
}

// titleCase は "POLICE STATION" を "Police Station" の形に整えます。
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
