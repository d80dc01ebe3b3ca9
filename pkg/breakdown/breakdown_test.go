package breakdown

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/quota"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

const validLine = "Sarah at window|Close-up|85mm|Static|Tense|Low key|Coffee cup|-|Quiet hum|Warm|Somber|Sarah|She turns|We can't keep doing this"

func TestParseShotLine(t *testing.T) {
	t.Run("14フィールドちょうどの行だけが受理されるのだ", func(t *testing.T) {
		shot, ok := ParseShotLine(validLine)
		if !ok {
			t.Fatal("正常な14フィールド行が拒否されました")
		}
		if shot.ShotDescription != "Sarah at window" || shot.Dialogue != "We can't keep doing this" {
			t.Errorf("フィールドの割り当てが不正です: %+v", shot)
		}
		if shot.GenerationStatus != domain.StatusUnattempted {
			t.Error("新規ショットのステータスが unattempted ではありません")
		}
	})

	t.Run("13フィールドや15フィールドは破棄されるのだ", func(t *testing.T) {
		if _, ok := ParseShotLine(strings.Replace(validLine, "|85mm", "", 1)); ok {
			t.Error("13フィールドの行が受理されました")
		}
		if _, ok := ParseShotLine(validLine + "|extra"); ok {
			t.Error("15フィールドの行が受理されました")
		}
	})

	t.Run("見出し行のエコーは破棄されるのだ", func(t *testing.T) {
		header := "Shot Description|Shot Type|Lens|Camera Movement|Mood & Ambience|Lighting|Props|Notes|Sound Design|Colour Temp|Tone|Characters|Action|Dialogue"
		if _, ok := ParseShotLine(header); ok {
			t.Error("見出し行がショットとして受理されました")
		}
		if _, ok := ParseShotLine(strings.ToUpper(header)); ok {
			t.Error("大文字化された見出し行が受理されました")
		}
	})

	t.Run("行頭行末の装飾パイプは許容されるのだ", func(t *testing.T) {
		if _, ok := ParseShotLine("| " + validLine + " |"); !ok {
			t.Error("装飾パイプ付きの行が拒否されました")
		}
	})

	t.Run("空行は受理されないのだ", func(t *testing.T) {
		if _, ok := ParseShotLine("   "); ok {
			t.Error("空行が受理されました")
		}
	})
}

// scriptedCompleter は呼び出し順に応答を返すフェイクなのだ。
type scriptedCompleter struct {
	responses []string
	calls     int
	err       error
}

func (s *scriptedCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	resp := s.responses[s.calls%len(s.responses)]
	s.calls++
	return resp, nil
}

func testScene(paragraphs ...string) domain.Scene {
	return domain.Scene{
		SceneNumber:  1,
		SceneHeading: "INT. KITCHEN - DAY",
		Location:     "Kitchen",
		TimeOfDay:    "Day",
		RawText:      strings.Join(paragraphs, "\n\n"),
	}
}

func newGate() quota.Gate {
	return quota.NewGovernor(store.NewMemoryStore(), 0)
}

func TestGenerator_Breakdown(t *testing.T) {
	ctx := context.Background()

	t.Run("段落をまたいでもショット番号は通し連番なのだ", func(t *testing.T) {
		ai := &scriptedCompleter{responses: []string{
			validLine + "\n" + validLine,
			validLine,
		}}
		g := NewGenerator(ai, newGate(), 1)

		result, err := g.Breakdown(ctx, "job1", testScene("First paragraph.", "Second paragraph."), "u1", domain.TierPro)
		if err != nil {
			t.Fatalf("分解に失敗しました: %v", err)
		}
		if ai.calls != 2 {
			t.Errorf("段落ごとの逐次呼び出しになっていません: %d 回", ai.calls)
		}
		if len(result.Shots) != 3 {
			t.Fatalf("期待値 3 ショット, 実際 %d", len(result.Shots))
		}
		for i, shot := range result.Shots {
			if shot.ShotNumberInScene != i+1 {
				t.Errorf("index %d: ショット番号 %d が連番になっていません", i, shot.ShotNumberInScene)
			}
			if shot.SceneIndex != 1 || shot.ParseJobID != "job1" || shot.ID == "" {
				t.Errorf("ショットの帰属情報が不正です: %+v", shot)
			}
		}
	})

	t.Run("割れない行は警告ログ止まりで数に入らないのだ", func(t *testing.T) {
		ai := &scriptedCompleter{responses: []string{
			"Here are the shots:\n" + validLine + "\nnot|enough|fields\n",
		}}
		g := NewGenerator(ai, newGate(), 1)

		result, err := g.Breakdown(ctx, "job1", testScene("Text."), "u1", domain.TierPro)
		if err != nil {
			t.Fatalf("分解に失敗しました: %v", err)
		}
		if len(result.Shots) != 1 {
			t.Errorf("期待値 1 ショット, 実際 %d", len(result.Shots))
		}
	})

	t.Run("LLM失敗はゼロショットで伝播するのだ", func(t *testing.T) {
		ai := &scriptedCompleter{err: errors.New("service unavailable")}
		g := NewGenerator(ai, newGate(), 1)

		result, err := g.Breakdown(ctx, "job1", testScene("Text."), "u1", domain.TierPro)
		if err == nil {
			t.Fatal("LLM失敗が伝播しません")
		}
		if len(result.Shots) != 0 {
			t.Error("失敗したのにショットが返っています")
		}
	})

	t.Run("ゲート拒否は外部呼び出しゼロで短絡するのだ", func(t *testing.T) {
		governor := quota.NewGovernor(store.NewMemoryStore(), 0)
		for i := 0; i < domain.TierFree.MaxLLMCallsPerDay; i++ {
			_ = governor.Record(ctx, "u1", domain.SpendLLM, 1)
		}
		ai := &scriptedCompleter{responses: []string{validLine}}
		g := NewGenerator(ai, governor, 1)

		_, err := g.Breakdown(ctx, "job1", testScene("Text."), "u1", domain.TierFree)
		if !quota.IsQuotaError(err) {
			t.Fatalf("期待値 QuotaError, 実際の値 %v", err)
		}
		if ai.calls != 0 {
			t.Errorf("拒否後に %d 回の外部呼び出しが発行されました", ai.calls)
		}
	})

	t.Run("ティア上限は提示だけを切り詰め全件が保存対象なのだ", func(t *testing.T) {
		lines := make([]string, 0, 10)
		for i := 0; i < 10; i++ {
			lines = append(lines, validLine)
		}
		ai := &scriptedCompleter{responses: []string{strings.Join(lines, "\n")}}
		g := NewGenerator(ai, newGate(), 1)

		result, err := g.Breakdown(ctx, "job1", testScene("Text."), "u1", domain.TierFree)
		if err != nil {
			t.Fatalf("分解に失敗しました: %v", err)
		}
		if len(result.Shots) != domain.TierFree.MaxShotsPerScene {
			t.Errorf("提示リストが上限 %d に切り詰められていません: %d", domain.TierFree.MaxShotsPerScene, len(result.Shots))
		}
		if len(result.Stored) != 10 {
			t.Errorf("保存対象が全件ではありません: %d", len(result.Stored))
		}
		if result.Warning == nil {
			t.Fatal("切り詰めの警告が設定されていません")
		}
		if result.Warning.TotalGenerated != 10 || result.Warning.Returned != domain.TierFree.MaxShotsPerScene {
			t.Errorf("警告の件数が不正です: %+v", result.Warning)
		}
	})
}
