package screenplay

import (
	"strings"
	"testing"
)

const sampleScript = `FADE IN:

INT. KITCHEN - DAY

SARAH stands by the window, coffee in hand.

SARAH
We can't keep doing this.

EXT. STREET - NIGHT

Rain. JOHN runs across the road, dodging traffic.
`

func TestSegmenter_Segment(t *testing.T) {
	sg := NewSegmenter()

	t.Run("見出しの数だけシーンが出現順で得られるのだ", func(t *testing.T) {
		scenes := sg.Segment(sampleScript)
		if len(scenes) != 2 {
			t.Fatalf("期待値 2 シーン, 実際 %d シーン", len(scenes))
		}

		if scenes[0].SceneNumber != 1 || scenes[1].SceneNumber != 2 {
			t.Error("シーン番号が出現順に振られていません")
		}
		if scenes[0].Location != "Kitchen" || scenes[0].TimeOfDay != "Day" {
			t.Errorf("シーン1: 期待値 Kitchen/Day, 実際 %s/%s", scenes[0].Location, scenes[0].TimeOfDay)
		}
		if scenes[1].Location != "Street" || scenes[1].TimeOfDay != "Night" {
			t.Errorf("シーン2: 期待値 Street/Night, 実際 %s/%s", scenes[1].Location, scenes[1].TimeOfDay)
		}

		// 各シーンの RawText は自分の見出しをちょうど1回含むこと
		for _, sc := range scenes {
			if strings.Count(sc.RawText, sc.SceneHeading) != 1 {
				t.Errorf("シーン %d の RawText に見出しが正しく含まれていません: %q", sc.SceneNumber, sc.RawText)
			}
		}
		if !strings.Contains(scenes[0].RawText, "coffee in hand") {
			t.Error("シーン本文が見出しに続く行を含んでいません")
		}
		if strings.Contains(scenes[0].RawText, "JOHN") {
			t.Error("次のシーンの本文が前のシーンに混入しています")
		}
	})

	t.Run("見出しが無ければゼロ件でありエラーではないのだ", func(t *testing.T) {
		scenes := sg.Segment("Just some prose.\nNothing screenplay-shaped here.")
		if len(scenes) != 0 {
			t.Errorf("期待値 0 シーン, 実際 %d シーン", len(scenes))
		}
	})

	t.Run("制御文字と単独数字トークンは除去されるのだ", func(t *testing.T) {
		scenes := sg.Segment("INT. LAB - NIGHT 47\n\nA beep.\x07 Machines hum. 12\n")
		if len(scenes) != 1 {
			t.Fatalf("期待値 1 シーン, 実際 %d シーン", len(scenes))
		}
		raw := scenes[0].RawText
		if strings.Contains(raw, "\x07") {
			t.Error("制御文字が残っています")
		}
		if strings.Contains(raw, "47") || strings.Contains(raw, "12") {
			t.Errorf("単独の数字トークンが残っています: %q", raw)
		}
	})

	t.Run("複合プレフィックスと複数語ロケーションも扱えるのだ", func(t *testing.T) {
		scenes := sg.Segment("INT./EXT. POLICE STATION - DAWN\n\nAction.\n")
		if len(scenes) != 1 {
			t.Fatalf("期待値 1 シーン, 実際 %d シーン", len(scenes))
		}
		if scenes[0].Location != "Police Station" {
			t.Errorf("期待値 'Police Station', 実際の値 %q", scenes[0].Location)
		}
		if scenes[0].TimeOfDay != "Dawn" {
			t.Errorf("期待値 'Dawn', 実際の値 %q", scenes[0].TimeOfDay)
		}
	})
}
