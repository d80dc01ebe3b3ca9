package prompts

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	t.Run("暴力系の語彙が制作用語に置換されるのだ", func(t *testing.T) {
		got := Sanitize("A man with a gun, blood on the floor")
		if strings.Contains(strings.ToLower(got), "gun") && !strings.Contains(got, "film prop") {
			t.Errorf("武器語彙が置換されていません: %q", got)
		}
		if strings.Contains(strings.ToLower(got), "blood") && !strings.Contains(got, "stage makeup") {
			t.Errorf("blood が置換されていません: %q", got)
		}
		if !strings.Contains(got, "red stage makeup") {
			t.Errorf("期待した置換語が見つかりません: %q", got)
		}
	})

	t.Run("大文字小文字を問わず一致するのだ", func(t *testing.T) {
		got := Sanitize("BLOOD everywhere, Stabbing motion")
		if !strings.Contains(got, "red stage makeup") {
			t.Errorf("大文字の BLOOD が置換されていません: %q", got)
		}
		if !strings.Contains(got, "dramatic confrontation") {
			t.Errorf("Stabbing が置換されていません: %q", got)
		}
	})

	t.Run("複数語フレーズも置換されるのだ", func(t *testing.T) {
		got := Sanitize("close up of a dead body near the door")
		if !strings.Contains(got, "motionless figure") {
			t.Errorf("dead body が置換されていません: %q", got)
		}
	})

	t.Run("枠付けはちょうど1回だけ付与されるのだ", func(t *testing.T) {
		got := Sanitize("a quiet kitchen")
		if !strings.HasPrefix(got, FramingPrefix) {
			t.Errorf("枠付けがありません: %q", got)
		}
		if strings.Count(got, FramingPrefix) != 1 {
			t.Errorf("枠付けが重複しています: %q", got)
		}
	})

	t.Run("冪等性: 2回適用しても結果は変わらないのだ", func(t *testing.T) {
		inputs := []string{
			"A man with a gun, blood on the floor",
			"dead body at point blank range",
			"a quiet kitchen",
			"",
			"MURDER and gore and a knife fight scene",
		}
		for _, in := range inputs {
			once := Sanitize(in)
			twice := Sanitize(once)
			if once != twice {
				t.Errorf("冪等性が破れています。\n入力: %q\n1回目: %q\n2回目: %q", in, once, twice)
			}
		}
	})

	t.Run("部分一致では置換されないのだ", func(t *testing.T) {
		got := Sanitize("the gunner's seagull") // "gun" は単語境界で守られる
		if !strings.Contains(got, "gunner") {
			t.Errorf("単語境界を越えて置換されています: %q", got)
		}
	})
}
