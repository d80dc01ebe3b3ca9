package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

type countingCompleter struct {
	mu        sync.Mutex
	calls     int
	responses map[string]string // userPrompt の部分一致 -> 応答
	err       error
}

func (c *countingCompleter) Complete(_ context.Context, _, userPrompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	for key, resp := range c.responses {
		if key == "" || strings.Contains(strings.ToLower(userPrompt), strings.ToLower(key)) {
			return resp, nil
		}
	}
	return "a weathered face, grey coat, steady eyes", nil
}

func TestCharacterMemory_DescriptionFor(t *testing.T) {
	ctx := context.Background()

	t.Run("同じ名前には常に同じ描写を返し、LLM呼び出しは1回だけなのだ", func(t *testing.T) {
		ai := &countingCompleter{}
		m := New(ai, store.NewMemoryStore())

		first, err := m.DescriptionFor(ctx, "Sarah")
		if err != nil {
			t.Fatalf("初回の描写取得に失敗しました: %v", err)
		}
		for i := 0; i < 5; i++ {
			got, err := m.DescriptionFor(ctx, "Sarah")
			if err != nil {
				t.Fatalf("%d 回目の取得に失敗しました: %v", i+2, err)
			}
			if got != first {
				t.Errorf("描写が揺らぎました: %q != %q", got, first)
			}
		}
		if ai.calls != 1 {
			t.Errorf("期待値 1 回のLLM呼び出し, 実際 %d 回", ai.calls)
		}
	})

	t.Run("永続ストアに既存の描写があればLLMは呼ばれないのだ", func(t *testing.T) {
		ms := store.NewMemoryStore()
		_, _ = ms.PutCharacterIfAbsent(ctx, domain.CharacterProfile{Name: "John", VisualDescription: "stored look"})

		ai := &countingCompleter{}
		m := New(ai, ms)
		got, err := m.DescriptionFor(ctx, "John")
		if err != nil {
			t.Fatalf("取得に失敗しました: %v", err)
		}
		if got != "stored look" {
			t.Errorf("ストアの描写が使われていません: %q", got)
		}
		if ai.calls != 0 {
			t.Errorf("既存レコードがあるのにLLMが %d 回呼ばれました", ai.calls)
		}
	})

	t.Run("並行アクセスでもLLM呼び出しは束ねられるのだ", func(t *testing.T) {
		ai := &countingCompleter{}
		m := New(ai, store.NewMemoryStore())

		var wg sync.WaitGroup
		results := make([]string, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = m.DescriptionFor(ctx, "Marcus")
			}(i)
		}
		wg.Wait()

		for _, r := range results {
			if r != results[0] {
				t.Error("並行取得で異なる描写が返りました")
			}
		}
		if ai.calls != 1 {
			t.Errorf("singleflight が効いていません: %d 回呼ばれました", ai.calls)
		}
	})

	t.Run("LLM失敗はエラーとして返り、何も永続化されないのだ", func(t *testing.T) {
		ms := store.NewMemoryStore()
		ai := &countingCompleter{err: errors.New("rate limited")}
		m := New(ai, ms)

		if _, err := m.DescriptionFor(ctx, "Ghost"); err == nil {
			t.Fatal("LLM失敗がエラーになりません")
		}
		if _, err := ms.GetCharacter(ctx, "Ghost"); !errors.Is(err, store.ErrNotFound) {
			t.Error("失敗したのにプロフィールが保存されています")
		}
	})
}

func TestCharacterMemory_ExtractCharacters(t *testing.T) {
	ctx := context.Background()

	t.Run("構造化フィールドがあればLLMは呼ばれないのだ", func(t *testing.T) {
		ai := &countingCompleter{}
		m := New(ai, store.NewMemoryStore())

		names, err := m.ExtractCharacters(ctx, domain.Shot{Characters: "Sarah, John"})
		if err != nil {
			t.Fatalf("抽出に失敗しました: %v", err)
		}
		if len(names) != 2 || ai.calls != 0 {
			t.Errorf("構造化フィールド優先になっていません: %v (%d calls)", names, ai.calls)
		}
	})

	t.Run("JSON配列応答をパースできるのだ", func(t *testing.T) {
		ai := &countingCompleter{responses: map[string]string{"": `["Sarah", "Marcus"]`}}
		m := New(ai, store.NewMemoryStore())

		names, err := m.ExtractCharacters(ctx, domain.Shot{Action: "Sarah talks to Marcus"})
		if err != nil {
			t.Fatalf("抽出に失敗しました: %v", err)
		}
		if len(names) != 2 || names[0] != "Sarah" {
			t.Errorf("期待値 [Sarah Marcus], 実際の値 %v", names)
		}
	})

	t.Run("シングルクォートの崩れた配列も許容するのだ", func(t *testing.T) {
		names, ok := parseNameList(`['Sarah', 'John']`)
		if !ok || len(names) != 2 {
			t.Errorf("崩れた引用の矯正に失敗しました: %v (%v)", names, ok)
		}
	})

	t.Run("構造化パースが全滅したら手動抽出に落ちるのだ", func(t *testing.T) {
		ai := &countingCompleter{responses: map[string]string{"": "Sarah, John"}}
		m := New(ai, store.NewMemoryStore())

		names, err := m.ExtractCharacters(ctx, domain.Shot{Action: "two people argue"})
		if err != nil {
			t.Fatalf("抽出に失敗しました: %v", err)
		}
		if len(names) != 2 {
			t.Errorf("手動抽出の結果が不正です: %v", names)
		}
	})

	t.Run("本文が空ならLLMを呼ばず空リストなのだ", func(t *testing.T) {
		ai := &countingCompleter{}
		m := New(ai, store.NewMemoryStore())
		names, err := m.ExtractCharacters(ctx, domain.Shot{})
		if err != nil || names != nil {
			t.Errorf("空ショットの抽出結果が不正です: %v, %v", names, err)
		}
	})
}

func TestCharacterMemory_EnhancePrompt(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	_, _ = ms.PutCharacterIfAbsent(ctx, domain.CharacterProfile{Name: "Sarah", VisualDescription: "red coat, sharp eyes"})

	m := New(&countingCompleter{}, ms)

	got := m.EnhancePrompt(ctx, "base prompt", []string{"Sarah"})
	want := fmt.Sprintf("base prompt\n\nCharacter Appearances:\n%s: %s", "Sarah", "red coat, sharp eyes")
	if got != want {
		t.Errorf("期待値:\n%s\n実際:\n%s", want, got)
	}

	if got := m.EnhancePrompt(ctx, "base prompt", nil); got != "base prompt" {
		t.Error("名前なしでプロンプトが変更されました")
	}
}
