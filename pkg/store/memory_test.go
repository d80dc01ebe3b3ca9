package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func TestMemoryStore_Characters(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	t.Run("未登録の名前は ErrNotFound なのだ", func(t *testing.T) {
		_, err := ms.GetCharacter(ctx, "Sarah")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("期待値 ErrNotFound, 実際の値 %v", err)
		}
	})

	t.Run("既存プロフィールは決して上書きされないのだ", func(t *testing.T) {
		first := domain.CharacterProfile{Name: "Sarah", VisualDescription: "tall, red coat", CreatedAt: time.Now()}
		got, err := ms.PutCharacterIfAbsent(ctx, first)
		if err != nil {
			t.Fatalf("初回保存に失敗しました: %v", err)
		}
		if got.VisualDescription != first.VisualDescription {
			t.Error("初回保存の内容が返されていません")
		}

		second := domain.CharacterProfile{Name: "Sarah", VisualDescription: "short, blue dress"}
		got, err = ms.PutCharacterIfAbsent(ctx, second)
		if err != nil {
			t.Fatalf("2回目の保存呼び出しに失敗しました: %v", err)
		}
		if got.VisualDescription != first.VisualDescription {
			t.Errorf("既存の描写が上書きされました: %q", got.VisualDescription)
		}
	})

	t.Run("名前は大文字小文字を区別するのだ", func(t *testing.T) {
		if _, err := ms.GetCharacter(ctx, "sarah"); !errors.Is(err, ErrNotFound) {
			t.Error("小文字キーで既存レコードが見つかってしまいました")
		}
	})
}

func TestMemoryStore_Shots(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	shots := []domain.Shot{
		{ID: "s2", ParseJobID: "job1", SceneIndex: 1, ShotNumberInScene: 2, GenerationStatus: domain.StatusUnattempted},
		{ID: "s1", ParseJobID: "job1", SceneIndex: 1, ShotNumberInScene: 1, GenerationStatus: domain.StatusUnattempted},
		{ID: "x1", ParseJobID: "job2", SceneIndex: 1, ShotNumberInScene: 1, GenerationStatus: domain.StatusUnattempted},
	}
	if err := ms.SaveShots(ctx, shots); err != nil {
		t.Fatalf("一括保存に失敗しました: %v", err)
	}

	t.Run("ジョブとシーンで絞り込み、ショット番号順に返すのだ", func(t *testing.T) {
		got, err := ms.ListShots(ctx, "job1", 1)
		if err != nil {
			t.Fatalf("ListShots に失敗しました: %v", err)
		}
		if len(got) != 2 || got[0].ID != "s1" || got[1].ID != "s2" {
			t.Errorf("順序または件数が不正です: %+v", got)
		}
	})

	t.Run("更新はID一致のレコードにだけ反映されるのだ", func(t *testing.T) {
		shot := shots[1]
		shot.MarkFailed(domain.ReasonGeneration, "prompt")
		if err := ms.UpdateShot(ctx, shot); err != nil {
			t.Fatalf("更新に失敗しました: %v", err)
		}
		got, _ := ms.ListShots(ctx, "job1", 1)
		if got[0].GenerationStatus.Reason() != domain.ReasonGeneration {
			t.Error("更新結果が読み戻せません")
		}

		missing := domain.Shot{ID: "nope"}
		if err := ms.UpdateShot(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("存在しないIDの更新が ErrNotFound になりません: %v", err)
		}
	})
}

func TestMemoryStore_Ledgers(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	if _, err := ms.GetLedger(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("期待値 ErrNotFound, 実際の値 %v", err)
	}

	ledger := domain.CostLedger{UserID: "u1", WindowStart: time.Now(), LLMCalls: 2, ImageGenerations: 1, EstimatedCostUnits: 3.5}
	if err := ms.PutLedger(ctx, ledger); err != nil {
		t.Fatalf("台帳の保存に失敗しました: %v", err)
	}
	got, err := ms.GetLedger(ctx, "u1")
	if err != nil {
		t.Fatalf("台帳の取得に失敗しました: %v", err)
	}
	if got.LLMCalls != 2 || got.ImageGenerations != 1 || got.EstimatedCostUnits != 3.5 {
		t.Errorf("台帳の内容が一致しません: %+v", got)
	}
}
