package quota

import (
	"context"
	"testing"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

func TestGovernor_CanSpend(t *testing.T) {
	ctx := context.Background()

	t.Run("ティア上限に達すると画像生成が拒否されるのだ", func(t *testing.T) {
		g := NewGovernor(store.NewMemoryStore(), 0)

		for i := 0; i < domain.TierFree.MaxImagesPerDay; i++ {
			d, err := g.CanSpend(ctx, "u1", domain.TierFree, domain.SpendImage)
			if err != nil || !d.Allowed {
				t.Fatalf("%d 回目の事前確認が拒否されました: %+v, %v", i+1, d, err)
			}
			if err := g.Record(ctx, "u1", domain.SpendImage, 5); err != nil {
				t.Fatalf("記録に失敗しました: %v", err)
			}
		}

		d, err := g.CanSpend(ctx, "u1", domain.TierFree, domain.SpendImage)
		if err != nil {
			t.Fatalf("事前確認に失敗しました: %v", err)
		}
		if d.Allowed {
			t.Error("上限到達後も許可されています")
		}
		if d.Reason == "" {
			t.Error("拒否理由が空です")
		}
		if !IsQuotaError(d.Err()) {
			t.Error("拒否判定が QuotaError に変換されません")
		}
	})

	t.Run("LLMと画像のカウンタは独立なのだ", func(t *testing.T) {
		g := NewGovernor(store.NewMemoryStore(), 0)
		for i := 0; i < domain.TierFree.MaxImagesPerDay; i++ {
			_ = g.Record(ctx, "u1", domain.SpendImage, 5)
		}
		d, err := g.CanSpend(ctx, "u1", domain.TierFree, domain.SpendLLM)
		if err != nil || !d.Allowed {
			t.Errorf("画像上限の到達が LLM 呼び出しを塞いでいます: %+v, %v", d, err)
		}
	})

	t.Run("窓の満了後は遅延リセットされるのだ", func(t *testing.T) {
		ms := store.NewMemoryStore()
		g := NewGovernor(ms, 0)
		for i := 0; i < domain.TierFree.MaxImagesPerDay; i++ {
			_ = g.Record(ctx, "u1", domain.SpendImage, 5)
		}

		// 25時間進んだ世界に切り替える
		g.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

		d, err := g.CanSpend(ctx, "u1", domain.TierFree, domain.SpendImage)
		if err != nil {
			t.Fatalf("事前確認に失敗しました: %v", err)
		}
		if !d.Allowed {
			t.Errorf("窓満了後もカウンタが残っています: %+v", d)
		}
	})

	t.Run("コスト予算の超過でも拒否されるのだ", func(t *testing.T) {
		g := NewGovernor(store.NewMemoryStore(), 0)
		_ = g.Record(ctx, "u1", domain.SpendLLM, domain.TierFree.MaxCostUnitsPerDay)

		d, err := g.CanSpend(ctx, "u1", domain.TierFree, domain.SpendLLM)
		if err != nil {
			t.Fatalf("事前確認に失敗しました: %v", err)
		}
		if d.Allowed {
			t.Error("コスト予算を使い切っても許可されています")
		}
	})

	t.Run("ユーザーごとに台帳は独立なのだ", func(t *testing.T) {
		g := NewGovernor(store.NewMemoryStore(), 0)
		for i := 0; i < domain.TierFree.MaxImagesPerDay; i++ {
			_ = g.Record(ctx, "u1", domain.SpendImage, 5)
		}
		d, err := g.CanSpend(ctx, "u2", domain.TierFree, domain.SpendImage)
		if err != nil || !d.Allowed {
			t.Errorf("他ユーザーの消費が波及しています: %+v, %v", d, err)
		}
	})
}
