// Package quota は外部呼び出しの前段に立つ消費ゲートを提供します。
// ゲートの許可なしに LLM 呼び出しも画像生成も発行してはならないのだ。
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// DefaultWindow は消費カウンタのローリング窓の長さです。
const DefaultWindow = 24 * time.Hour

// Decision は CanSpend の判定結果です。
type Decision struct {
	Allowed bool
	Reason  string
}

// Err は拒否された判定を QuotaError に変換します。許可されていれば nil です。
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &QuotaError{Reason: d.Reason}
}

// QuotaError は日次上限超過を表します。呼び出し側はこれを
// 「アップグレードするか待つ」という行動可能な条件として扱います。
type QuotaError struct {
	Reason string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Reason)
}

// IsQuotaError は err が上限超過由来かを判定するのだ。
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// Gate は消費の事前確認と事後記録の契約です。breakdown と engine の両方がこれを通ります。
type Gate interface {
	CanSpend(ctx context.Context, userID string, tier domain.Tier, kind domain.SpendKind) (Decision, error)
	Record(ctx context.Context, userID string, kind domain.SpendKind, costEstimate float64) error
}

// Governor は Gate の実装です。台帳の読み書きは注入されたストアに委ね、
// 同一ユーザーの read-modify-write をユーザー単位のロックで直列化します。
type Governor struct {
	ledgers store.LedgerStore
	window  time.Duration
	locks   sync.Map // userID -> *sync.Mutex
	now     func() time.Time
}

// NewGovernor は Governor を初期化します。window が 0 の場合は DefaultWindow を使います。
func NewGovernor(ledgers store.LedgerStore, window time.Duration) *Governor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Governor{
		ledgers: ledgers,
		window:  window,
		now:     time.Now,
	}
}

// CanSpend は種別の呼び出しを1回発行してよいかを判定します。
// 拒否された場合、外部呼び出しは一切発行されてはなりません。
func (g *Governor) CanSpend(ctx context.Context, userID string, tier domain.Tier, kind domain.SpendKind) (Decision, error) {
	mu := g.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	ledger, err := g.currentLedger(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	if limit := tier.Limit(kind); ledger.Count(kind) >= limit {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("daily %s limit reached (%d/%d) for tier %s", kind, ledger.Count(kind), limit, tier.Name),
		}, nil
	}
	if tier.MaxCostUnitsPerDay > 0 && ledger.EstimatedCostUnits >= tier.MaxCostUnitsPerDay {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("daily cost budget reached (%.1f/%.1f units) for tier %s", ledger.EstimatedCostUnits, tier.MaxCostUnitsPerDay, tier.Name),
		}, nil
	}
	return Decision{Allowed: true}, nil
}

// Record は発行済みの呼び出し1回分を台帳に加算します。
func (g *Governor) Record(ctx context.Context, userID string, kind domain.SpendKind, costEstimate float64) error {
	mu := g.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	ledger, err := g.currentLedger(ctx, userID)
	if err != nil {
		return err
	}

	switch kind {
	case domain.SpendImage:
		ledger.ImageGenerations++
	default:
		ledger.LLMCalls++
	}
	ledger.EstimatedCostUnits += costEstimate

	if err := g.ledgers.PutLedger(ctx, ledger); err != nil {
		return fmt.Errorf("台帳の更新に失敗しました: %w", err)
	}
	return nil
}

// currentLedger は台帳を読み出し、窓が満了していればその場でリセットします。
// バックグラウンドタイマーは不要で、満了後の最初のアクセスが新しい窓を開くのだ。
func (g *Governor) currentLedger(ctx context.Context, userID string) (domain.CostLedger, error) {
	now := g.now()
	ledger, err := g.ledgers.GetLedger(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.CostLedger{UserID: userID, WindowStart: now}, nil
	case err != nil:
		return domain.CostLedger{}, fmt.Errorf("台帳の読み出しに失敗しました: %w", err)
	}

	if ledger.Expired(now, g.window) {
		slog.Debug("消費窓が満了したためリセットします", "user_id", userID, "window_start", ledger.WindowStart)
		return domain.CostLedger{UserID: userID, WindowStart: now}, nil
	}
	return ledger, nil
}

func (g *Governor) userLock(userID string) *sync.Mutex {
	value, _ := g.locks.LoadOrStore(userID, &sync.Mutex{})
	return value.(*sync.Mutex)
}
