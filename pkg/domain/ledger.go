package domain

import "time"

// SpendKind は外部呼び出しの種別です。LLM 呼び出しと画像生成で上限が別に管理されます。
type SpendKind string

const (
	SpendLLM   SpendKind = "llm"
	SpendImage SpendKind = "image"
)

// CostLedger はユーザー×24時間窓ごとの消費カウンタです。
// 変更は Cost Governor だけが行い、窓の満了後の最初のアクセスで遅延リセットされます。
type CostLedger struct {
	UserID             string    `json:"user_id"`
	WindowStart        time.Time `json:"window_start"`
	LLMCalls           int       `json:"llm_calls"`
	ImageGenerations   int       `json:"image_generations"`
	EstimatedCostUnits float64   `json:"estimated_cost_units"`
}

// Expired は窓が満了しているかを判定します。
func (l CostLedger) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(l.WindowStart) >= window
}

// Count は種別に対応するカウンタの現在値を返します。
func (l CostLedger) Count(kind SpendKind) int {
	if kind == SpendImage {
		return l.ImageGenerations
	}
	return l.LLMCalls
}

// Tier は購読レベルごとの上限を定義します。
type Tier struct {
	Name                string  `json:"name"`
	MaxShotsPerScene    int     `json:"max_shots_per_scene"` // 0 なら無制限
	MaxLLMCallsPerDay   int     `json:"max_llm_calls_per_day"`
	MaxImagesPerDay     int     `json:"max_images_per_day"`
	MaxCostUnitsPerDay  float64 `json:"max_cost_units_per_day"`
}

// Limit は種別に対応する1日あたりの上限を返します。
func (t Tier) Limit(kind SpendKind) int {
	if kind == SpendImage {
		return t.MaxImagesPerDay
	}
	return t.MaxLLMCallsPerDay
}

// 既定のティア定義なのだ。無料枠は画像生成が1桁、有料枠は1桁上がります。
var (
	TierFree = Tier{
		Name:               "free",
		MaxShotsPerScene:   8,
		MaxLLMCallsPerDay:  20,
		MaxImagesPerDay:    3,
		MaxCostUnitsPerDay: 50,
	}
	TierPro = Tier{
		Name:               "pro",
		MaxShotsPerScene:   0,
		MaxLLMCallsPerDay:  200,
		MaxImagesPerDay:    30,
		MaxCostUnitsPerDay: 500,
	}
)

// TierByName は名前からティアを解決します。未知の名前は安全側に倒して free です。
func TierByName(name string) Tier {
	if name == TierPro.Name {
		return TierPro
	}
	return TierFree
}
