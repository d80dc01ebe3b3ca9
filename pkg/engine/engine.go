// Package engine はショット1件分の画像生成ステートマシンを実装します。
// プロンプトの段階的な安全化カスケードと一時的障害のリトライを受け持ち、
// どの経路をたどっても最終状態を必ず永続化するのだ。
package engine

import (
	"context"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/quota"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// 一時的障害に対する戦略あたりの最大試行回数です。
const maxAttemptsPerStrategy = 3

// DefaultRetryInterval はリトライ間隔の初期値です。
const DefaultRetryInterval = 2 * time.Second

// ImageRequest は画像生成クライアントへの1回分の依頼です。
type ImageRequest struct {
	Prompt string
	Seed   *int64
}

// GeneratedImage は生成された画像バイト列です。
type GeneratedImage struct {
	Data     []byte
	MimeType string
}

// ImageClient は画像生成APIの抽象です。
type ImageClient interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*GeneratedImage, error)
}

// PromptEnricher は登場人物名の解決とプロンプトへの容姿記述の合成を担います。
type PromptEnricher interface {
	// ExtractCharacters はショットから登場人物名を割り出します。
	// 構造化フィールドが空の場合は本文からの推定も試みます。
	ExtractCharacters(ctx context.Context, shot domain.Shot) ([]string, error)
	EnhancePrompt(ctx context.Context, basePrompt string, names []string) string
}

// Request はショット1件の生成依頼です。
type Request struct {
	Shot         domain.Shot
	SceneHeading string
	UserID       string
	Tier         domain.Tier
	// OverridePrompt が非空なら構造化フィールドからの組み立てを行わず、この文字列を基点にします。
	OverridePrompt string
}

// OutcomeKind は生成依頼の終着点です。
type OutcomeKind string

const (
	OutcomeSucceeded   OutcomeKind = "succeeded"
	OutcomeFailed      OutcomeKind = "failed"
	OutcomeQuotaDenied OutcomeKind = "quota_denied"
	// OutcomeSkipped は生成を発行しなかったことを示します。Engine 自身は
	// 返しませんが、バッチ層が成功済みスキップや打ち切りの記録に使います。
	OutcomeSkipped OutcomeKind = "skipped"
)

// Outcome は1ショット分の処理結果です。Shot には更新後の状態が入ります。
// クォータ拒否の場合だけはショットに手を付けず unattempted のまま返します。
type Outcome struct {
	Kind   OutcomeKind
	Shot   domain.Shot
	Reason domain.FailureReason
	Detail string
}

// Config は Engine の依存一式です。
type Config struct {
	Images        ImageClient
	Enricher      PromptEnricher
	Rewriter      *prompts.SafetyRewriter
	Gate          quota.Gate
	Shots         store.ShotStore
	Limiter       *rate.Limiter
	RetryInterval time.Duration
	ImageCost     float64
	LLMCost       float64
}

// Engine はショット単位の画像生成を駆動します。並行利用できます。
type Engine struct {
	images        ImageClient
	enricher      PromptEnricher
	rewriter      *prompts.SafetyRewriter
	gate          quota.Gate
	shots         store.ShotStore
	limiter       *rate.Limiter
	retryInterval time.Duration
	imageCost     float64
	llmCost       float64
	now           func() time.Time
}

func New(cfg Config) *Engine {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.ImageCost <= 0 {
		cfg.ImageCost = 1
	}
	if cfg.LLMCost <= 0 {
		cfg.LLMCost = 1
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Engine{
		images:        cfg.Images,
		enricher:      cfg.Enricher,
		rewriter:      cfg.Rewriter,
		gate:          cfg.Gate,
		shots:         cfg.Shots,
		limiter:       cfg.Limiter,
		retryInterval: cfg.RetryInterval,
		imageCost:     cfg.ImageCost,
		llmCost:       cfg.LLMCost,
		now:           time.Now,
	}
}

type promptStrategy struct {
	name   string
	prompt string
}

// Generate はショット1件の画像生成を最後まで駆動します。
// エラーは戻り値の Outcome に畳み込まれるため、呼び出し側はエラー分岐を持ちません。
func (e *Engine) Generate(ctx context.Context, req Request) Outcome {
	shot := req.Shot

	decision, err := e.gate.CanSpend(ctx, req.UserID, req.Tier, domain.SpendImage)
	if err != nil {
		slog.Error("台帳の照会に失敗したため生成を見送ります", "shot", shot.String(), "error", err)
		return Outcome{Kind: OutcomeQuotaDenied, Shot: shot, Detail: "ledger unavailable: " + err.Error()}
	}
	if !decision.Allowed {
		slog.Info("クォータ上限のため画像生成を見送ります", "shot", shot.String(), "user_id", req.UserID, "reason", decision.Reason)
		return Outcome{Kind: OutcomeQuotaDenied, Shot: shot, Detail: decision.Reason}
	}

	names := e.resolveNames(ctx, shot)
	primary := e.buildPrimaryPrompt(ctx, req, names)
	strategies := []promptStrategy{
		{name: "sanitized", prompt: primary},
		{name: "smart_fallback", prompt: prompts.SmartFallbackPrompt(shot.ShotType, prompts.CategoryFor(shot))},
		{name: "ultra_safe", prompt: prompts.UltraSafePrompt(shot.ShotType, prompts.LocationCategory(req.SceneHeading))},
	}

	seed := seedFor(names)
	lastKind := KindTransient
	lastPrompt := primary

	for _, st := range strategies {
		lastPrompt = st.prompt
		img, kind, attemptErr := e.attemptStrategy(ctx, st.prompt, seed)
		if attemptErr == nil {
			if recErr := e.gate.Record(ctx, req.UserID, domain.SpendImage, e.imageCost); recErr != nil {
				slog.Warn("消費の記帳に失敗しました", "shot", shot.String(), "error", recErr)
			}
			shot.MarkSucceeded(img.Data, img.MimeType, st.prompt, e.now())
			if downgraded := e.persist(ctx, &shot); downgraded {
				return Outcome{Kind: OutcomeFailed, Shot: shot, Reason: domain.ReasonStorage}
			}
			slog.Info("画像生成に成功しました", "shot", shot.String(), "strategy", st.name)
			return Outcome{Kind: OutcomeSucceeded, Shot: shot}
		}
		lastKind = kind
		slog.Warn("画像生成の戦略が失敗しました",
			"shot", shot.String(), "strategy", st.name, "error", attemptErr)
		if kind == KindCanceled {
			break
		}
	}

	reason := domain.ReasonGeneration
	if lastKind == KindPolicy {
		reason = domain.ReasonPolicy
	}
	shot.MarkFailed(reason, lastPrompt)
	e.persist(ctx, &shot)
	return Outcome{Kind: OutcomeFailed, Shot: shot, Reason: shot.GenerationStatus.Reason()}
}

// buildPrimaryPrompt はカスケード第一段のプロンプトを組み立てます。
// 構造化フィールドからの組み立て、登場人物記述の合成、必要ならLLM書き換え、
// 最後に置換ベースのサニタイズという順序です。
func (e *Engine) buildPrimaryPrompt(ctx context.Context, req Request, names []string) string {
	base := req.OverridePrompt
	if base == "" {
		base = prompts.BuildShotPrompt(req.Shot)
	}
	if e.enricher != nil {
		base = e.enricher.EnhancePrompt(ctx, base, names)
	}
	if e.rewriter != nil {
		if rewritten, ok := e.tryRewrite(ctx, req, base); ok {
			base = rewritten
		}
	}
	return prompts.Sanitize(base)
}

// tryRewrite はLLM予算が残っている場合だけ安全化書き換えを試みます。
// 失敗しても呼び出し元が置換ベースのサニタイズへ落ちるだけなのだ。
func (e *Engine) tryRewrite(ctx context.Context, req Request, base string) (string, bool) {
	decision, err := e.gate.CanSpend(ctx, req.UserID, req.Tier, domain.SpendLLM)
	if err != nil || !decision.Allowed {
		return "", false
	}
	result, err := e.rewriter.Rewrite(ctx, base)
	if err != nil {
		slog.Debug("プロンプト書き換えを見送ります", "shot", req.Shot.String(), "error", err)
		return "", false
	}
	if recErr := e.gate.Record(ctx, req.UserID, domain.SpendLLM, e.llmCost); recErr != nil {
		slog.Warn("消費の記帳に失敗しました", "shot", req.Shot.String(), "error", recErr)
	}
	return result.RewrittenPrompt, true
}

// attemptStrategy は単一プロンプトでの生成を一時的障害に限り再試行します。
// ポリシー違反と流量制限は即座に打ち切り、呼び出し元が次の戦略へ進みます。
func (e *Engine) attemptStrategy(ctx context.Context, prompt string, seed *int64) (*GeneratedImage, FailureKind, error) {
	var img *GeneratedImage
	kind := KindTransient

	operation := func() error {
		if waitErr := e.limiter.Wait(ctx); waitErr != nil {
			kind = KindCanceled
			return backoff.Permanent(waitErr)
		}
		result, genErr := e.images.GenerateImage(ctx, ImageRequest{Prompt: prompt, Seed: seed})
		if genErr == nil {
			img = result
			return nil
		}
		kind = Classify(genErr)
		if kind == KindTransient {
			return genErr
		}
		return backoff.Permanent(genErr)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryInterval
	err := backoff.Retry(operation, backoff.WithMaxRetries(bo, maxAttemptsPerStrategy-1))
	if err != nil {
		return nil, kind, err
	}
	return img, kind, nil
}

// persist は終端状態を無条件で保存します。呼び出し側のコンテキストが
// 打ち切られていても書き込みは完遂させます。一次保存が落ちた場合は
// 画像バイト列を捨てた簡約レコードで一度だけ再試行し、その際は
// 簡約レコードへ降格したことを真で返します。
func (e *Engine) persist(ctx context.Context, shot *domain.Shot) bool {
	bg := context.WithoutCancel(ctx)
	err := e.shots.UpdateShot(bg, *shot)
	if err == nil {
		return false
	}
	slog.Error("ショットの保存に失敗しました。簡約レコードで再試行します", "shot", shot.String(), "error", err)

	simplified := *shot
	simplified.ImageData = nil
	simplified.ImageMimeType = ""
	simplified.GenerationStatus = domain.FailedStatus(domain.ReasonStorage)
	if retryErr := e.shots.UpdateShot(bg, simplified); retryErr != nil {
		slog.Error("簡約レコードの保存にも失敗しました", "shot", shot.String(), "error", retryErr)
		return false
	}
	*shot = simplified
	return true
}

// resolveNames は登場人物名の一覧を確定させます。抽出に失敗しても
// 構造化フィールドの内容で続行します。
func (e *Engine) resolveNames(ctx context.Context, shot domain.Shot) []string {
	if e.enricher == nil {
		return shot.CharacterNames()
	}
	names, err := e.enricher.ExtractCharacters(ctx, shot)
	if err != nil {
		slog.Debug("登場人物名の抽出に失敗しました", "shot", shot.String(), "error", err)
		return shot.CharacterNames()
	}
	return names
}

// seedFor は先頭の登場人物名から決定的なシードを導出します。
// 同じ人物が出るショット間で画風の揺れを抑えるための措置です。
func seedFor(names []string) *int64 {
	if len(names) == 0 {
		return nil
	}
	seed := domain.SeedFromName(names[0])
	return &seed
}
