// Package orchestrator はシーン単位の画像生成ファンアウトを受け持ちます。
// 1ショットの失敗が他のショットを道連れにしないこと、全ショットの完了を
// 待ってから集計を返すことがこの層の契約です。
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/engine"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// DefaultConcurrency は同時に飛ばす生成リクエストの既定上限です。
const DefaultConcurrency = 3

// Generator はショット1件を終端状態まで駆動するものの抽象です。
type Generator interface {
	Generate(ctx context.Context, req engine.Request) engine.Outcome
}

// BatchRequest はシーン1つ分の一括生成依頼です。
type BatchRequest struct {
	ParseJobID   string
	SceneIndex   int
	SceneHeading string
	UserID       string
	Tier         domain.Tier
	// Force が真なら成功済みショットも再生成します。
	Force bool
}

// ShotResult はバッチ内の1ショット分の結末です。
type ShotResult struct {
	Shot   domain.Shot
	Kind   engine.OutcomeKind
	Reason domain.FailureReason
	Detail string
}

// BatchResult はシーン全体の集計です。Results はショット番号順に並びます。
type BatchResult struct {
	Total       int
	Succeeded   int
	Failed      int
	QuotaDenied int
	Skipped     int
	Results     []ShotResult
}

// Orchestrator は保存済みショットの一覧に対して生成を並列に発行します。
type Orchestrator struct {
	engine      Generator
	shots       store.ShotStore
	concurrency int
}

func New(gen Generator, shots store.ShotStore, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{engine: gen, shots: shots, concurrency: concurrency}
}

// GenerateScene はシーンの全ショットを生成し、全件の完了を待って集計を返します。
// 個々のショットの失敗はエラーにせず Results に畳み込みます。エラーを返すのは
// ショット一覧の読み出し自体ができなかった場合だけです。
func (o *Orchestrator) GenerateScene(ctx context.Context, req BatchRequest) (BatchResult, error) {
	shots, err := o.shots.ListShots(ctx, req.ParseJobID, req.SceneIndex)
	if err != nil {
		return BatchResult{}, fmt.Errorf("ショット一覧の読み出しに失敗しました (job=%s scene=%d): %w", req.ParseJobID, req.SceneIndex, err)
	}

	results := make([]ShotResult, len(shots))
	eg := &errgroup.Group{}
	eg.SetLimit(o.concurrency)

	for i, shot := range shots {
		if shot.GenerationStatus == domain.StatusSucceeded && !req.Force {
			results[i] = ShotResult{Shot: shot, Kind: engine.OutcomeSkipped, Detail: "already succeeded"}
			continue
		}
		// 打ち切り後は新しいショットを発行しません。飛行中のものは Wait で待ちます。
		if ctx.Err() != nil {
			results[i] = ShotResult{Shot: shot, Kind: engine.OutcomeSkipped, Detail: "context canceled before dispatch"}
			continue
		}
		i, shot := i, shot
		eg.Go(func() error {
			outcome := o.engine.Generate(ctx, engine.Request{
				Shot:         shot,
				SceneHeading: req.SceneHeading,
				UserID:       req.UserID,
				Tier:         req.Tier,
			})
			results[i] = ShotResult{
				Shot:   outcome.Shot,
				Kind:   outcome.Kind,
				Reason: outcome.Reason,
				Detail: outcome.Detail,
			}
			return nil
		})
	}

	// タスクは常に nil を返すため Wait のエラーは出ません。全件の完了待ちが目的です。
	_ = eg.Wait()

	batch := tally(results)
	slog.Info("シーンの一括生成が完了しました",
		"job_id", req.ParseJobID, "scene", req.SceneIndex,
		"total", batch.Total, "succeeded", batch.Succeeded,
		"failed", batch.Failed, "quota_denied", batch.QuotaDenied, "skipped", batch.Skipped)
	return batch, nil
}

// RegenerateShot はシーン内の特定ショットだけを作り直します。成功済みでも
// 再生成し、OverridePrompt が非空ならそれを基点プロンプトとして使います。
func (o *Orchestrator) RegenerateShot(ctx context.Context, req BatchRequest, shotNumber int, overridePrompt string) (ShotResult, error) {
	shots, err := o.shots.ListShots(ctx, req.ParseJobID, req.SceneIndex)
	if err != nil {
		return ShotResult{}, fmt.Errorf("ショット一覧の読み出しに失敗しました (job=%s scene=%d): %w", req.ParseJobID, req.SceneIndex, err)
	}
	for _, shot := range shots {
		if shot.ShotNumberInScene != shotNumber {
			continue
		}
		outcome := o.engine.Generate(ctx, engine.Request{
			Shot:           shot,
			SceneHeading:   req.SceneHeading,
			UserID:         req.UserID,
			Tier:           req.Tier,
			OverridePrompt: overridePrompt,
		})
		return ShotResult{Shot: outcome.Shot, Kind: outcome.Kind, Reason: outcome.Reason, Detail: outcome.Detail}, nil
	}
	return ShotResult{}, fmt.Errorf("ショットが見つかりません (job=%s scene=%d shot=%d): %w", req.ParseJobID, req.SceneIndex, shotNumber, store.ErrNotFound)
}

func tally(results []ShotResult) BatchResult {
	batch := BatchResult{Total: len(results), Results: results}
	for _, r := range results {
		switch r.Kind {
		case engine.OutcomeSucceeded:
			batch.Succeeded++
		case engine.OutcomeFailed:
			batch.Failed++
		case engine.OutcomeQuotaDenied:
			batch.QuotaDenied++
		case engine.OutcomeSkipped:
			batch.Skipped++
		}
	}
	return batch
}
