// Package memory は登場人物の外見描写をショット間・実行間で一貫させるための
// 永続メモ化キャッシュを提供します。一度決まった外見は二度と再生成しないのだ。
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = 15 * time.Minute
)

// TextCompleter はテキスト補完サービスへの最小限の契約です。
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CharacterMemory は名前→外見描写の読み取りスルーキャッシュです。
// プロセス内キャッシュ (go-cache) の背後に永続ストアを置き、
// 同名への同時アクセスは singleflight で1回のLLM呼び出しに束ねます。
type CharacterMemory struct {
	ai       TextCompleter
	profiles store.CharacterStore
	cache    *cache.Cache
	group    singleflight.Group
	now      func() time.Time
}

// New は CharacterMemory を初期化します。
func New(ai TextCompleter, profiles store.CharacterStore) *CharacterMemory {
	return &CharacterMemory{
		ai:       ai,
		profiles: profiles,
		cache:    cache.New(defaultCacheExpiration, cacheCleanupInterval),
		now:      time.Now,
	}
}

const describeSystemPrompt = `You create visual descriptions of film characters for storyboard consistency.
Given a character name, respond with a 100-150 word physical description covering
face, hair, build, typical clothing and distinguishing features. Plain text only.`

// DescriptionFor は名前に対応する外見描写を返します。
// キャッシュの寿命の間、この関数は名前ごとに冪等です。初回だけLLMに問い合わせ、
// 永続化後は常に同じ文字列が返ります。
func (m *CharacterMemory) DescriptionFor(ctx context.Context, name string) (string, error) {
	if cached, ok := m.cache.Get(name); ok {
		return cached.(string), nil
	}

	value, err, _ := m.group.Do(name, func() (interface{}, error) {
		// singleflight 待機中に別ゴルーチンが解決している可能性があるため再確認
		if cached, ok := m.cache.Get(name); ok {
			return cached.(string), nil
		}

		profile, err := m.profiles.GetCharacter(ctx, name)
		if err == nil {
			m.cache.SetDefault(name, profile.VisualDescription)
			return profile.VisualDescription, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("キャラクターの読み出しに失敗しました: %w", err)
		}

		description, err := m.describeWithLLM(ctx, name)
		if err != nil {
			return nil, err
		}

		// 競合した書き込みがあっても先勝ちの内容が返る (no-overwrite)
		winner, err := m.profiles.PutCharacterIfAbsent(ctx, domain.CharacterProfile{
			Name:              name,
			VisualDescription: description,
			CreatedAt:         m.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("キャラクターの保存に失敗しました: %w", err)
		}

		m.cache.SetDefault(name, winner.VisualDescription)
		return winner.VisualDescription, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (m *CharacterMemory) describeWithLLM(ctx context.Context, name string) (string, error) {
	slog.Info("キャラクター描写を新規生成します", "name", name)
	raw, err := m.ai.Complete(ctx, describeSystemPrompt,
		fmt.Sprintf("Describe the character %q.", name))
	if err != nil {
		return "", fmt.Errorf("キャラクター %q の描写生成に失敗しました: %w", name, err)
	}

	description := strings.TrimSpace(raw)
	if description == "" {
		return "", fmt.Errorf("キャラクター %q の描写が空でした", name)
	}
	return description, nil
}

// EnhancePrompt はベースプロンプトに Character Appearances ブロックを付加します。
// 個別の描写解決に失敗した名前はスキップし、強化はベストエフォートに留めるのだ。
func (m *CharacterMemory) EnhancePrompt(ctx context.Context, basePrompt string, names []string) string {
	if len(names) == 0 {
		return basePrompt
	}

	var lines []string
	for _, name := range names {
		description, err := m.DescriptionFor(ctx, name)
		if err != nil {
			slog.Warn("外見描写の解決に失敗したためスキップします", "name", name, "error", err)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, description))
	}
	if len(lines) == 0 {
		return basePrompt
	}

	return basePrompt + "\n\nCharacter Appearances:\n" + strings.Join(lines, "\n")
}
