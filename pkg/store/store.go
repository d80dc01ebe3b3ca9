package store

import (
	"context"
	"errors"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// ErrNotFound はキーに対応するレコードが存在しないことを示します。
var ErrNotFound = errors.New("store: record not found")

// SceneStore はシーンの永続化を担います。シーンは抽出後に不変です。
type SceneStore interface {
	SaveScenes(ctx context.Context, parseJobID string, scenes []domain.Scene) error
	ListScenes(ctx context.Context, parseJobID string) ([]domain.Scene, error)
}

// ShotStore はショットの永続化を担います。作成は一括、更新は画像系フィールドのみです。
type ShotStore interface {
	SaveShots(ctx context.Context, shots []domain.Shot) error
	// UpdateShot は ID をキーに画像系フィールドと生成ステータスを更新します。
	UpdateShot(ctx context.Context, shot domain.Shot) error
	ListShots(ctx context.Context, parseJobID string, sceneIndex int) ([]domain.Shot, error)
}

// CharacterStore は登場人物の外見描写キャッシュを担います。
type CharacterStore interface {
	// GetCharacter は名前（大文字小文字を区別）でプロフィールを引きます。
	// 見つからない場合は ErrNotFound を返します。
	GetCharacter(ctx context.Context, name string) (domain.CharacterProfile, error)
	// PutCharacterIfAbsent は未登録の場合のみ保存し、最終的に有効なプロフィールを返します。
	// 既存レコードは決して上書きされないのだ。
	PutCharacterIfAbsent(ctx context.Context, profile domain.CharacterProfile) (domain.CharacterProfile, error)
}

// LedgerStore はユーザーごとの消費台帳を担います。
type LedgerStore interface {
	GetLedger(ctx context.Context, userID string) (domain.CostLedger, error)
	PutLedger(ctx context.Context, ledger domain.CostLedger) error
}

// Store は storyboard-kit が必要とする永続化の全契約です。
// プロセス内シングルトンではなく、注入可能なリポジトリとして扱うのが流儀なのだ。
type Store interface {
	SceneStore
	ShotStore
	CharacterStore
	LedgerStore
}
