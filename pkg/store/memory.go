package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// MemoryStore は Store のインメモリ実装です。
// テストや、永続化先を持たないライブラリ組み込みで使用します。
type MemoryStore struct {
	mu         sync.RWMutex
	scenes     map[string][]domain.Scene          // parseJobID -> scenes
	shots      map[string]domain.Shot             // shotID -> shot
	characters map[string]domain.CharacterProfile // name -> profile
	ledgers    map[string]domain.CostLedger       // userID -> ledger
}

// NewMemoryStore は空の MemoryStore を初期化するのだ。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenes:     make(map[string][]domain.Scene),
		shots:      make(map[string]domain.Shot),
		characters: make(map[string]domain.CharacterProfile),
		ledgers:    make(map[string]domain.CostLedger),
	}
}

func (m *MemoryStore) SaveScenes(_ context.Context, parseJobID string, scenes []domain.Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]domain.Scene, len(scenes))
	copy(copied, scenes)
	m.scenes[parseJobID] = copied
	return nil
}

func (m *MemoryStore) ListScenes(_ context.Context, parseJobID string) ([]domain.Scene, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scenes, ok := m.scenes[parseJobID]
	if !ok {
		return nil, fmt.Errorf("parse job %q: %w", parseJobID, ErrNotFound)
	}
	copied := make([]domain.Scene, len(scenes))
	copy(copied, scenes)
	return copied, nil
}

func (m *MemoryStore) SaveShots(_ context.Context, shots []domain.Shot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, shot := range shots {
		if shot.ID == "" {
			return fmt.Errorf("shot %s に ID がありません", shot)
		}
		m.shots[shot.ID] = shot
	}
	return nil
}

func (m *MemoryStore) UpdateShot(_ context.Context, shot domain.Shot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shots[shot.ID]; !ok {
		return fmt.Errorf("shot %q: %w", shot.ID, ErrNotFound)
	}
	m.shots[shot.ID] = shot
	return nil
}

func (m *MemoryStore) ListShots(_ context.Context, parseJobID string, sceneIndex int) ([]domain.Shot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var shots domain.Shots
	for _, shot := range m.shots {
		if shot.ParseJobID == parseJobID && shot.SceneIndex == sceneIndex {
			shots = append(shots, shot)
		}
	}
	// 永続化順ではなくショット番号順で返すのだ
	sort.Slice(shots, func(i, j int) bool {
		return shots[i].ShotNumberInScene < shots[j].ShotNumberInScene
	})
	return shots, nil
}

func (m *MemoryStore) GetCharacter(_ context.Context, name string) (domain.CharacterProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.characters[name]
	if !ok {
		return domain.CharacterProfile{}, fmt.Errorf("character %q: %w", name, ErrNotFound)
	}
	return profile, nil
}

func (m *MemoryStore) PutCharacterIfAbsent(_ context.Context, profile domain.CharacterProfile) (domain.CharacterProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.characters[profile.Name]; ok {
		return existing, nil
	}
	m.characters[profile.Name] = profile
	return profile, nil
}

func (m *MemoryStore) GetLedger(_ context.Context, userID string) (domain.CostLedger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ledger, ok := m.ledgers[userID]
	if !ok {
		return domain.CostLedger{}, fmt.Errorf("ledger for %q: %w", userID, ErrNotFound)
	}
	return ledger, nil
}

func (m *MemoryStore) PutLedger(_ context.Context, ledger domain.CostLedger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgers[ledger.UserID] = ledger
	return nil
}
