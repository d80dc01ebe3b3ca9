package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenes (
	parse_job_id  TEXT NOT NULL,
	scene_number  INTEGER NOT NULL,
	scene_heading TEXT NOT NULL,
	location      TEXT NOT NULL,
	time_of_day   TEXT NOT NULL,
	raw_text      TEXT NOT NULL,
	PRIMARY KEY (parse_job_id, scene_number)
);

CREATE TABLE IF NOT EXISTS shots (
	id                   TEXT PRIMARY KEY,
	parse_job_id         TEXT NOT NULL,
	scene_index          INTEGER NOT NULL,
	shot_number_in_scene INTEGER NOT NULL,
	shot_description     TEXT NOT NULL DEFAULT '',
	shot_type            TEXT NOT NULL DEFAULT '',
	lens                 TEXT NOT NULL DEFAULT '',
	movement             TEXT NOT NULL DEFAULT '',
	mood_and_ambience    TEXT NOT NULL DEFAULT '',
	lighting             TEXT NOT NULL DEFAULT '',
	props                TEXT NOT NULL DEFAULT '',
	notes                TEXT NOT NULL DEFAULT '',
	sound_design         TEXT NOT NULL DEFAULT '',
	colour_temp          TEXT NOT NULL DEFAULT '',
	tone                 TEXT NOT NULL DEFAULT '',
	characters           TEXT NOT NULL DEFAULT '',
	action               TEXT NOT NULL DEFAULT '',
	dialogue             TEXT NOT NULL DEFAULT '',
	image_prompt_text    TEXT NOT NULL DEFAULT '',
	image_data           BLOB,
	image_mime_type      TEXT NOT NULL DEFAULT '',
	image_generated_at   TEXT,
	generation_status    TEXT NOT NULL DEFAULT 'unattempted'
);
CREATE INDEX IF NOT EXISTS idx_shots_job_scene ON shots (parse_job_id, scene_index);

CREATE TABLE IF NOT EXISTS characters (
	name               TEXT PRIMARY KEY,
	visual_description TEXT NOT NULL,
	created_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cost_ledgers (
	user_id              TEXT PRIMARY KEY,
	window_start         TEXT NOT NULL,
	llm_calls            INTEGER NOT NULL DEFAULT 0,
	image_generations    INTEGER NOT NULL DEFAULT 0,
	estimated_cost_units REAL NOT NULL DEFAULT 0
);
`

// SQLiteStore は Store の SQLite 実装です。単一プロセスの CLI 実行でも
// 複数回の実行にまたがって台帳とキャラクター描写を共有できるのだ。
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite は DB ファイルを開き、スキーマを適用して SQLiteStore を返します。
// 親ディレクトリが無ければ作成します。
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("DBディレクトリの作成に失敗しました: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("SQLiteのオープンに失敗しました: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーマ適用に失敗しました: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close は下層の DB 接続を閉じます。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveScenes(ctx context.Context, parseJobID string, scenes []domain.Scene) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT OR REPLACE INTO scenes
		(parse_job_id, scene_number, scene_heading, location, time_of_day, raw_text)
		VALUES (?, ?, ?, ?, ?, ?)`
	for _, sc := range scenes {
		if _, err := tx.ExecContext(ctx, q,
			parseJobID, sc.SceneNumber, sc.SceneHeading, sc.Location, sc.TimeOfDay, sc.RawText); err != nil {
			return fmt.Errorf("シーン %d の保存に失敗しました: %w", sc.SceneNumber, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListScenes(ctx context.Context, parseJobID string) ([]domain.Scene, error) {
	const q = `SELECT scene_number, scene_heading, location, time_of_day, raw_text
		FROM scenes WHERE parse_job_id = ? ORDER BY scene_number`
	rows, err := s.db.QueryContext(ctx, q, parseJobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []domain.Scene
	for rows.Next() {
		var sc domain.Scene
		if err := rows.Scan(&sc.SceneNumber, &sc.SceneHeading, &sc.Location, &sc.TimeOfDay, &sc.RawText); err != nil {
			return nil, err
		}
		scenes = append(scenes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if scenes == nil {
		return nil, fmt.Errorf("parse job %q: %w", parseJobID, ErrNotFound)
	}
	return scenes, nil
}

func (s *SQLiteStore) SaveShots(ctx context.Context, shots []domain.Shot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT OR REPLACE INTO shots
		(id, parse_job_id, scene_index, shot_number_in_scene,
		 shot_description, shot_type, lens, movement, mood_and_ambience, lighting,
		 props, notes, sound_design, colour_temp, tone, characters, action, dialogue,
		 image_prompt_text, image_data, image_mime_type, image_generated_at, generation_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, shot := range shots {
		if _, err := tx.ExecContext(ctx, q,
			shot.ID, shot.ParseJobID, shot.SceneIndex, shot.ShotNumberInScene,
			shot.ShotDescription, shot.ShotType, shot.Lens, shot.Movement, shot.MoodAndAmbience, shot.Lighting,
			shot.Props, shot.Notes, shot.SoundDesign, shot.ColourTemp, shot.Tone, shot.Characters, shot.Action, shot.Dialogue,
			shot.ImagePromptText, shot.ImageData, shot.ImageMimeType, formatTime(shot.ImageGeneratedAt), string(shot.GenerationStatus)); err != nil {
			return fmt.Errorf("ショット %s の保存に失敗しました: %w", shot, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpdateShot(ctx context.Context, shot domain.Shot) error {
	const q = `UPDATE shots SET
		image_prompt_text = ?, image_data = ?, image_mime_type = ?,
		image_generated_at = ?, generation_status = ?
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q,
		shot.ImagePromptText, shot.ImageData, shot.ImageMimeType,
		formatTime(shot.ImageGeneratedAt), string(shot.GenerationStatus), shot.ID)
	if err != nil {
		return fmt.Errorf("ショット %s の更新に失敗しました: %w", shot, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("shot %q: %w", shot.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListShots(ctx context.Context, parseJobID string, sceneIndex int) ([]domain.Shot, error) {
	const q = `SELECT id, parse_job_id, scene_index, shot_number_in_scene,
		shot_description, shot_type, lens, movement, mood_and_ambience, lighting,
		props, notes, sound_design, colour_temp, tone, characters, action, dialogue,
		image_prompt_text, image_data, image_mime_type, image_generated_at, generation_status
		FROM shots WHERE parse_job_id = ? AND scene_index = ?
		ORDER BY shot_number_in_scene`
	rows, err := s.db.QueryContext(ctx, q, parseJobID, sceneIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shots []domain.Shot
	for rows.Next() {
		var shot domain.Shot
		var generatedAt sql.NullString
		var status string
		if err := rows.Scan(&shot.ID, &shot.ParseJobID, &shot.SceneIndex, &shot.ShotNumberInScene,
			&shot.ShotDescription, &shot.ShotType, &shot.Lens, &shot.Movement, &shot.MoodAndAmbience, &shot.Lighting,
			&shot.Props, &shot.Notes, &shot.SoundDesign, &shot.ColourTemp, &shot.Tone, &shot.Characters, &shot.Action, &shot.Dialogue,
			&shot.ImagePromptText, &shot.ImageData, &shot.ImageMimeType, &generatedAt, &status); err != nil {
			return nil, err
		}
		shot.GenerationStatus = domain.GenerationStatus(status)
		if t, ok := parseTime(generatedAt); ok {
			shot.ImageGeneratedAt = &t
		}
		shots = append(shots, shot)
	}
	return shots, rows.Err()
}

func (s *SQLiteStore) GetCharacter(ctx context.Context, name string) (domain.CharacterProfile, error) {
	const q = `SELECT name, visual_description, created_at FROM characters WHERE name = ?`
	var profile domain.CharacterProfile
	var createdAt string
	err := s.db.QueryRowContext(ctx, q, name).Scan(&profile.Name, &profile.VisualDescription, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CharacterProfile{}, fmt.Errorf("character %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return domain.CharacterProfile{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		profile.CreatedAt = t
	}
	return profile, nil
}

func (s *SQLiteStore) PutCharacterIfAbsent(ctx context.Context, profile domain.CharacterProfile) (domain.CharacterProfile, error) {
	// 既存レコードを上書きしないことが一貫性保証の要なので INSERT は DO NOTHING なのだ
	const q = `INSERT INTO characters (name, visual_description, created_at)
		VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, q,
		profile.Name, profile.VisualDescription, profile.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return domain.CharacterProfile{}, fmt.Errorf("キャラクター %q の保存に失敗しました: %w", profile.Name, err)
	}
	return s.GetCharacter(ctx, profile.Name)
}

func (s *SQLiteStore) GetLedger(ctx context.Context, userID string) (domain.CostLedger, error) {
	const q = `SELECT user_id, window_start, llm_calls, image_generations, estimated_cost_units
		FROM cost_ledgers WHERE user_id = ?`
	var ledger domain.CostLedger
	var windowStart string
	err := s.db.QueryRowContext(ctx, q, userID).Scan(
		&ledger.UserID, &windowStart, &ledger.LLMCalls, &ledger.ImageGenerations, &ledger.EstimatedCostUnits)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CostLedger{}, fmt.Errorf("ledger for %q: %w", userID, ErrNotFound)
	}
	if err != nil {
		return domain.CostLedger{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, windowStart); err == nil {
		ledger.WindowStart = t
	}
	return ledger, nil
}

func (s *SQLiteStore) PutLedger(ctx context.Context, ledger domain.CostLedger) error {
	const q = `INSERT INTO cost_ledgers (user_id, window_start, llm_calls, image_generations, estimated_cost_units)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			window_start = excluded.window_start,
			llm_calls = excluded.llm_calls,
			image_generations = excluded.image_generations,
			estimated_cost_units = excluded.estimated_cost_units`
	_, err := s.db.ExecContext(ctx, q,
		ledger.UserID, ledger.WindowStart.Format(time.RFC3339Nano),
		ledger.LLMCalls, ledger.ImageGenerations, ledger.EstimatedCostUnits)
	if err != nil {
		return fmt.Errorf("台帳 %q の保存に失敗しました: %w", ledger.UserID, err)
	}
	return nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
