package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// GenerationStatus はショット画像生成の最終到達状態を表します。
// 「試行したのに unattempted のまま」という状態は許されず、
// 失敗は必ず型付きの理由 (FailureReason) 付きで記録されます。
type GenerationStatus string

const (
	StatusUnattempted GenerationStatus = "unattempted"
	StatusSucceeded   GenerationStatus = "succeeded"

	failedPrefix = "failed:"
)

// FailureReason は失敗の分類を表す型付きセンチネルなのだ。
type FailureReason string

const (
	ReasonGeneration FailureReason = "GENERATION_ERROR"
	ReasonPolicy     FailureReason = "CONTENT_POLICY_ERROR"
	ReasonStorage    FailureReason = "STORAGE_FAILED"
	ReasonProcessing FailureReason = "PROCESSING_ERROR"
)

// FailedStatus は理由付きの失敗ステータスを構築します。
func FailedStatus(reason FailureReason) GenerationStatus {
	return GenerationStatus(failedPrefix + string(reason))
}

// IsFailed はステータスが失敗系かどうかを判定します。
func (s GenerationStatus) IsFailed() bool {
	return strings.HasPrefix(string(s), failedPrefix)
}

// Reason は失敗ステータスから理由部分を取り出します。失敗でなければ空文字です。
func (s GenerationStatus) Reason() FailureReason {
	if !s.IsFailed() {
		return ""
	}
	return FailureReason(strings.TrimPrefix(string(s), failedPrefix))
}

// Shot は絵コンテの最小単位であり、永続化と画像生成の対象です。
// 一括生成時に Breakdown Generator がシーン単位で作成し、以後の変更は
// Image Generation Engine（画像系フィールド）か明示的な再生成要求に限られます。
type Shot struct {
	ID                string `json:"id"`
	ParseJobID        string `json:"parse_job_id"`
	SceneIndex        int    `json:"scene_index"`
	ShotNumberInScene int    `json:"shot_number_in_scene"`

	ShotDescription string `json:"shot_description"`
	ShotType        string `json:"shot_type"`
	Lens            string `json:"lens"`
	Movement        string `json:"movement"`
	MoodAndAmbience string `json:"mood_and_ambience"`
	Lighting        string `json:"lighting"`
	Props           string `json:"props"`
	Notes           string `json:"notes"`
	SoundDesign     string `json:"sound_design"`
	ColourTemp      string `json:"colour_temp"`
	Tone            string `json:"tone"`
	Characters      string `json:"characters"` // カンマ区切りの登場人物名
	Action          string `json:"action"`
	Dialogue        string `json:"dialogue"`

	ImagePromptText  string           `json:"image_prompt_text,omitempty"`
	ImageData        []byte           `json:"image_data,omitempty"`
	ImageMimeType    string           `json:"image_mime_type,omitempty"`
	ImageGeneratedAt *time.Time       `json:"image_generated_at,omitempty"`
	GenerationStatus GenerationStatus `json:"generation_status"`
}

// CharacterNames はカンマ区切りの Characters フィールドを個別の名前に分解します。
// 空要素は捨てられ、前後の空白は取り除かれます。
func (s Shot) CharacterNames() []string {
	if strings.TrimSpace(s.Characters) == "" {
		return nil
	}
	parts := strings.Split(s.Characters, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// MarkSucceeded は生成成功を記録します。画像データ・使用プロンプト・時刻が揃って更新されます。
func (s *Shot) MarkSucceeded(data []byte, mimeType, promptUsed string, at time.Time) {
	s.ImageData = data
	s.ImageMimeType = mimeType
	s.ImagePromptText = promptUsed
	s.ImageGeneratedAt = &at
	s.GenerationStatus = StatusSucceeded
}

// MarkFailed は理由付きの失敗を記録します。ImageData は nil のままですが、
// ステータスは必ず明示的な失敗センチネルになるのだ。
func (s *Shot) MarkFailed(reason FailureReason, promptUsed string) {
	s.ImageData = nil
	s.ImageMimeType = ""
	s.ImagePromptText = promptUsed
	s.GenerationStatus = FailedStatus(reason)
}

// String はログ出力用の短い識別表現を返します。
func (s Shot) String() string {
	return fmt.Sprintf("scene %d / shot %d", s.SceneIndex, s.ShotNumberInScene)
}

// Shots は Shot のスライスに対するヘルパーを提供するのだ。
type Shots []Shot

// UniqueCharacterNames は全ショットから重複しない登場人物名を抽出します。
func (ss Shots) UniqueCharacterNames() []string {
	set := make(map[string]struct{})
	for _, shot := range ss {
		for _, name := range shot.CharacterNames() {
			set[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// GenerationBatch は1回の生成要求の間だけ存在する、シーン単位のショット群です。
// それ自体は永続化されません。
type GenerationBatch struct {
	ParseJobID string
	SceneIndex int
	Shots      []Shot
}
