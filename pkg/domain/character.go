package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// CharacterProfile は登場人物名と外見描写の対応を保持します。
// 初回遭遇時に遅延生成され、以後は決して上書きされません。
// これにより同じ人物がどのショットでも同じ姿で描かれるのだ。
type CharacterProfile struct {
	Name              string    `json:"name"` // 大文字小文字を区別するキー
	VisualDescription string    `json:"visual_description"`
	CreatedAt         time.Time `json:"created_at"`
}

// SeedFromName は人物名から決定論的なシード値を生成します。
// 外見描写と併用することで、生成画像の揺らぎをさらに抑えます。
func SeedFromName(name string) int64 {
	hash := sha256.Sum256([]byte(name))
	seed := int32(binary.BigEndian.Uint32(hash[:4]))
	// 画像生成側はシード値に正の数を期待するため、最上位ビットを落とすのだ
	return int64(seed & 0x7FFFFFFF)
}
