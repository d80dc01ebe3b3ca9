package screenplay

import "regexp"

var (
	// SluglineRegex は "INT." / "EXT." で始まるシーン見出し行を特定します。
	// "INT./EXT." のような複合プレフィックスも1つの見出しとして扱うのだ。
	SluglineRegex = regexp.MustCompile(`^\s*(INT\.\s*/\s*EXT\.|EXT\.\s*/\s*INT\.|INT\.|EXT\.)\s*(.*)$`)

	// controlCharRegex は改行・タブ以外の制御文字をキャプチャします。
	controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

	// bareNumberRegex は行中に単独で現れる数字トークン（ページ番号等）をキャプチャします。
	bareNumberRegex = regexp.MustCompile(`(^|\s)\d+(\s|$)`)
)
