package engine

import (
	"context"
	"errors"
	"strings"
)

// FailureKind は画像生成APIのエラーを再試行戦略の観点で分類したものです。
type FailureKind int

const (
	// KindTransient は同じプロンプトのまま再試行する価値がある一時的障害です。
	KindTransient FailureKind = iota
	// KindPolicy はプロンプト内容が拒否されたことを示します。再試行せず次の戦略へ進みます。
	KindPolicy
	// KindRateLimit はAPI側の流量制限です。待たずに次の戦略へ切り替えます。
	KindRateLimit
	// KindCanceled は呼び出し側コンテキストの打ち切りです。
	KindCanceled
)

var policyMarkers = []string{
	"safety",
	"blocked",
	"content policy",
	"prohibited",
	"harm_category",
	"responsible ai",
}

var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"resource_exhausted",
	"resource exhausted",
	"quota exceeded",
	"too many requests",
}

// Classify は画像生成の失敗を文字列ヒューリスティクスで分類します。
// SDKが構造化エラーを返さないため、レスポンス本文の語彙に頼るのだ。
func Classify(err error) FailureKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return KindRateLimit
		}
	}
	for _, marker := range policyMarkers {
		if strings.Contains(msg, marker) {
			return KindPolicy
		}
	}
	return KindTransient
}
