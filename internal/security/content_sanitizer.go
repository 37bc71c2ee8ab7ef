// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー入力のテキストフィールド
// （コースのタイトル・説明、デザイン名）をサニタイズし、
// 保存型XSSからUIを保護する。bluemondayのStrictPolicyをベースに、
// HTMLタグをすべて除去したプレーンテキストのみを通過させる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は入力からHTMLタグをすべて除去したプレーンテキストを返す。
	// 前後の空白は取り除かれる。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（全タグ除去）を使用する。コースやデザインの名前・説明は
// プレーンテキストとして表示される前提のため、許可タグは存在しない。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグをすべて除去したプレーンテキストを返す。
func (s *contentSanitizer) Sanitize(input string) string {
	// StrictPolicyはエンティティエスケープした結果を返すため、
	// プレーンテキストとして保存する前にアンエスケープする。
	sanitized := s.policy.Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(sanitized))
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
