// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はAPIから取得したレシピの説明文・手順・コメント本文を
// サニタイズし、XSS攻撃からユーザーを保護する。レシピAPIは第三者の投稿を
// そのまま返すため、表示前の許可リストベースのサニタイズが必須となる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はユーザー投稿コンテンツのサニタイズ機能のインターフェースを定義する。
// レシピ詳細とコメントのレンダリング前に使用される。
type ContentSanitizerService interface {
	// Sanitize はコンテンツをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, ul, ol, li, blockquote, pre, code, strong, em）のみを通過させ、
	// script, iframe, style, img タグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string

	// SanitizeStrict は全てのタグを除去してプレーンテキストを返す。
	// タイトル・コメント本文など、HTMLを一切許可しないフィールドに使用する。
	SanitizeStrict(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, blockquote, pre, code, strong, em
//   - 禁止: script, iframe, style, img, a および全てのon*イベント属性
//
// レシピ本文にリンクや画像の埋め込みは許可しない。画像はAPIのimage_urlフィールドを
// 経由して画像プロキシで配信され、本文中のimgタグは除去される。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	return &contentSanitizer{
		policy: p,
		strict: bluemonday.StrictPolicy(),
	}
}

// Sanitize はコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}

// SanitizeStrict は全てのタグを除去してプレーンテキストを返す。
func (s *contentSanitizer) SanitizeStrict(raw string) string {
	return s.strict.Sanitize(raw)
}
