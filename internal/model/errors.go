// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, recipe, comment, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeValidationError      = "VALIDATION_ERROR"
	ErrCodeRegistrationRejected = "REGISTRATION_REJECTED"
	ErrCodeSessionInvalid       = "SESSION_INVALID"
	ErrCodeRecipeNotFound       = "RECIPE_NOT_FOUND"
	ErrCodeCommentNotFound      = "COMMENT_NOT_FOUND"
	ErrCodeAPIUnreachable       = "API_UNREACHABLE"
	ErrCodeInvalidURL           = "INVALID_URL"
	ErrCodeSSRFBlocked          = "SSRF_BLOCKED"
)

// HasCode はerrが指定コードのAPIErrorかどうかを判定する。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewInvalidCredentialsError はログイン拒否エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewValidationError はローカル検証エラーを生成する。
// ネットワーク送信前のフォーム検証で使用する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationError,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を修正して再度お試しください。",
	}
}

// NewRegistrationRejectedError はサーバー側で登録が拒否された場合のエラーを生成する。
func NewRegistrationRejectedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRegistrationRejected,
		Message:  fmt.Sprintf("アカウント登録が拒否されました: %s", reason),
		Category: "auth",
		Action:   "別のメールアドレスまたはユーザー名でお試しください。",
	}
}

// NewSessionInvalidError は保持中のトークンが無効と判明した場合のエラーを生成する。
// プロフィール取得に失敗したトークンは信頼しない（フェイルクローズ）。
func NewSessionInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionInvalid,
		Message:  "セッションが無効になりました。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewRecipeNotFoundError はレシピ未検出エラーを生成する。
func NewRecipeNotFoundError(recipeID string) *APIError {
	return &APIError{
		Code:     ErrCodeRecipeNotFound,
		Message:  fmt.Sprintf("指定されたレシピが見つかりません: %s", recipeID),
		Category: "recipe",
		Action:   "レシピ一覧から再度選択してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "comment",
		Action:   "ページを再読み込みしてください。",
	}
}

// NewAPIUnreachableError はレシピAPIへの到達失敗エラーを生成する。
// タイムアウトや接続失敗はリトライせず、拒否と同様に扱う。
func NewAPIUnreachableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeAPIUnreachable,
		Message:  fmt.Sprintf("レシピAPIに接続できませんでした: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を指定してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトの画像URLを指定してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}
