package session

import (
	"strings"

	"github.com/hitoshi/recipeman/internal/model"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// ValidateRegistration は登録フォームのローカル検証を行う。
// 検証に失敗した場合はValidationErrorを返し、ネットワーク送信は行われない。
// サーバー側の一意性制約（メールアドレスの重複等）はここでは検証しない。
func ValidateRegistration(reg Registration) error {
	if strings.TrimSpace(reg.Email) == "" {
		return model.NewValidationError("メールアドレスを入力してください")
	}
	if !strings.Contains(reg.Email, "@") {
		return model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if strings.TrimSpace(reg.Username) == "" {
		return model.NewValidationError("ユーザー名を入力してください")
	}
	if len(reg.Username) < minUsernameLength {
		return model.NewValidationError("ユーザー名は3文字以上で入力してください")
	}
	if reg.Password == "" {
		return model.NewValidationError("パスワードを入力してください")
	}
	if len(reg.Password) < minPasswordLength {
		return model.NewValidationError("パスワードは6文字以上で入力してください")
	}
	if reg.Password != reg.PasswordConfirm {
		return model.NewValidationError("確認用パスワードが一致しません")
	}
	return nil
}
