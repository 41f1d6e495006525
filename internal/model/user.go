package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// User は認証済みユーザーの読み取り専用プロジェクション。
// レシピAPIのレスポンス、またはIDプロバイダーのクレームから構築される。
// クライアント側で変更することはない（サーバー/IdPが正）。
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON はレシピAPIの数値IDとIdPクレームの文字列IDの両方を受け付ける。
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{
		alias: (*alias)(u),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.ID) > 0 && !bytes.Equal(aux.ID, []byte("null")) {
		var s string
		if err := json.Unmarshal(aux.ID, &s); err == nil {
			u.ID = s
		} else {
			var n int64
			if err := json.Unmarshal(aux.ID, &n); err != nil {
				return fmt.Errorf("user id must be string or number: %w", err)
			}
			u.ID = fmt.Sprintf("%d", n)
		}
	}

	return nil
}
