package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// tokenKey はアクセストークンを保存する既知のストレージキー。
const tokenKey = "token"

// CredentialStore はSQLiteを使用した認証トークンの永続化ストア。
// セッションマネージャーだけが書き込みを行う。
type CredentialStore struct {
	db *sql.DB
}

// NewCredentialStore はCredentialStoreを生成する。
func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Load は保存済みトークンを取得する。未保存の場合は空文字列を返す。
func (s *CredentialStore) Load(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE key = ?`,
		tokenKey,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}

	return value, nil
}

// Save はトークンを保存する。既存のトークンは上書きされる。
func (s *CredentialStore) Save(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		tokenKey, token, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear は保存済みトークンを削除する。未保存の場合も成功として扱う。
func (s *CredentialStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE key = ?`,
		tokenKey,
	)
	if err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
