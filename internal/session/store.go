package session

import (
	"context"
	"sync"
)

// TokenStore はアクセストークンの永続化ストアのインターフェース。
// 本番ではSQLite実装（storage.CredentialStore）を使用する。
// リダイレクトフローによるプロセス再構築をまたいでセッションを維持するのは
// メモリではなくこのストアである。
type TokenStore interface {
	// Load は保存済みトークンを取得する。未保存の場合は空文字列を返す。
	Load(ctx context.Context) (string, error)
	// Save はトークンを保存する。既存のトークンは上書きされる。
	Save(ctx context.Context, token string) error
	// Clear は保存済みトークンを削除する。未保存の場合も成功として扱う。
	Clear(ctx context.Context) error
}

// MemoryStore はメモリ上のTokenStore実装。テスト用。
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load は保存済みトークンを返す。
func (s *MemoryStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// Save はトークンを保存する。
func (s *MemoryStore) Save(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear はトークンを削除する。
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
