package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open はローカル状態DB（SQLite）への接続を開く。
// pathはDBファイルのパスを指定する。ファイルが存在しない場合は作成される。
// 単一プロセスからのアクセスを前提とするため、最大接続数は1に制限する。
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	db.SetMaxOpenConns(1)

	return db, nil
}
