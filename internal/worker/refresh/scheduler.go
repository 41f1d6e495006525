// Package refresh はセッションのバックグラウンド再検証を提供する。
//
// サーバー側でトークンが取り消された場合、次のユーザー操作まで
// 失効に気づけないため、定期的にプロフィールを再解決して
// セッションの有効性を確認する。
package refresh

import (
	"context"
	"log/slog"
	"time"
)

// SessionRevalidator はセッション再検証の実行インターフェース。
// session.Managerの部分集合として定義する。
type SessionRevalidator interface {
	IsAuthenticated() bool
	Revalidate(ctx context.Context) error
}

// Scheduler はセッション再検証のスケジューリングを行う。
type Scheduler struct {
	sessions SessionRevalidator
	logger   *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(sessions SessionRevalidator, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sessions: sessions,
		logger:   logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("セッション再検証スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("セッション再検証スケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce はセッションの再検証を1回実行する。
// 未認証の場合は何もしない。再検証の失敗はManager側で
// セッション無効化として処理されるため、ここではログのみ残す。
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.sessions.IsAuthenticated() {
		return
	}

	if err := s.sessions.Revalidate(ctx); err != nil {
		s.logger.Warn("セッション再検証に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
