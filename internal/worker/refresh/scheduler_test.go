package refresh

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/recipeman/internal/model"
)

// mockRevalidator はSessionRevalidatorのモック実装。
type mockRevalidator struct {
	mu            sync.Mutex
	authenticated bool
	revalidateErr error
	calls         int
}

func (m *mockRevalidator) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated
}

func (m *mockRevalidator) Revalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.revalidateErr
}

func (m *mockRevalidator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestRunOnce_Authenticated は認証済みの場合に再検証が実行されることをテストする。
func TestRunOnce_Authenticated(t *testing.T) {
	rv := &mockRevalidator{authenticated: true}
	s := NewScheduler(rv, testLogger())

	s.RunOnce(context.Background())

	if got := rv.callCount(); got != 1 {
		t.Errorf("Revalidate呼び出し回数 = %d, want 1", got)
	}
}

// TestRunOnce_Unauthenticated は未認証の場合に再検証をスキップすることをテストする。
func TestRunOnce_Unauthenticated(t *testing.T) {
	rv := &mockRevalidator{authenticated: false}
	s := NewScheduler(rv, testLogger())

	s.RunOnce(context.Background())

	if got := rv.callCount(); got != 0 {
		t.Errorf("Revalidate呼び出し回数 = %d, want 0", got)
	}
}

// TestRunOnce_RevalidateError は再検証エラーがパニックを起こさないことをテストする。
func TestRunOnce_RevalidateError(t *testing.T) {
	rv := &mockRevalidator{
		authenticated: true,
		revalidateErr: model.NewSessionInvalidError(),
	}
	s := NewScheduler(rv, testLogger())

	s.RunOnce(context.Background())

	if got := rv.callCount(); got != 1 {
		t.Errorf("Revalidate呼び出し回数 = %d, want 1", got)
	}
}

// TestStart_StopsOnContextCancel はコンテキストキャンセルで停止することをテストする。
func TestStart_StopsOnContextCancel(t *testing.T) {
	rv := &mockRevalidator{authenticated: true}
	s := NewScheduler(rv, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		s.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	// 数回ティックさせてから停止
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("コンテキストキャンセル後もスケジューラが停止しません")
	}

	if rv.callCount() == 0 {
		t.Error("ティッカーによる再検証が1回も実行されていません")
	}
}
