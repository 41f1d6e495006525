package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/recipeman/internal/model"
)

// subscriberBuffer は購読チャネルのバッファサイズ。
// 購読者が消費しないまま溢れた場合、そのイベントは破棄される。
const subscriberBuffer = 16

// Manager はセッション状態の唯一の書き込み元。
// プロセスごとにちょうど1インスタンスがアプリ起動時に構築され、
// 依存するコンポーネントに注入される（グローバル変数にはしない）。
// 他のコンポーネントは同期クエリと購読ストリームを通じて読み取るのみ。
//
// 不変条件: authenticated == true ⟺ トークンを保持している。
// currentUserの反映は非同期のプロフィール解決により1ステップ遅れることがある。
type Manager struct {
	strategy Strategy
	store    TokenStore
	logger   *slog.Logger

	mu            sync.Mutex
	token         string
	authenticated bool
	currentUser   *model.User

	// gen はセッション状態の世代番号。状態を変更するたびにインクリメントされ、
	// 古い世代で発行された非同期完了（遅延して届いたログイン応答やプロフィール応答）は
	// 破棄される。ログアウト後に古いログイン応答が認証状態を再主張する競合の防止。
	gen uint64

	nextSubID uint64
	authSubs  map[uint64]chan bool
	userSubs  map[uint64]chan *model.User
}

// NewManager はManagerを生成する。初期状態は未認証。
func NewManager(strategy Strategy, store TokenStore, logger *slog.Logger) *Manager {
	return &Manager{
		strategy: strategy,
		store:    store,
		logger:   logger,
		authSubs: make(map[uint64]chan bool),
		userSubs: make(map[uint64]chan *model.User),
	}
}

// Initialize は永続化ストアからセッションを復元する。起動時に1回呼ばれる。
// トークンが見つかった場合は認証済み状態を公開し、ユーザー解決を非同期で試みる。
// 解決に失敗したトークンは信頼せず、未認証状態に戻す（フェイルクローズ）。
// トークンがない場合は何もしない（2回目の呼び出しも安全）。
func (m *Manager) Initialize(ctx context.Context) {
	token, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error("トークンストアの読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}
	if token == "" {
		return
	}

	m.mu.Lock()
	m.gen++
	issueGen := m.gen
	m.token = token
	m.setAuthenticatedLocked(true)
	m.mu.Unlock()

	m.logger.Info("永続化されたセッションを復元しました")

	go m.resolveProfile(ctx, token, issueGen)
}

// resolveProfile はトークンに紐づくユーザーを解決し、状態を更新する。
// 解決に失敗した場合はセッション全体を無効化する。
func (m *Manager) resolveProfile(ctx context.Context, token string, issueGen uint64) {
	user, err := m.strategy.ResolveUser(ctx, token)
	if err != nil {
		m.logger.Warn("プロフィール解決に失敗したためセッションを無効化します",
			slog.String("error", err.Error()),
		)
		m.invalidate(ctx, issueGen)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != issueGen {
		m.logger.Info("古いプロフィール応答を破棄しました")
		return
	}

	m.setUserLocked(user)
}

// Login は資格情報をトークンに交換し、セッションを確立する。directモードのみ。
// サーバーが資格情報を拒否した場合はInvalidCredentialsエラーを返す。
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	issueGen := m.currentGen()

	token, user, err := m.strategy.Exchange(ctx, creds)
	if err != nil {
		return err
	}

	return m.completeLogin(ctx, issueGen, token, user)
}

// Register は新規アカウントを作成し、成功時はログインと同様に振る舞う。directモードのみ。
// ローカル検証（必須項目・確認パスワードの一致等）を通過するまでネットワーク送信は行わない。
func (m *Manager) Register(ctx context.Context, reg Registration) error {
	if err := ValidateRegistration(reg); err != nil {
		return err
	}

	issueGen := m.currentGen()

	token, user, err := m.strategy.RegisterAccount(ctx, reg)
	if err != nil {
		return err
	}

	return m.completeLogin(ctx, issueGen, token, user)
}

// LoginURL はIDプロバイダーの認可URLを返す。oidcモードのみ。
func (m *Manager) LoginURL(state string) string {
	return m.strategy.LoginURL(state)
}

// CompleteLogin はOIDCコールバックで受け取った認可コードからセッションを確立する。
func (m *Manager) CompleteLogin(ctx context.Context, code string) error {
	issueGen := m.currentGen()

	token, user, err := m.strategy.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}

	return m.completeLogin(ctx, issueGen, token, user)
}

// completeLogin はトークンを永続化し、認証済み状態を公開する。
// 発行時の世代が既に過去のものになっている場合（完了前にログアウト等が起きた場合）、
// この応答は破棄され状態には反映されない。
func (m *Manager) completeLogin(ctx context.Context, issueGen uint64, token string, user *model.User) error {
	m.mu.Lock()
	if m.gen != issueGen {
		m.mu.Unlock()
		m.logger.Info("古いログイン応答を破棄しました")
		return nil
	}
	m.gen++
	m.token = token
	m.setAuthenticatedLocked(true)
	m.setUserLocked(user)
	m.mu.Unlock()

	if err := m.store.Save(ctx, token); err != nil {
		// 永続化に失敗してもメモリ上のセッションは有効のまま維持する。
		// 次回起動時に再ログインが必要になるだけで、現プロセスの動作には影響しない。
		m.logger.Error("トークンの永続化に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to persist token: %w", err)
	}

	m.logger.Info("ログインしました",
		slog.String("strategy", m.strategy.Name()),
		slog.String("username", user.Username),
	)

	return nil
}

// Logout はセッションを破棄する。既にログアウト済みの場合は何もしない（冪等）。
// 進行中のリクエストは中断しないが、世代番号の更新により
// 遅延して届いた応答が認証状態を再主張することはない。
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	wasAuthenticated := m.authenticated
	m.gen++
	m.token = ""
	m.setAuthenticatedLocked(false)
	m.setUserLocked(nil)
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("トークンストアのクリアに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to clear token store: %w", err)
	}

	if wasAuthenticated {
		m.logger.Info("ログアウトしました")
	}

	return nil
}

// LogoutURL はプロバイダーのサインアウトURLを返す。oidcモード以外では空文字列。
func (m *Manager) LogoutURL() string {
	return m.strategy.LogoutURL()
}

// Invalidate はAPIにトークンを拒否された際の強制ログアウト。
// BearerTransportのOnUnauthorizedフックから呼ばれる。
// 失効したセッションをクライアント側に残さないためのフェイルクローズ。
func (m *Manager) Invalidate() {
	m.mu.Lock()
	wasAuthenticated := m.authenticated
	m.mu.Unlock()

	if wasAuthenticated {
		m.logger.Warn("APIにトークンを拒否されたためセッションを無効化します")
	}

	// ストアのクリアは必ず実行する（リクエストコンテキストには依存しない）
	if err := m.Logout(context.Background()); err != nil {
		m.logger.Error("強制ログアウトに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// invalidate は指定世代が現在の場合のみセッションを無効化する。
func (m *Manager) invalidate(ctx context.Context, issueGen uint64) {
	m.mu.Lock()
	if m.gen != issueGen {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.token = ""
	m.setAuthenticatedLocked(false)
	m.setUserLocked(nil)
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("トークンストアのクリアに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// Revalidate は現在のトークンでプロフィールを再解決する。
// 外部でのセッション失効（サーバー側でのトークン取り消し等）を
// ユーザー操作なしで検出するために定期的に呼ばれる。
// 未認証の場合は何もしない。
func (m *Manager) Revalidate(ctx context.Context) error {
	m.mu.Lock()
	token := m.token
	issueGen := m.gen
	m.mu.Unlock()

	if token == "" {
		return nil
	}

	user, err := m.strategy.ResolveUser(ctx, token)
	if err != nil {
		m.invalidate(ctx, issueGen)
		return model.NewSessionInvalidError()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != issueGen {
		return nil
	}

	m.setUserLocked(user)
	return nil
}

// IsAuthenticated は現在の認証状態を同期的に返す。
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated
}

// CurrentUser は現在のユーザーを返す。未解決の場合はnil。
// 認証直後はプロフィール解決の完了までnilになることがある。
func (m *Manager) CurrentUser() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentUser
}

// Token は現在のトークンを返す。未認証の場合は空文字列。決してエラーにならない。
// 送信リクエストへのベアラー添付（BearerTransport）から使用される。
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// SubscribeAuth は認証状態の遷移を受け取るチャネルと購読解除関数を返す。
// 全購読者は同一の順序で遷移を観測する。
// 購読解除後はチャネルがクローズされる。
func (m *Manager) SubscribeAuth() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan bool, subscriberBuffer)
	m.authSubs[id] = ch

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.authSubs[id]; ok {
			delete(m.authSubs, id)
			close(sub)
		}
	}

	return ch, unsubscribe
}

// SubscribeUser は現在ユーザーの変化を受け取るチャネルと購読解除関数を返す。
func (m *Manager) SubscribeUser() (<-chan *model.User, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan *model.User, subscriberBuffer)
	m.userSubs[id] = ch

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.userSubs[id]; ok {
			delete(m.userSubs, id)
			close(sub)
		}
	}

	return ch, unsubscribe
}

// currentGen は現在の世代番号を返す。
func (m *Manager) currentGen() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// setAuthenticatedLocked は認証状態を更新し、遷移時のみ購読者へ配信する。
// muを保持した状態で呼ぶこと。
func (m *Manager) setAuthenticatedLocked(v bool) {
	if m.authenticated == v {
		return
	}
	m.authenticated = v

	for _, ch := range m.authSubs {
		select {
		case ch <- v:
		default:
			// 購読者が消費していない場合はイベントを破棄する
			m.logger.Warn("認証状態イベントを破棄しました（購読チャネルが満杯）")
		}
	}
}

// setUserLocked は現在ユーザーを更新し、変化時のみ購読者へ配信する。
// muを保持した状態で呼ぶこと。
func (m *Manager) setUserLocked(user *model.User) {
	if m.currentUser == nil && user == nil {
		return
	}
	m.currentUser = user

	for _, ch := range m.userSubs {
		select {
		case ch <- user:
		default:
			m.logger.Warn("ユーザーイベントを破棄しました（購読チャネルが満杯）")
		}
	}
}
