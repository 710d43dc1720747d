// Package model はドメインモデルを定義する。
package model

// User は認証済みの管理者ユーザーを表す。
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SessionState はクライアントが保持するセッション状態を表す。
// サーバーのセッションはhttponly Cookieとして不透明に保持されるため、
// クライアント側は「認証済みかどうか」のフラグだけを持つ。
// 有効期限の追跡は行わず、いずれかのリクエストが401を返した時点で
// 失効を検知してfalseに落とす。
type SessionState struct {
	Authenticated bool
}

// SignIn はログイン成功時にセッション状態を認証済みへ遷移させる。
func (s *SessionState) SignIn() {
	s.Authenticated = true
}

// SignOut はログアウトまたはセッション失効時に未認証へ遷移させる。
func (s *SessionState) SignOut() {
	s.Authenticated = false
}
