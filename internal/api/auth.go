package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/semearctl/internal/model"
)

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult はログイン成功時のレスポンス。
// セッション自体はhttponly Cookieとして設定され、ボディには含まれない。
type LoginResult struct {
	Message   string `json:"message"`
	UserEmail string `json:"user_email"`
}

// logoutResult はログアウトのレスポンス。
type logoutResult struct {
	Message string `json:"message"`
}

// userResponse は/api/auth/meのレスポンス。
// サーバーはIDを数値で返すため、json.Number経由で文字列へ変換する。
type userResponse struct {
	Email string      `json:"email"`
	ID    json.Number `json:"id"`
}

// Login はメールアドレスとパスワードで管理者認証を行う。
// メールアドレスはトリムして小文字化する。パスワードはトリムしない。
// どちらかが空の場合はネットワークに到達する前にローカル検証エラーを返す。
// 成功時はサーバーがセッションCookieを設定し、Cookieはセッションファイルへ
// 永続化される。
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	cleanEmail := strings.ToLower(strings.TrimSpace(email))

	if cleanEmail == "" || password == "" {
		return nil, model.NewValidationError("メールアドレスとパスワードは必須です")
	}

	var result LoginResult
	err := c.request(ctx, "login", http.MethodPost, "/api/auth/login", loginRequest{
		Email:    cleanEmail,
		Password: password,
	}, &result)
	if err != nil {
		return nil, err
	}

	c.persistSession()
	return &result, nil
}

// Logout はサーバー側のセッションを破棄する。
// ネットワーク呼び出しの成否にかかわらず、保存済みのローカルセッションは
// 破棄される。呼び出し側はエラーをログに残すだけでよく、ローカルの
// サインアウト遷移を中断してはならない。
func (c *Client) Logout(ctx context.Context) error {
	var result logoutResult
	err := c.request(ctx, "logout", http.MethodPost, "/api/auth/logout", nil, &result)

	// セッションファイルは失敗時でも必ず破棄する
	c.clearSession()

	return err
}

// CurrentUser は認証中のユーザー情報を取得する。
// セッションが無効な場合は401の認証エラーが返る。
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var resp userResponse
	if err := c.request(ctx, "current_user", http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}

	return &model.User{
		ID:    resp.ID.String(),
		Email: resp.Email,
	}, nil
}
