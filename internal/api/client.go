// Package api はお知らせ管理APIの型付きクライアントを提供する。
// JSONトランスポート、Cookieベースのセッション、統一エラー型への
// マッピングを含む。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/hitoshi/semearctl/internal/metrics"
	"github.com/hitoshi/semearctl/internal/model"
)

// userAgent は全リクエストに付与するUser-Agentヘッダー。
const userAgent = "semearctl/1.0"

// Client はお知らせ管理APIのHTTPクライアント。
// すべてのリクエストでCookie（サーバー発行のセッション）を送信する。
// 認可の判断はサーバーに委ね、クライアント側でリクエストを抑止しない。
// リトライ・タイムアウト・キャッシュは持たず、毎回新しいリクエストを発行する。
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	sessions   *sessionStore // nilの場合はセッションを永続化しない
	logger     *slog.Logger
	metrics    metrics.Recorder
}

// Options はClientの生成オプション。
type Options struct {
	// SessionFile はセッションCookieを保存するファイルパス。
	// 空の場合はプロセス内のCookie jarのみを使用する。
	SessionFile string
	// HTTPClient はテスト用に差し替え可能なHTTPクライアント。
	// nilの場合はCookie jar付きのクライアントを新規に構築する。
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    metrics.Recorder
}

// NewClient はClientの新しいインスタンスを生成する。
// SessionFileが指定されている場合は保存済みのセッションCookieを
// jarに復元し、前回ログインしたセッションを引き継ぐ。
func NewClient(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse API base URL: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar}
	} else if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NopRecorder{}
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    base,
		logger:     logger,
		metrics:    rec,
	}

	if opts.SessionFile != "" {
		c.sessions = newSessionStore(opts.SessionFile)
		cookies, err := c.sessions.Load()
		if err != nil {
			// 復元失敗は未ログイン扱いとし、エラーにはしない
			logger.Warn("セッションファイルの読み込みに失敗しました",
				slog.String("path", opts.SessionFile),
				slog.String("error", err.Error()),
			)
		} else if len(cookies) > 0 {
			c.httpClient.Jar.SetCookies(base, cookies)
		}
	}

	return c, nil
}

// errorBody はサーバーが返すエラーレスポンスのボディ。
type errorBody struct {
	Detail string `json:"detail"`
}

// request はAPIへのHTTPリクエストを1回発行し、レスポンスJSONをoutへ
// デコードする。失敗時は*model.APIErrorを返す。
//   - 常にContent-Type: application/jsonを送信する
//   - 204 No Contentはボディのデコードを行わず成功として扱う
//   - 非2xxは{detail}ボディのデコードを試み、失敗した場合は
//     ステータスコードとステータステキストからメッセージを合成する
func (c *Client) request(ctx context.Context, operation, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return model.NewNetworkError(fmt.Sprintf("リクエストボディの生成に失敗しました: %v", err))
		}
		reqBody = bytes.NewReader(data)
	}

	rel, err := url.Parse(path)
	if err != nil {
		return model.NewNetworkError(fmt.Sprintf("エンドポイントパスが不正です: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(rel).String(), reqBody)
	if err != nil {
		return model.NewNetworkError(fmt.Sprintf("HTTPリクエストの作成に失敗しました: %v", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordAPILatency(operation, time.Since(start))
	if err != nil {
		c.metrics.RecordAPIRequest(operation, 0)
		c.logger.Error("APIリクエストに失敗しました",
			slog.String("operation", operation),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model.NewNetworkError(fmt.Sprintf("サーバーに接続できませんでした: %v", err))
	}
	defer resp.Body.Close()

	c.metrics.RecordAPIRequest(operation, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(operation, resp)
	}

	// 204 No Content: ボディは空であり、デコードしてはならない
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewNetworkError(fmt.Sprintf("レスポンスの解析に失敗しました: %v", err))
	}

	return nil
}

// decodeError は非2xxレスポンスを*model.APIErrorへ変換する。
func (c *Client) decodeError(operation string, resp *http.Response) error {
	message := ""
	var details any

	data, readErr := io.ReadAll(resp.Body)
	if readErr == nil && len(data) > 0 {
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err == nil && eb.Detail != "" {
			// サーバーのdetailメッセージをそのまま表示に使う
			message = eb.Detail
		}
		var raw any
		if err := json.Unmarshal(data, &raw); err == nil {
			details = raw
		}
	}

	if message == "" {
		message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	apiErr := model.NewErrorFromStatus(resp.StatusCode, message, details)

	c.logger.Warn("APIがエラーステータスを返しました",
		slog.String("operation", operation),
		slog.Int("status", resp.StatusCode),
		slog.String("message", message),
	)

	return apiErr
}

// persistSession は現在のCookie jarの内容をセッションファイルへ保存する。
func (c *Client) persistSession() {
	if c.sessions == nil {
		return
	}
	cookies := c.httpClient.Jar.Cookies(c.baseURL)
	if err := c.sessions.Save(cookies); err != nil {
		c.logger.Warn("セッションファイルの保存に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// clearSession は保存済みセッションを破棄する。
func (c *Client) clearSession() {
	if c.sessions == nil {
		return
	}
	if err := c.sessions.Clear(); err != nil {
		c.logger.Warn("セッションファイルの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
