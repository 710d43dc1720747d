package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/semearctl/internal/model"
)

// NewsDraft はお知らせ作成の入力。全フィールド必須。
type NewsDraft struct {
	Title   string
	Excerpt string
	Content string
	Date    string // YYYY-MM-DD
}

// NewsPatch はお知らせ部分更新の入力。
// nilのフィールドは変更されず、送信ペイロードにも含まれない。
type NewsPatch struct {
	Title   *string
	Excerpt *string
	Content *string
	Date    *string // YYYY-MM-DD
}

// newsResponse はお知らせのレスポンス表現。
// サーバーはIDを数値で返すため、json.Number経由で文字列へ変換する。
type newsResponse struct {
	ID      json.Number `json:"id"`
	Title   string      `json:"title"`
	Excerpt string      `json:"excerpt"`
	Content string      `json:"content"`
	Date    string      `json:"date"`
}

// toNewsItem はレスポンス表現をドメインモデルへ変換する。
func (r newsResponse) toNewsItem() model.NewsItem {
	return model.NewsItem{
		ID:      r.ID.String(),
		Title:   r.Title,
		Excerpt: r.Excerpt,
		Content: r.Content,
		Date:    r.Date,
	}
}

// ListNews は公開中のお知らせ一覧を取得する。認証不要。
func (c *Client) ListNews(ctx context.Context) ([]model.NewsItem, error) {
	var resp []newsResponse
	if err := c.request(ctx, "list_news", http.MethodGet, "/api/news", nil, &resp); err != nil {
		return nil, err
	}

	items := make([]model.NewsItem, len(resp))
	for i, r := range resp {
		items[i] = r.toNewsItem()
	}
	return items, nil
}

// GetNewsItem は指定IDのお知らせを1件取得する。認証不要。
func (c *Client) GetNewsItem(ctx context.Context, id string) (*model.NewsItem, error) {
	var resp newsResponse
	if err := c.request(ctx, "get_news", http.MethodGet, "/api/news/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}

	item := resp.toNewsItem()
	return &item, nil
}

// CreateNews は新しいお知らせを作成する。要認証。
// 3つのテキストフィールドはトリムされ、トリム後に空になるものがあれば
// ネットワークに到達する前にローカル検証エラーを返す。
// 日付はYYYY-MM-DDの形式のみ検証し、暦としての妥当性はサーバーに委ねる。
// 成功時のIDはサーバーが採番したものが返る。
func (c *Client) CreateNews(ctx context.Context, draft NewsDraft) (*model.NewsItem, error) {
	title := strings.TrimSpace(draft.Title)
	excerpt := strings.TrimSpace(draft.Excerpt)
	content := strings.TrimSpace(draft.Content)

	if title == "" || excerpt == "" || content == "" {
		return nil, model.NewValidationError("タイトル、抜粋、本文はすべて必須です")
	}

	if !model.IsValidDateFormat(draft.Date) {
		return nil, model.NewValidationError("日付の形式が不正です。YYYY-MM-DD形式で指定してください")
	}

	payload := map[string]string{
		"title":   title,
		"excerpt": excerpt,
		"content": content,
		"date":    draft.Date,
	}

	var resp newsResponse
	if err := c.request(ctx, "create_news", http.MethodPost, "/api/news", payload, &resp); err != nil {
		return nil, err
	}

	item := resp.toNewsItem()
	return &item, nil
}

// UpdateNews は既存のお知らせを部分更新する。要認証。
// 指定されたフィールドだけを作成時と同じ規則で検証し、ペイロードにも
// 指定されたフィールドだけを含める。
func (c *Client) UpdateNews(ctx context.Context, id string, patch NewsPatch) (*model.NewsItem, error) {
	payload := map[string]string{}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, model.NewValidationError("タイトルは空にできません")
		}
		payload["title"] = title
	}

	if patch.Excerpt != nil {
		excerpt := strings.TrimSpace(*patch.Excerpt)
		if excerpt == "" {
			return nil, model.NewValidationError("抜粋は空にできません")
		}
		payload["excerpt"] = excerpt
	}

	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if content == "" {
			return nil, model.NewValidationError("本文は空にできません")
		}
		payload["content"] = content
	}

	if patch.Date != nil {
		if !model.IsValidDateFormat(*patch.Date) {
			return nil, model.NewValidationError("日付の形式が不正です。YYYY-MM-DD形式で指定してください")
		}
		payload["date"] = *patch.Date
	}

	var resp newsResponse
	if err := c.request(ctx, "update_news", http.MethodPut, "/api/news/"+url.PathEscape(id), payload, &resp); err != nil {
		return nil, err
	}

	item := resp.toNewsItem()
	return &item, nil
}

// DeleteNews は指定IDのお知らせを削除する。要認証。
// 成功時は204 No Contentが返り、レスポンスボディはない。
func (c *Client) DeleteNews(ctx context.Context, id string) error {
	return c.request(ctx, "delete_news", http.MethodDelete, "/api/news/"+url.PathEscape(id), nil, nil)
}
