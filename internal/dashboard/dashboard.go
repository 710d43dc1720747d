// Package dashboard はお知らせ管理のCRUDフローを提供する。
// フォーム状態、作成/編集モードの切り替え、変更後の共有ストアの
// 再整合、セッション失効の一括ハンドリングを担う。
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/semearctl/internal/api"
	"github.com/hitoshi/semearctl/internal/model"
	"github.com/hitoshi/semearctl/internal/store"
)

// NewsAPI はダッシュボードが必要とするAPI操作のインターフェース。
type NewsAPI interface {
	// CreateNews は新しいお知らせを作成する。
	CreateNews(ctx context.Context, draft api.NewsDraft) (*model.NewsItem, error)
	// UpdateNews は既存のお知らせを部分更新する。
	UpdateNews(ctx context.Context, id string, patch api.NewsPatch) (*model.NewsItem, error)
	// DeleteNews はお知らせを削除する。
	DeleteNews(ctx context.Context, id string) error
	// Logout はサーバー側セッションを破棄する。
	Logout(ctx context.Context) error
}

// Form はお知らせ入力フォームの状態。
// Dateは常にローカル暦日として保持され、空になることはない
// （リセット時に今日の日付が入る）。
type Form struct {
	Title   string
	Excerpt string
	Content string
	Date    time.Time
}

// Dashboard は管理フローの状態機械。
// アイドル→送信中→アイドルの主状態と、作成/編集の直交するモードを持つ。
// 1つのユーザー操作につき1つの論理フローが走る想定で、内部の排他は
// 持たない（共有ストア側が排他を持つ）。
type Dashboard struct {
	api     NewsAPI
	store   *store.Store
	session *model.SessionState
	logger  *slog.Logger

	form       Form
	editing    *model.NewsItem
	sortOrder  model.SortOrder
	submitting bool
}

// New はDashboardを生成する。並び順は新しい順で始まる。
func New(newsAPI NewsAPI, st *store.Store, session *model.SessionState, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dashboard{
		api:       newsAPI,
		store:     st,
		session:   session,
		logger:    logger,
		sortOrder: model.SortDesc,
	}
	d.resetForm()
	return d
}

// Form は現在のフォーム状態を返す。
func (d *Dashboard) Form() Form {
	return d.form
}

// SetForm はフォーム状態を置き換える。
func (d *Dashboard) SetForm(f Form) {
	d.form = f
}

// IsEditing は編集モードかどうかを返す。
func (d *Dashboard) IsEditing() bool {
	return d.editing != nil
}

// EditingID は編集中のお知らせIDを返す。作成モードでは空文字列。
func (d *Dashboard) EditingID() string {
	if d.editing == nil {
		return ""
	}
	return d.editing.ID
}

// Authenticated は現在のセッション状態を返す。
func (d *Dashboard) Authenticated() bool {
	return d.session.Authenticated
}

// StartEdit は指定のお知らせを編集モードで開く。
// 保存された日付文字列はUTCの日時コンストラクタを経由せず、
// 必ずローカル暦日として再構築する（1日ずれの防止）。
func (d *Dashboard) StartEdit(item model.NewsItem) error {
	date, err := model.ParseLocalDate(item.Date)
	if err != nil {
		return model.NewValidationError("お知らせの日付を解釈できません: " + item.Date)
	}

	d.editing = &item
	d.form = Form{
		Title:   item.Title,
		Excerpt: item.Excerpt,
		Content: item.Content,
		Date:    date,
	}
	return nil
}

// CancelEdit は編集セッションを中断し、作成モードへ戻す。
func (d *Dashboard) CancelEdit() {
	d.editing = nil
	d.resetForm()
}

// Submit は現在のフォームを送信する。
// 作成モードでは新規作成、編集モードでは編集対象の更新を行う。
// 成功時は共有ストアをリフレッシュしてからフォームをリセットし、
// 作成モードへ戻る。失敗時はフォーム内容を保持したままエラーを返す
// （入力値を失わせない）。
func (d *Dashboard) Submit(ctx context.Context) (*model.NewsItem, error) {
	if d.submitting {
		return nil, model.NewValidationError("送信処理が進行中です")
	}

	title := strings.TrimSpace(d.form.Title)
	excerpt := strings.TrimSpace(d.form.Excerpt)
	content := strings.TrimSpace(d.form.Content)
	if title == "" || excerpt == "" || content == "" {
		return nil, model.NewValidationError("タイトル、抜粋、本文はすべて必須です")
	}

	// 日付はUTC変換ではなくローカル暦日の成分からフォーマットする
	date := model.FormatLocalDate(d.form.Date)

	d.submitting = true
	defer func() { d.submitting = false }()

	var (
		item *model.NewsItem
		err  error
	)
	if d.editing != nil {
		item, err = d.api.UpdateNews(ctx, d.editing.ID, api.NewsPatch{
			Title:   &title,
			Excerpt: &excerpt,
			Content: &content,
			Date:    &date,
		})
	} else {
		item, err = d.api.CreateNews(ctx, api.NewsDraft{
			Title:   title,
			Excerpt: excerpt,
			Content: content,
			Date:    date,
		})
	}
	if err != nil {
		return nil, d.fail(err)
	}

	d.reconcile(ctx)
	d.editing = nil
	d.resetForm()

	return item, nil
}

// Delete は指定IDのお知らせを削除する。
// 削除したのが編集中のお知らせだった場合、編集セッションは中断され
// フォームは作成モードの初期状態へ戻る。
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if err := d.api.DeleteNews(ctx, id); err != nil {
		return d.fail(err)
	}

	d.reconcile(ctx)

	if d.editing != nil && d.editing.ID == id {
		d.CancelEdit()
	}
	return nil
}

// Logout はサインアウトする。サーバー呼び出しはベストエフォートで、
// 失敗してもログに残すだけでローカルのサインアウト遷移は必ず完了する。
func (d *Dashboard) Logout(ctx context.Context) {
	if err := d.api.Logout(ctx); err != nil {
		d.logger.Warn("ログアウトのAPI呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
	}
	d.session.SignOut()
}

// SortOrder は現在の並び順を返す。
func (d *Dashboard) SortOrder() model.SortOrder {
	return d.sortOrder
}

// ToggleSortOrder は並び順を昇順/降順で切り替える。ネットワークへの
// 影響はない。
func (d *Dashboard) ToggleSortOrder() {
	d.sortOrder = d.sortOrder.Toggle()
}

// SortedNews は共有ストアの一覧を現在の並び順でソートして返す。
func (d *Dashboard) SortedNews() []model.NewsItem {
	return model.SortNewsByDate(d.store.News(), d.sortOrder)
}

// reconcile は変更成功後に共有ストアを全置換リフレッシュする。
// 変更自体は成功しているため、リフレッシュ失敗はログに残すだけとする
// （一覧取得は認証不要で、次のリフレッシュで追いつく）。
func (d *Dashboard) reconcile(ctx context.Context) {
	if err := d.store.Refresh(ctx); err != nil {
		d.logger.Warn("変更後のリフレッシュに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// fail はAPIエラーを表示用エラーへ変換する。
// 401はセッション失効として特別扱いし、セッション状態を未認証へ
// 落とした上で専用のメッセージを返す。その他のエラーは状態を変えず
// そのまま返す。
func (d *Dashboard) fail(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.IsSessionExpired() {
		d.session.SignOut()
		return model.NewAuthError("セッションの有効期限が切れました。再度ログインしてください")
	}
	return err
}

// resetForm はフォームを初期状態（今日の日付）へ戻す。
func (d *Dashboard) resetForm() {
	now := time.Now()
	d.form = Form{
		Date: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local),
	}
}
