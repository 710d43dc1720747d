package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/semearctl/internal/api"
	"github.com/hitoshi/semearctl/internal/model"
	"github.com/hitoshi/semearctl/internal/store"
)

// --- モック定義 ---

type mockNewsAPI struct {
	createNewsFn func(ctx context.Context, draft api.NewsDraft) (*model.NewsItem, error)
	updateNewsFn func(ctx context.Context, id string, patch api.NewsPatch) (*model.NewsItem, error)
	deleteNewsFn func(ctx context.Context, id string) error
	logoutFn     func(ctx context.Context) error

	createCalls int
}

func (m *mockNewsAPI) CreateNews(ctx context.Context, draft api.NewsDraft) (*model.NewsItem, error) {
	m.createCalls++
	if m.createNewsFn != nil {
		return m.createNewsFn(ctx, draft)
	}
	return &model.NewsItem{ID: "1"}, nil
}

func (m *mockNewsAPI) UpdateNews(ctx context.Context, id string, patch api.NewsPatch) (*model.NewsItem, error) {
	if m.updateNewsFn != nil {
		return m.updateNewsFn(ctx, id, patch)
	}
	return &model.NewsItem{ID: id}, nil
}

func (m *mockNewsAPI) DeleteNews(ctx context.Context, id string) error {
	if m.deleteNewsFn != nil {
		return m.deleteNewsFn(ctx, id)
	}
	return nil
}

func (m *mockNewsAPI) Logout(ctx context.Context) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx)
	}
	return nil
}

// mockLister はストアのリフレッシュが返す一覧を差し替えるモック。
type mockLister struct {
	items []model.NewsItem
	calls int
}

func (m *mockLister) ListNews(ctx context.Context) ([]model.NewsItem, error) {
	m.calls++
	return m.items, nil
}

func newTestDashboard(newsAPI NewsAPI, lister *mockLister) (*Dashboard, *store.Store, *model.SessionState) {
	st := store.New(lister, model.ContactInfo{}, nil)
	session := &model.SessionState{Authenticated: true}
	d := New(newsAPI, st, session, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return d, st, session
}

// --- テスト ---

func TestSubmit_CreateMode_CallsCreateAndRefreshesStore(t *testing.T) {
	lister := &mockLister{}
	var gotDraft api.NewsDraft
	mock := &mockNewsAPI{
		createNewsFn: func(ctx context.Context, draft api.NewsDraft) (*model.NewsItem, error) {
			gotDraft = draft
			created := model.NewsItem{
				ID: "42", Title: draft.Title, Excerpt: draft.Excerpt,
				Content: draft.Content, Date: draft.Date,
			}
			// サーバーに保存された状態を次のリフレッシュで返す
			lister.items = []model.NewsItem{created}
			return &created, nil
		},
	}
	d, st, _ := newTestDashboard(mock, lister)

	d.SetForm(Form{
		Title:   "  Festa junina  ",
		Excerpt: " Arraiá do Semear ",
		Content: " Venha participar ",
		Date:    time.Date(2024, 6, 20, 0, 0, 0, 0, time.Local),
	})

	item, err := d.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	// トリム済みの値とローカル暦日フォーマットの日付が送られること
	if gotDraft.Title != "Festa junina" {
		t.Errorf("draft.Title = %q, want trimmed", gotDraft.Title)
	}
	if gotDraft.Date != "2024-06-20" {
		t.Errorf("draft.Date = %q, want %q", gotDraft.Date, "2024-06-20")
	}

	// サーバー採番のIDが返ること
	if item.ID != "42" {
		t.Errorf("item.ID = %q, want %q", item.ID, "42")
	}

	// 成功後は共有ストアがリフレッシュされ、ローカル継ぎ接ぎをしないこと
	if lister.calls != 1 {
		t.Errorf("refresh calls = %d, want 1", lister.calls)
	}
	news := st.News()
	if len(news) != 1 || news[0].ID != "42" {
		t.Errorf("store news = %+v, want refreshed list with server item", news)
	}

	// フォームはリセットされ作成モードに戻ること
	if d.Form().Title != "" || d.IsEditing() {
		t.Error("form should be reset to create mode after successful submit")
	}
}

func TestSubmit_EmptyRequiredField_FailsWithoutAPICall(t *testing.T) {
	mock := &mockNewsAPI{}
	d, _, _ := newTestDashboard(mock, &mockLister{})

	d.SetForm(Form{
		Title:   "   ",
		Excerpt: "resumo",
		Content: "conteúdo",
		Date:    time.Now(),
	})

	_, err := d.Submit(context.Background())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != model.ErrorKindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if mock.createCalls != 0 {
		t.Errorf("create calls = %d, want 0", mock.createCalls)
	}
	// 失敗時もフォーム内容は保持されること
	if d.Form().Excerpt != "resumo" {
		t.Error("form contents should be preserved on validation failure")
	}
}

func TestSubmit_CreateFailure_KeepsFormAndMode(t *testing.T) {
	mock := &mockNewsAPI{
		createNewsFn: func(ctx context.Context, draft api.NewsDraft) (*model.NewsItem, error) {
			return nil, model.NewRemoteError(422, "Data da notícia não pode ser no futuro", nil)
		},
	}
	d, _, _ := newTestDashboard(mock, &mockLister{})

	d.SetForm(Form{Title: "t", Excerpt: "e", Content: "c", Date: time.Now()})

	_, err := d.Submit(context.Background())
	if err == nil {
		t.Fatal("expected error from Submit")
	}

	// サーバーのメッセージがそのまま表示に使われ、状態は変わらないこと
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Data da notícia não pode ser no futuro" {
		t.Errorf("error = %v, want server detail preserved", err)
	}
	if d.Form().Title != "t" || d.IsEditing() {
		t.Error("form and mode should be unchanged after remote failure")
	}
}

func TestStartEdit_PopulatesFormWithLocalDate(t *testing.T) {
	d, _, _ := newTestDashboard(&mockNewsAPI{}, &mockLister{})

	item := model.NewsItem{
		ID: "7", Title: "Bazar", Excerpt: "Bazar beneficente",
		Content: "Detalhes do bazar", Date: "2024-01-15",
	}
	if err := d.StartEdit(item); err != nil {
		t.Fatalf("StartEdit returned error: %v", err)
	}

	if !d.IsEditing() || d.EditingID() != "7" {
		t.Error("dashboard should be in editing mode for item 7")
	}

	f := d.Form()
	if f.Title != "Bazar" {
		t.Errorf("form.Title = %q, want %q", f.Title, "Bazar")
	}
	// 日付はローカル暦日として復元され、往復で1日ずれないこと
	if got := model.FormatLocalDate(f.Date); got != "2024-01-15" {
		t.Errorf("form date round trip = %q, want %q", got, "2024-01-15")
	}
}

func TestStartEdit_UnparseableDate_ReturnsValidationError(t *testing.T) {
	d, _, _ := newTestDashboard(&mockNewsAPI{}, &mockLister{})

	err := d.StartEdit(model.NewsItem{ID: "1", Date: "not-a-date"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != model.ErrorKindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if d.IsEditing() {
		t.Error("dashboard should stay in create mode")
	}
}

func TestSubmit_EditMode_UpdatesAndReturnsToCreateMode(t *testing.T) {
	var gotID string
	var gotPatch api.NewsPatch
	mock := &mockNewsAPI{
		updateNewsFn: func(ctx context.Context, id string, patch api.NewsPatch) (*model.NewsItem, error) {
			gotID = id
			gotPatch = patch
			return &model.NewsItem{ID: id}, nil
		},
	}
	lister := &mockLister{}
	d, _, _ := newTestDashboard(mock, lister)

	if err := d.StartEdit(model.NewsItem{
		ID: "7", Title: "Bazar", Excerpt: "resumo", Content: "conteúdo", Date: "2024-01-15",
	}); err != nil {
		t.Fatalf("StartEdit returned error: %v", err)
	}

	f := d.Form()
	f.Title = "Bazar atualizado"
	d.SetForm(f)

	if _, err := d.Submit(context.Background()); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if gotID != "7" {
		t.Errorf("update id = %q, want %q", gotID, "7")
	}
	if gotPatch.Title == nil || *gotPatch.Title != "Bazar atualizado" {
		t.Error("patch should carry the edited title")
	}
	if gotPatch.Date == nil || *gotPatch.Date != "2024-01-15" {
		t.Error("patch should carry the local-formatted date")
	}

	// 更新成功後は編集セッションが終了し作成モードへ戻ること
	if d.IsEditing() {
		t.Error("dashboard should return to create mode after successful update")
	}
	if lister.calls != 1 {
		t.Errorf("refresh calls = %d, want 1", lister.calls)
	}
}

func TestDelete_EditedItem_CancelsEditSession(t *testing.T) {
	d, _, _ := newTestDashboard(&mockNewsAPI{}, &mockLister{})

	if err := d.StartEdit(model.NewsItem{
		ID: "3", Title: "t", Excerpt: "e", Content: "c", Date: "2024-02-01",
	}); err != nil {
		t.Fatalf("StartEdit returned error: %v", err)
	}

	if err := d.Delete(context.Background(), "3"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	// 編集中のお知らせを削除すると編集がキャンセルされフォームが初期化されること
	if d.IsEditing() {
		t.Error("edit session should be cancelled when the edited item is deleted")
	}
	if d.Form().Title != "" {
		t.Error("form should be reset to defaults")
	}
}

func TestDelete_OtherItem_KeepsEditSession(t *testing.T) {
	d, _, _ := newTestDashboard(&mockNewsAPI{}, &mockLister{})

	if err := d.StartEdit(model.NewsItem{
		ID: "3", Title: "t", Excerpt: "e", Content: "c", Date: "2024-02-01",
	}); err != nil {
		t.Fatalf("StartEdit returned error: %v", err)
	}

	if err := d.Delete(context.Background(), "9"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if !d.IsEditing() || d.EditingID() != "3" {
		t.Error("deleting another item should not cancel the edit session")
	}
}

func TestAnyOperation_With401_SignsOutAndReportsSessionExpiry(t *testing.T) {
	tests := []struct {
		name string
		run  func(d *Dashboard) error
	}{
		{
			name: "create",
			run: func(d *Dashboard) error {
				d.SetForm(Form{Title: "t", Excerpt: "e", Content: "c", Date: time.Now()})
				_, err := d.Submit(context.Background())
				return err
			},
		},
		{
			name: "delete",
			run: func(d *Dashboard) error {
				return d.Delete(context.Background(), "1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockNewsAPI{
				createNewsFn: func(ctx context.Context, draft api.NewsDraft) (*model.NewsItem, error) {
					return nil, model.NewAuthError("Não autenticado")
				},
				deleteNewsFn: func(ctx context.Context, id string) error {
					return model.NewAuthError("Não autenticado")
				},
			}
			d, _, session := newTestDashboard(mock, &mockLister{})

			err := tt.run(d)

			// どの操作の401でも未認証へ落ち、失効メッセージになること
			if session.Authenticated {
				t.Error("session should be signed out after 401")
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Kind != model.ErrorKindAuth {
				t.Fatalf("expected auth error, got %v", err)
			}
			if apiErr.Message == "Não autenticado" {
				t.Error("session expiry should surface a distinct message, not the raw detail")
			}
		})
	}
}

func TestNon401Failure_DoesNotSignOut(t *testing.T) {
	mock := &mockNewsAPI{
		deleteNewsFn: func(ctx context.Context, id string) error {
			return model.NewRemoteError(404, "Notícia não encontrada", nil)
		},
	}
	d, _, session := newTestDashboard(mock, &mockLister{})

	if err := d.Delete(context.Background(), "1"); err == nil {
		t.Fatal("expected error from Delete")
	}

	if !session.Authenticated {
		t.Error("non-401 failures must not sign the user out")
	}
}

func TestLogout_NetworkFailure_StillSignsOutLocally(t *testing.T) {
	mock := &mockNewsAPI{
		logoutFn: func(ctx context.Context) error {
			return model.NewNetworkError("connection refused")
		},
	}
	d, _, session := newTestDashboard(mock, &mockLister{})

	// ログアウトはベストエフォートであり、失敗してもローカル遷移は完了すること
	d.Logout(context.Background())

	if session.Authenticated {
		t.Error("logout must always complete the local sign-out transition")
	}
}

func TestToggleSortOrder_SortsStoreNewsWithoutNetwork(t *testing.T) {
	lister := &mockLister{}
	d, st, _ := newTestDashboard(&mockNewsAPI{}, lister)
	st.SetNews([]model.NewsItem{
		{ID: "a", Date: "2024-03-01"},
		{ID: "b", Date: "2024-01-10"},
		{ID: "c", Date: "2024-02-20"},
	})

	// 初期状態は新しい順
	news := d.SortedNews()
	if news[0].Date != "2024-03-01" || news[2].Date != "2024-01-10" {
		t.Errorf("descending order wrong: %v", datesOf(news))
	}

	d.ToggleSortOrder()
	news = d.SortedNews()
	if news[0].Date != "2024-01-10" || news[2].Date != "2024-03-01" {
		t.Errorf("ascending order wrong: %v", datesOf(news))
	}

	// 並び替えはネットワークに影響しないこと
	if lister.calls != 0 {
		t.Errorf("refresh calls = %d, want 0", lister.calls)
	}
}

func datesOf(items []model.NewsItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Date
	}
	return out
}
