// Package watch はお知らせ一覧の定期リフレッシュと変更検知を行う
// 監視モードを提供する。運用確認用に /healthz と /metrics も公開する。
package watch

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/semearctl/internal/metrics"
	"github.com/hitoshi/semearctl/internal/model"
)

// NewsSource は監視対象のお知らせミラーのインターフェース。
type NewsSource interface {
	Refresh(ctx context.Context) error
	News() []model.NewsItem
}

// Watcher は一定間隔でお知らせ一覧をリフレッシュし、
// 前回スナップショットとの差分をログに記録する。
type Watcher struct {
	source   NewsSource
	recorder metrics.Recorder
	logger   *slog.Logger
	interval time.Duration

	// 前回観測したお知らせのID -> タイトル
	known map[string]string
}

// NewWatcher はWatcherの新しいインスタンスを生成する。
// intervalが0以下の場合はデフォルト値5分を使用する。
func NewWatcher(source NewsSource, recorder metrics.Recorder, logger *slog.Logger, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Watcher{
		source:   source,
		recorder: recorder,
		logger:   logger,
		interval: interval,
		known:    make(map[string]string),
	}
}

// Start はティッカーで監視ループを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (w *Watcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("監視モードを開始しました",
		slog.Duration("interval", w.interval),
	)

	// 起動直後に1回実行
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("監視モードを停止しました")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce はリフレッシュを1回実行し、差分を記録する。
// リフレッシュ失敗時は前回の一覧を保持したまま次回に持ち越す。
func (w *Watcher) RunOnce(ctx context.Context) {
	start := time.Now()

	if err := w.source.Refresh(ctx); err != nil {
		w.recorder.RecordRefresh(false)
		w.logger.Error("お知らせ一覧のリフレッシュに失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}
	w.recorder.RecordRefresh(true)

	current := make(map[string]string)
	for _, item := range w.source.News() {
		current[item.ID] = item.Title
	}

	added, removed := diffIDs(w.known, current)
	for _, id := range added {
		w.logger.Info("お知らせが追加されました",
			slog.String("news_id", id),
			slog.String("title", current[id]),
		)
	}
	for _, id := range removed {
		w.logger.Info("お知らせが削除されました",
			slog.String("news_id", id),
			slog.String("title", w.known[id]),
		)
	}
	w.known = current

	w.logger.Info("リフレッシュが完了しました",
		slog.Int("news_count", len(current)),
		slog.Int("added", len(added)),
		slog.Int("removed", len(removed)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}

// diffIDs は前回と今回のID集合を比較し、追加分と削除分を返す。
func diffIDs(previous, current map[string]string) (added, removed []string) {
	for id := range current {
		if _, ok := previous[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range previous {
		if _, ok := current[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// NewRouter は運用確認用のHTTPルーターを構築する。
// GET /healthz は最新スナップショットの件数を返し、
// GET /metrics はPrometheus形式のメトリクスを返す。
func NewRouter(source NewsSource, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "application/json; charset=utf-8")
		rw.WriteHeader(http.StatusOK)
		count := len(source.News())
		rw.Write([]byte(`{"status":"ok","news_count":` + strconv.Itoa(count) + `}`))
	})
	r.Handle("/metrics", metrics.Handler(gatherer))

	return r
}

// Serve は運用確認用HTTPサーバーを起動し、コンテキストの
// キャンセルでグレースフルシャットダウンする。
func Serve(ctx context.Context, port string, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("運用確認サーバーを起動します",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("運用確認サーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
