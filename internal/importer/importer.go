// Package importer は外部RSS/Atomフィードからお知らせを一括登録する。
//
// フィードURLのSSRF検証、HTMLコンテンツのサニタイズ、
// サーバー側の投稿レート制限に合わせたクライアント側ペーシングを行う。
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/hitoshi/semearctl/internal/api"
	"github.com/hitoshi/semearctl/internal/model"
)

// 抜粋の最大文字数（rune数）。超過分は切り詰めて省略記号を付ける。
const maxExcerptRunes = 200

// NewsCreator はお知らせの登録処理のインターフェース。
type NewsCreator interface {
	CreateNews(ctx context.Context, draft api.NewsDraft) (*model.NewsItem, error)
}

// URLGuard はフィードURLのSSRF検証のインターフェース。
type URLGuard interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// Sanitizer はフィード由来HTMLのサニタイズのインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
	PlainText(rawHTML string) string
}

// Options はインポート実行のオプション。
type Options struct {
	// Limit は登録する記事数の上限。0以下は無制限。
	Limit int
	// DryRun が有効な場合、登録内容をログに出力するだけでAPIを呼ばない。
	DryRun bool
}

// Summary はインポート実行の結果集計。
type Summary struct {
	Created int // 登録した記事数（DryRun時は登録予定数）
	Skipped int // 必須フィールドがサニタイズ後に空でスキップした記事数
	Failed  int // 登録に失敗した記事数
}

// Importer はフィードのフェッチ、変換、お知らせ登録を行う。
type Importer struct {
	creator     NewsCreator
	guard       URLGuard
	sanitizer   Sanitizer
	limiter     *rate.Limiter
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewImporter はImporterの新しいインスタンスを生成する。
// ratePerMinute はサーバー側の投稿レート制限に合わせた1分あたりの登録数上限。
func NewImporter(
	creator NewsCreator,
	guard URLGuard,
	sanitizer Sanitizer,
	logger *slog.Logger,
	ratePerMinute int,
	timeout time.Duration,
	maxBodySize int64,
) *Importer {
	if ratePerMinute <= 0 {
		ratePerMinute = 1
	}
	return &Importer{
		creator:     creator,
		guard:       guard,
		sanitizer:   sanitizer,
		limiter:     rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 1),
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Import はフィードをフェッチし、記事をお知らせとして登録する。
// 記事単位の登録失敗はログに記録して続行するが、認証エラー
// （セッション切れ）は以降の登録も失敗するため即座に中断する。
func (im *Importer) Import(ctx context.Context, feedURL string, opts Options) (Summary, error) {
	runID := uuid.NewString()
	logger := im.logger.With(slog.String("run_id", runID), slog.String("feed_url", feedURL))

	var summary Summary

	// SSRF検証
	if err := im.guard.ValidateURL(feedURL); err != nil {
		logger.Error("フィードURLの検証に失敗しました",
			slog.String("error", err.Error()),
		)
		return summary, fmt.Errorf("フィードURLの検証に失敗: %w", err)
	}

	parsedFeed, err := im.fetchFeed(ctx, feedURL)
	if err != nil {
		logger.Error("フィードの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return summary, err
	}

	logger.Info("フィードを取得しました",
		slog.String("feed_title", parsedFeed.Title),
		slog.Int("item_count", len(parsedFeed.Items)),
	)

	for _, item := range parsedFeed.Items {
		if opts.Limit > 0 && summary.Created >= opts.Limit {
			break
		}

		draft, ok := im.buildDraft(item)
		if !ok {
			logger.Warn("必須フィールドが空のためスキップします",
				slog.String("item_link", item.Link),
			)
			summary.Skipped++
			continue
		}

		if opts.DryRun {
			logger.Info("登録予定の記事（dry-run）",
				slog.String("title", draft.Title),
				slog.String("date", draft.Date),
			)
			summary.Created++
			continue
		}

		if err := im.limiter.Wait(ctx); err != nil {
			return summary, fmt.Errorf("レート制限待機中に中断: %w", err)
		}

		created, err := im.creator.CreateNews(ctx, draft)
		if err != nil {
			var apiErr *model.APIError
			if errors.As(err, &apiErr) && apiErr.IsSessionExpired() {
				logger.Error("セッションが無効なためインポートを中断します",
					slog.String("title", draft.Title),
				)
				return summary, err
			}
			logger.Error("記事の登録に失敗しました",
				slog.String("title", draft.Title),
				slog.String("error", err.Error()),
			)
			summary.Failed++
			continue
		}

		logger.Info("記事を登録しました",
			slog.String("news_id", created.ID),
			slog.String("title", created.Title),
		)
		summary.Created++
	}

	logger.Info("インポートが完了しました",
		slog.Int("created", summary.Created),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

// fetchFeed はフィードをHTTPで取得してパースする。
func (im *Importer) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	client := im.guard.NewSafeClient(im.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "semearctl/1.0 News Importer")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("フィードの取得に失敗: HTTP %d", resp.StatusCode)
	}

	// レスポンスボディを読み込み（最大サイズ制限付き）
	body, err := io.ReadAll(io.LimitReader(resp.Body, im.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取りに失敗: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}
	return parsed, nil
}

// buildDraft はフィード記事をお知らせの登録内容に変換する。
// タイトル、抜粋、本文のいずれかがサニタイズ後に空になる記事は
// サーバー側の必須チェックに通らないため、登録対象外としてfalseを返す。
func (im *Importer) buildDraft(item *gofeed.Item) (api.NewsDraft, bool) {
	title := strings.TrimSpace(im.sanitizer.PlainText(item.Title))

	rawContent := item.Content
	if strings.TrimSpace(rawContent) == "" {
		rawContent = item.Description
	}
	content := strings.TrimSpace(im.sanitizer.Sanitize(rawContent))

	excerpt := truncateRunes(strings.TrimSpace(im.sanitizer.PlainText(item.Description)), maxExcerptRunes)
	if excerpt == "" {
		excerpt = truncateRunes(im.sanitizer.PlainText(content), maxExcerptRunes)
	}

	if title == "" || excerpt == "" || content == "" {
		return api.NewsDraft{}, false
	}

	date := model.FormatLocalDate(time.Now())
	if item.PublishedParsed != nil {
		date = model.FormatLocalDate(item.PublishedParsed.Local())
	}

	return api.NewsDraft{
		Title:   title,
		Excerpt: excerpt,
		Content: content,
		Date:    date,
	}, true
}

// truncateRunes は文字列をrune数でmaxに切り詰め、超過時は省略記号を付ける。
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
