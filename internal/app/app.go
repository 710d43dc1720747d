// Package app はCLIのエントリーポイントとサブコマンドの実行を提供する。
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/semearctl/internal/api"
	"github.com/hitoshi/semearctl/internal/config"
	"github.com/hitoshi/semearctl/internal/dashboard"
	"github.com/hitoshi/semearctl/internal/importer"
	"github.com/hitoshi/semearctl/internal/logger"
	"github.com/hitoshi/semearctl/internal/metrics"
	"github.com/hitoshi/semearctl/internal/model"
	"github.com/hitoshi/semearctl/internal/security"
	"github.com/hitoshi/semearctl/internal/store"
	"github.com/hitoshi/semearctl/internal/watch"
)

const version = "1.0.0"

const usage = `semearctl - Projeto Semear Lages お知らせ管理ツール

使い方:
  semearctl login -email <email> [-password <password>]
  semearctl logout
  semearctl me
  semearctl news list [-sort asc|desc]
  semearctl news show <id>
  semearctl news create -title <title> -excerpt <excerpt> -content <content> [-date YYYY-MM-DD]
  semearctl news edit <id> [-title <title>] [-excerpt <excerpt>] [-content <content>] [-date YYYY-MM-DD]
  semearctl news delete <id>
  semearctl import <feed-url> [-limit <n>] [-dry-run]
  semearctl watch
  semearctl version

環境変数:
  SEMEAR_API_URL      APIサーバーのベースURL（必須）
  SEMEAR_SESSION_FILE セッションファイルのパス（既定: ~/.semearctl/session.json）
  SEMEAR_PASSWORD     loginコマンドのパスワード（-passwordの代わり）
  CONTACT_EMAIL       サイト掲載の連絡先メールアドレス
  CONTACT_PHONE       サイト掲載の連絡先電話番号
  WATCH_INTERVAL      watchモードのリフレッシュ間隔（既定: 5m）
  OPS_PORT            watchモードの運用確認サーバーのポート（既定: 8080）
  IMPORT_RATE_LIMIT   importの1分あたり登録数上限（既定: 20）
  IMPORT_TIMEOUT      importのフィード取得タイムアウト（既定: 10s）
  IMPORT_MAX_SIZE     importのフィード最大サイズ（バイト、既定: 5242880）
`

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
func Init(w io.Writer) (*config.Config, error) {
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析して実行する。
// argsにはos.Args[1:]を渡し、wには利用者向け出力を書き込む。
func Run(w io.Writer, args []string) error {
	cmd, rest := ParseCommand(args)

	// version/help は軽量サブコマンドのため、フル初期化をスキップする
	switch cmd {
	case CommandVersion:
		fmt.Fprintf(w, "semearctl %s\n", version)
		return nil
	case CommandHelp:
		fmt.Fprint(w, usage)
		return nil
	}

	cfg, err := Init(os.Stderr)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx := context.Background()

	switch cmd {
	case CommandLogin:
		return runLogin(ctx, w, cfg, rest)
	case CommandLogout:
		return runLogout(ctx, w, cfg)
	case CommandMe:
		return runMe(ctx, w, cfg)
	case CommandNews:
		return runNews(ctx, w, cfg, rest)
	case CommandImport:
		return runImport(ctx, w, cfg, rest)
	case CommandWatch:
		return runWatch(cfg)
	default:
		fmt.Fprint(w, usage)
		return nil
	}
}

// newClient はセッション永続化付きのAPIクライアントを生成する。
func newClient(cfg *config.Config, recorder metrics.Recorder) (*api.Client, error) {
	return api.NewClient(cfg.APIBaseURL, api.Options{
		SessionFile: cfg.SessionFile,
		Logger:      slog.Default(),
		Metrics:     recorder,
	})
}

// newDashboard はクライアントと共有ストアの上に管理フローを組み立てる。
// 永続化されたセッションがある前提でログイン済み状態から始める。
func newDashboard(client *api.Client, cfg *config.Config) (*dashboard.Dashboard, *store.Store, *model.SessionState) {
	st := store.New(client, model.ContactInfo{
		Email: cfg.ContactEmail,
		Phone: cfg.ContactPhone,
	}, slog.Default())

	session := &model.SessionState{}
	session.SignIn()

	return dashboard.New(client, st, session, slog.Default()), st, session
}

func runLogin(ctx context.Context, w io.Writer, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(w)
	email := fs.String("email", "", "管理者のメールアドレス")
	password := fs.String("password", "", "パスワード（省略時はSEMEAR_PASSWORD）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		*password = os.Getenv("SEMEAR_PASSWORD")
	}

	client, err := newClient(cfg, metrics.NopRecorder{})
	if err != nil {
		return err
	}

	result, err := client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "ログインしました: %s\n", result.UserEmail)
	return nil
}

func runLogout(ctx context.Context, w io.Writer, cfg *config.Config) error {
	client, err := newClient(cfg, metrics.NopRecorder{})
	if err != nil {
		return err
	}

	// ローカルセッションはLogout内で常に破棄される。
	// サーバー到達失敗はログアウト済み扱いとし、警告のみ残す。
	if err := client.Logout(ctx); err != nil {
		slog.Warn("サーバー側のログアウトに失敗しました",
			slog.String("error", err.Error()),
		)
	}

	fmt.Fprintln(w, "ログアウトしました")
	return nil
}

func runMe(ctx context.Context, w io.Writer, cfg *config.Config) error {
	client, err := newClient(cfg, metrics.NopRecorder{})
	if err != nil {
		return err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "ID: %s\nEmail: %s\n", user.ID, user.Email)
	return nil
}

func runNews(ctx context.Context, w io.Writer, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(w, usage)
		return fmt.Errorf("newsサブコマンドを指定してください")
	}

	client, err := newClient(cfg, metrics.NopRecorder{})
	if err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return runNewsList(ctx, w, client, rest)
	case "show":
		return runNewsShow(ctx, w, client, rest)
	case "create":
		return runNewsCreate(ctx, w, client, cfg, rest)
	case "edit":
		return runNewsEdit(ctx, w, client, cfg, rest)
	case "delete":
		return runNewsDelete(ctx, w, client, cfg, rest)
	default:
		fmt.Fprint(w, usage)
		return fmt.Errorf("不明なnewsサブコマンド: %s", sub)
	}
}

func runNewsList(ctx context.Context, w io.Writer, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("news list", flag.ContinueOnError)
	fs.SetOutput(w)
	sortFlag := fs.String("sort", "desc", "並び順（asc: 古い順、desc: 新しい順）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	order := model.SortDesc
	if *sortFlag == "asc" {
		order = model.SortAsc
	}

	items, err := client.ListNews(ctx)
	if err != nil {
		return err
	}
	sorted := model.SortNewsByDate(items, order)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE")
	for _, item := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", item.ID, item.Date, item.Title)
	}
	return tw.Flush()
}

func runNewsShow(ctx context.Context, w io.Writer, client *api.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("お知らせIDを指定してください")
	}

	item, err := client.GetNewsItem(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "ID:      %s\n", item.ID)
	fmt.Fprintf(w, "Date:    %s\n", item.Date)
	fmt.Fprintf(w, "Title:   %s\n", item.Title)
	fmt.Fprintf(w, "Excerpt: %s\n", item.Excerpt)
	fmt.Fprintf(w, "\n%s\n", item.Content)
	return nil
}

func runNewsCreate(ctx context.Context, w io.Writer, client *api.Client, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("news create", flag.ContinueOnError)
	fs.SetOutput(w)
	title := fs.String("title", "", "タイトル")
	excerpt := fs.String("excerpt", "", "抜粋")
	content := fs.String("content", "", "本文")
	date := fs.String("date", "", "日付（YYYY-MM-DD、省略時は今日）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, _, _ := newDashboard(client, cfg)

	form := d.Form() // 日付は今日で初期化済み
	form.Title = *title
	form.Excerpt = *excerpt
	form.Content = *content
	if *date != "" {
		parsed, err := model.ParseLocalDate(*date)
		if err != nil {
			return model.NewValidationError("日付の形式が不正です。YYYY-MM-DD形式で指定してください")
		}
		form.Date = parsed
	}
	d.SetForm(form)

	created, err := d.Submit(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "お知らせを作成しました: ID %s\n", created.ID)
	return nil
}

func runNewsEdit(ctx context.Context, w io.Writer, client *api.Client, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("お知らせIDを指定してください")
	}
	id := args[0]

	fs := flag.NewFlagSet("news edit", flag.ContinueOnError)
	fs.SetOutput(w)
	title := fs.String("title", "", "タイトル")
	excerpt := fs.String("excerpt", "", "抜粋")
	content := fs.String("content", "", "本文")
	date := fs.String("date", "", "日付（YYYY-MM-DD）")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	item, err := client.GetNewsItem(ctx, id)
	if err != nil {
		return err
	}

	d, _, _ := newDashboard(client, cfg)
	if err := d.StartEdit(*item); err != nil {
		return err
	}

	form := d.Form()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			form.Title = *title
		case "excerpt":
			form.Excerpt = *excerpt
		case "content":
			form.Content = *content
		}
	})
	if *date != "" {
		parsed, err := model.ParseLocalDate(*date)
		if err != nil {
			return model.NewValidationError("日付の形式が不正です。YYYY-MM-DD形式で指定してください")
		}
		form.Date = parsed
	}
	d.SetForm(form)

	updated, err := d.Submit(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "お知らせを更新しました: ID %s\n", updated.ID)
	return nil
}

func runNewsDelete(ctx context.Context, w io.Writer, client *api.Client, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("お知らせIDを指定してください")
	}
	id := args[0]

	d, _, _ := newDashboard(client, cfg)
	if err := d.Delete(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(w, "お知らせを削除しました: ID %s\n", id)
	return nil
}

func runImport(ctx context.Context, w io.Writer, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(w)
	limit := fs.Int("limit", 0, "登録する記事数の上限（0は無制限）")
	dryRun := fs.Bool("dry-run", false, "登録せずに内容だけ表示する")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("フィードURLを指定してください")
	}
	feedURL := fs.Arg(0)

	client, err := newClient(cfg, metrics.NopRecorder{})
	if err != nil {
		return err
	}

	im := importer.NewImporter(
		client,
		security.NewFeedURLGuard(),
		security.NewContentSanitizer(),
		slog.Default(),
		cfg.ImportRatePerMinute,
		cfg.ImportTimeout,
		cfg.ImportMaxBodySize,
	)

	summary, err := im.Import(ctx, feedURL, importer.Options{
		Limit:  *limit,
		DryRun: *dryRun,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "インポート完了: 登録 %d件、スキップ %d件、失敗 %d件\n",
		summary.Created, summary.Skipped, summary.Failed)
	return nil
}

// runWatch は監視モードで起動する。
// 定期リフレッシュと運用確認サーバーを起動し、
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWatch(cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	client, err := newClient(cfg, collector)
	if err != nil {
		return err
	}

	st := store.New(client, model.ContactInfo{
		Email: cfg.ContactEmail,
		Phone: cfg.ContactPhone,
	}, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down watch mode...")
		cancel()
	}()

	slog.Info("watch mode starting",
		slog.Duration("interval", cfg.WatchInterval),
		slog.String("ops_port", cfg.OpsPort),
	)

	// 運用確認サーバーをバックグラウンドで起動
	router := watch.NewRouter(st, registry)
	go func() {
		if err := watch.Serve(ctx, cfg.OpsPort, router, slog.Default()); err != nil {
			slog.Error("ops server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	// 監視ループをメインgoroutineで実行（ブロッキング）
	watcher := watch.NewWatcher(st, collector, slog.Default(), cfg.WatchInterval)
	watcher.Start(ctx)

	slog.Info("watch mode stopped gracefully")
	return nil
}
