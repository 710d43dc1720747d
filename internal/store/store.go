// Package store はお知らせ一覧と連絡先情報を保持するプロセス内の
// 共有ストアを提供する。複数の表示面（一覧表示・管理フロー・watchの
// ミラー）が同一インスタンスを参照し、編集が再読み込みなしに反映される。
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/semearctl/internal/model"
)

// NewsLister はストアが一覧取得に必要とするAPI操作のインターフェース。
type NewsLister interface {
	ListNews(ctx context.Context) ([]model.NewsItem, error)
}

// Store はサーバー状態のリードスルーミラー。
// 一覧は常に最後に成功した取得結果の全置換であり、部分的な
// 継ぎ接ぎは行わない。変更操作を行った側は成功後に必ずRefreshを
// 呼び、サーバーの採番・正規化結果を取り込む。
type Store struct {
	lister NewsLister
	logger *slog.Logger

	mu      sync.RWMutex
	news    []model.NewsItem
	contact model.ContactInfo
}

// New はStoreを生成する。アプリケーションごとに1インスタンスを
// 構築し、利用側へ注入する。
func New(lister NewsLister, contact model.ContactInfo, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		lister:  lister,
		contact: contact,
		logger:  logger,
	}
}

// News は現在のお知らせ一覧のコピーを返す。
// 返されたスライスを変更してもストアには影響しない。
func (s *Store) News() []model.NewsItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.NewsItem, len(s.news))
	copy(out, s.news)
	return out
}

// SetNews はお知らせ一覧を丸ごと置き換える。
func (s *Store) SetNews(items []model.NewsItem) {
	replaced := make([]model.NewsItem, len(items))
	copy(replaced, items)

	s.mu.Lock()
	s.news = replaced
	s.mu.Unlock()
}

// Contact は連絡先情報を返す。
func (s *Store) Contact() model.ContactInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contact
}

// SetContact は連絡先情報を置き換える。
func (s *Store) SetContact(c model.ContactInfo) {
	s.mu.Lock()
	s.contact = c
	s.mu.Unlock()
}

// Refresh はお知らせ一覧をサーバーから取得し直し、全置換する。
// 取得に失敗した場合は現在の一覧を保持したままエラーを返す。
func (s *Store) Refresh(ctx context.Context) error {
	items, err := s.lister.ListNews(ctx)
	if err != nil {
		return err
	}

	s.SetNews(items)
	return nil
}

// Load は起動直後の初回読み込みを行う。
// 初回の取得失敗は表示エラーにせず、ログに残して空の一覧のままとする。
// 公開ページの表示面に読み込み失敗時のモックデータを出してはならない。
func (s *Store) Load(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("お知らせ一覧の初回読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
