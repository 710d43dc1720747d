package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// persistedCookie はセッションファイルに保存するCookieの表現。
// サーバーのセッションは不透明な値であり、中身は解釈しない。
type persistedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Path  string `json:"path,omitempty"`
}

// sessionStore はセッションCookieのファイル永続化を担う。
// ブラウザのCookieストアに相当し、CLIの呼び出しをまたいで
// ログインセッションを引き継ぐために使う。
type sessionStore struct {
	path string
}

// newSessionStore はsessionStoreを生成する。
func newSessionStore(path string) *sessionStore {
	return &sessionStore{path: path}
}

// Load は保存済みのセッションCookieを読み込む。
// ファイルが存在しない場合は空のスライスを返す。
func (s *sessionStore) Load() ([]*http.Cookie, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var persisted []persistedCookie
	if err := json.Unmarshal(data, &persisted); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(persisted))
	for _, p := range persisted {
		cookies = append(cookies, &http.Cookie{
			Name:  p.Name,
			Value: p.Value,
			Path:  p.Path,
		})
	}
	return cookies, nil
}

// Save はセッションCookieをファイルへ保存する。
// セッション値を含むため所有者のみ読めるパーミッションで書き込む。
func (s *sessionStore) Save(cookies []*http.Cookie) error {
	persisted := make([]persistedCookie, 0, len(cookies))
	for _, c := range cookies {
		persisted = append(persisted, persistedCookie{
			Name:  c.Name,
			Value: c.Value,
			Path:  c.Path,
		})
	}

	data, err := json.Marshal(persisted)
	if err != nil {
		return fmt.Errorf("failed to encode session file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear は保存済みセッションを削除する。
// ファイルが存在しない場合は何もしない。
func (s *sessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
