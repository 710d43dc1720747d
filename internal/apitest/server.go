// Package apitest はお知らせ管理APIのHTTP契約を模したテスト用フェイク
// サーバーを提供する。本物のサーバーと同じルーティング・検証・
// エラーボディ形式（{"detail": ...}）を持ち、クライアント側の
// パッケージのテストから共用される。
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DefaultAdminEmail はフェイクサーバーの管理者メールアドレス。
const DefaultAdminEmail = "admin@projetosemear.org"

// DefaultAdminPassword はフェイクサーバーの管理者パスワード。
const DefaultAdminPassword = "semear-admin-pass"

// sessionCookieName はサーバーが発行するセッションCookie名。
const sessionCookieName = "access_token"

// NewsRecord はフェイクサーバーが保持するお知らせレコード。
// 本物のサーバーと同様にIDは数値で採番される。
type NewsRecord struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// Server はAPI契約のフェイク実装。
type Server struct {
	httpServer *httptest.Server

	mu           sync.Mutex
	news         []NewsRecord
	nextID       int
	sessions     map[string]bool // 有効なセッショントークン
	requestCount int

	adminEmail    string
	adminPassword string
}

// NewServer はフェイクサーバーを起動する。呼び出し側はCloseすること。
func NewServer() *Server {
	s := &Server{
		nextID:        1,
		sessions:      make(map[string]bool),
		adminEmail:    DefaultAdminEmail,
		adminPassword: DefaultAdminPassword,
	}

	r := chi.NewRouter()
	r.Use(s.countRequests)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/me", s.handleMe)

		r.Get("/news", s.handleListNews)
		r.Post("/news", s.handleCreateNews)
		r.Get("/news/{id}", s.handleGetNews)
		r.Put("/news/{id}", s.handleUpdateNews)
		r.Delete("/news/{id}", s.handleDeleteNews)
	})

	s.httpServer = httptest.NewServer(r)
	return s
}

// URL はフェイクサーバーのベースURLを返す。
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close はフェイクサーバーを停止する。
func (s *Server) Close() {
	s.httpServer.Close()
}

// RequestCount は受信したHTTPリクエストの総数を返す。
// ローカル検証エラーがネットワークに到達しないことの検証に使う。
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestCount
}

// SeedNews はお知らせを直接投入し、採番されたレコードを返す。
func (s *Server) SeedNews(title, excerpt, content, date string) NewsRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := NewsRecord{
		ID:      s.nextID,
		Title:   title,
		Excerpt: excerpt,
		Content: content,
		Date:    date,
	}
	s.nextID++
	s.news = append(s.news, rec)
	return rec
}

// News は現在保持しているお知らせ一覧のコピーを返す。
func (s *Server) News() []NewsRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]NewsRecord, len(s.news))
	copy(out, s.news)
	return out
}

// ExpireSessions は発行済みの全セッションを失効させる。
// 以後の認証必須リクエストは401を返す。
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]bool)
}

// --- ミドルウェア / ヘルパー ---

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requestCount++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// authenticated はリクエストのセッションCookieが有効かどうかを返す。
func (s *Server) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[cookie.Value]
}

// --- 認証ハンドラー ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "E-mail e senha são obrigatórios")
		return
	}

	if req.Email != s.adminEmail || req.Password != s.adminPassword {
		writeDetail(w, http.StatusUnauthorized, "E-mail ou senha incorretos")
		return
	}

	token := uuid.New().String()
	s.mu.Lock()
	s.sessions[token] = true
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Login realizado com sucesso",
		"user_email": req.Email,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout realizado com sucesso"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		writeDetail(w, http.StatusUnauthorized, "Não autenticado")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"email": s.adminEmail,
		"id":    1,
	})
}

// --- お知らせハンドラー ---

func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]NewsRecord, len(s.news))
	copy(out, s.news)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Notícia não encontrada")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.news {
		if rec.ID == id {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Notícia não encontrada")
}

func (s *Server) handleCreateNews(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		writeDetail(w, http.StatusUnauthorized, "Não autenticado")
		return
	}

	var req struct {
		Title   string `json:"title"`
		Excerpt string `json:"excerpt"`
		Content string `json:"content"`
		Date    string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		writeDetail(w, http.StatusBadRequest, "Título não pode estar vazio")
		return
	}
	if strings.TrimSpace(req.Excerpt) == "" {
		writeDetail(w, http.StatusBadRequest, "Resumo não pode estar vazio")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeDetail(w, http.StatusBadRequest, "Conteúdo não pode estar vazio")
		return
	}

	s.mu.Lock()
	rec := NewsRecord{
		ID:      s.nextID,
		Title:   strings.TrimSpace(req.Title),
		Excerpt: strings.TrimSpace(req.Excerpt),
		Content: strings.TrimSpace(req.Content),
		Date:    req.Date,
	}
	s.nextID++
	s.news = append(s.news, rec)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateNews(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		writeDetail(w, http.StatusUnauthorized, "Não autenticado")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Notícia não encontrada")
		return
	}

	var req struct {
		Title   *string `json:"title"`
		Excerpt *string `json:"excerpt"`
		Content *string `json:"content"`
		Date    *string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.news {
		if s.news[i].ID != id {
			continue
		}
		if req.Title != nil {
			if strings.TrimSpace(*req.Title) == "" {
				writeDetail(w, http.StatusBadRequest, "Título não pode estar vazio")
				return
			}
			s.news[i].Title = strings.TrimSpace(*req.Title)
		}
		if req.Excerpt != nil {
			if strings.TrimSpace(*req.Excerpt) == "" {
				writeDetail(w, http.StatusBadRequest, "Resumo não pode estar vazio")
				return
			}
			s.news[i].Excerpt = strings.TrimSpace(*req.Excerpt)
		}
		if req.Content != nil {
			if strings.TrimSpace(*req.Content) == "" {
				writeDetail(w, http.StatusBadRequest, "Conteúdo não pode estar vazio")
				return
			}
			s.news[i].Content = strings.TrimSpace(*req.Content)
		}
		if req.Date != nil {
			s.news[i].Date = *req.Date
		}
		writeJSON(w, http.StatusOK, s.news[i])
		return
	}
	writeDetail(w, http.StatusNotFound, "Notícia não encontrada")
}

func (s *Server) handleDeleteNews(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		writeDetail(w, http.StatusUnauthorized, "Não autenticado")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Notícia não encontrada")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.news {
		if s.news[i].ID == id {
			s.news = append(s.news[:i], s.news[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Notícia não encontrada")
}
