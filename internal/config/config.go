package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIBaseURL string

	// Session
	SessionFile string

	// Contact（サイト掲載の連絡先。サーバーにエンドポイントがない静的値）
	ContactEmail string
	ContactPhone string

	// Watch
	WatchInterval time.Duration
	OpsPort       string

	// Import
	ImportRatePerMinute int
	ImportTimeout       time.Duration
	ImportMaxBodySize   int64
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = os.Getenv("SEMEAR_API_URL")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "SEMEAR_API_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionFile = getEnvString("SEMEAR_SESSION_FILE", defaultSessionFile())
	cfg.ContactEmail = getEnvString("CONTACT_EMAIL", "projetosemearlages@gmail.com")
	cfg.ContactPhone = getEnvString("CONTACT_PHONE", "(49) 99138-1480")
	cfg.WatchInterval = getEnvDuration("WATCH_INTERVAL", 5*time.Minute)
	cfg.OpsPort = getEnvString("OPS_PORT", "8080")
	// サーバー側のお知らせ作成レート制限（20 req/min）を超えないための既定値
	cfg.ImportRatePerMinute = getEnvInt("IMPORT_RATE_LIMIT", 20)
	cfg.ImportTimeout = getEnvDuration("IMPORT_TIMEOUT", 10*time.Second)
	cfg.ImportMaxBodySize = getEnvInt64("IMPORT_MAX_SIZE", 5242880)

	return cfg, nil
}

// defaultSessionFile はセッションCookie保存先のデフォルトパスを返す。
// ホームディレクトリが取得できない環境ではカレントディレクトリ配下を使う。
func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".semearctl/session.json"
	}
	return filepath.Join(home, ".semearctl", "session.json")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
