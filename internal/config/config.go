package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	TelegramToken string
	BotDebug      bool
	AdminUserIDs  []int64

	QuizSize     int
	AnswerWindow time.Duration
	RoundPause   time.Duration

	CatalogSource string // poster|file, пусто - встроенное меню
	PosterURL     string
	PosterToken   string
	CatalogFile   string

	LedgerDriver string // memory|gist|sqlite|postgres
	LedgerDSN    string
	GistID       string
	GithubToken  string

	AdminAddr  string // пусто - HTTP админка выключена
	AdminToken string
}

// Load reads .env (if present) and the environment with sensible defaults
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		glog.Warningf("Error loading .env: %v", err)
	}

	return &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		BotDebug:      envBool("BOT_DEBUG", false),
		AdminUserIDs:  envIDs("ADMIN_USER_IDS"),

		QuizSize:     envInt("QUIZ_SIZE", 15),
		AnswerWindow: envDuration("ANSWER_WINDOW", 10*time.Second),
		RoundPause:   envDuration("ROUND_PAUSE", time.Second),

		CatalogSource: strings.ToLower(os.Getenv("CATALOG_SOURCE")),
		PosterURL:     os.Getenv("POSTER_URL"),
		PosterToken:   os.Getenv("POSTER_TOKEN"),
		CatalogFile:   envOr("CATALOG_FILE", "menu.yaml"),

		LedgerDriver: strings.ToLower(os.Getenv("LEDGER_DRIVER")),
		LedgerDSN:    os.Getenv("LEDGER_DSN"),
		GistID:       os.Getenv("GITHUB_GIST_ID"),
		GithubToken:  os.Getenv("GITHUB_TOKEN"),

		AdminAddr:  os.Getenv("ADMIN_ADDR"),
		AdminToken: os.Getenv("ADMIN_TOKEN"),
	}
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// envDuration понимает "10s", "1m" и просто секунды "10"
func envDuration(k string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		glog.Warningf("Invalid %s=%q, using %s", k, raw, def)
		return def
	}
	return d
}

func envIDs(k string) []int64 {
	var out []int64
	for _, p := range strings.Split(os.Getenv(k), ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			glog.Warningf("Ignoring invalid user id %q in %s", p, k)
			continue
		}
		out = append(out, id)
	}
	return out
}
