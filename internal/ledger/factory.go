package ledger

import (
	"context"
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

type Options struct {
	Driver      string // memory|gist|sqlite|postgres, пусто - автовыбор
	DSN         string
	GistID      string
	GithubToken string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New автоматически выбирает хранилище: явно заданный драйвер,
// затем Gist при наличии токена, иначе память
func New(ctx context.Context, opts Options) (LeaderboardLedger, io.Closer, error) {
	driver := opts.Driver
	if driver == "" {
		driver = "memory"
		if opts.GistID != "" && opts.GithubToken != "" {
			driver = "gist"
		}
	}

	switch driver {
	case "memory":
		glog.Warning("Using in-memory ledger, results are lost on restart")
		return NewMemoryLedger(), nopCloser{}, nil
	case "gist":
		if opts.GistID == "" || opts.GithubToken == "" {
			return nil, nil, errors.New("gist ledger requires GITHUB_GIST_ID and GITHUB_TOKEN")
		}
		return NewGistLedger(opts.GistID, opts.GithubToken), nopCloser{}, nil
	case "sqlite", "sqlite3":
		l, err := OpenSQL(ctx, DriverSQLite, opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	case "postgres", "postgresql":
		l, err := OpenSQL(ctx, DriverPostgres, opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	default:
		return nil, nil, errors.Errorf("unsupported ledger driver: %s", driver)
	}
}
