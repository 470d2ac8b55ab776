package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/PoluyanbIch/MenuQuizBot/internal/adminapi"
	"github.com/PoluyanbIch/MenuQuizBot/internal/catalog"
	"github.com/PoluyanbIch/MenuQuizBot/internal/config"
	"github.com/PoluyanbIch/MenuQuizBot/internal/ledger"
	"github.com/PoluyanbIch/MenuQuizBot/internal/service"
	"github.com/PoluyanbIch/MenuQuizBot/internal/telegram"
)

func catalogSource(cfg *config.Config) catalog.Source {
	switch cfg.CatalogSource {
	case "poster":
		url := cfg.PosterURL
		if url == "" {
			url = catalog.DefaultPosterURL
		}
		return catalog.NewPosterSource(url, cfg.PosterToken)
	case "file":
		return catalog.NewFileSource(cfg.CatalogFile)
	default:
		return catalog.Static(catalog.DefaultItems())
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg := config.Load()
	if cfg.TelegramToken == "" {
		glog.Fatal("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Автоматически выбирает Gist, SQL или Memory
	results, closer, err := ledger.New(ctx, ledger.Options{
		Driver:      cfg.LedgerDriver,
		DSN:         cfg.LedgerDSN,
		GistID:      cfg.GistID,
		GithubToken: cfg.GithubToken,
	})
	if err != nil {
		glog.Fatalf("ledger: %v", err)
	}
	defer closer.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		glog.Fatalf("telegram: %v", err)
	}
	api.Debug = cfg.BotDebug

	engine := service.NewEngine(service.EngineConfig{
		QuizSize:     cfg.QuizSize,
		AnswerWindow: cfg.AnswerWindow,
		RoundPause:   cfg.RoundPause,
	}, catalogSource(cfg), telegram.NewPresenter(api), results)

	if n, err := engine.ReloadQuestionBank(ctx); err != nil {
		// встроенное меню только на старте, /reload его уже не подставит
		glog.Warningf("Failed to load menu: %v, using default menu", err)
		if _, err := engine.SeedQuestionBank(catalog.DefaultItems()); err != nil {
			glog.Warningf("Initial question bank is empty: %v", err)
		}
	} else {
		glog.Infof("Loaded %d questions", n)
	}

	bot := telegram.NewBot(api, engine, results, cfg.IsAdmin)

	g, gctx := errgroup.WithContext(ctx)

	glog.Info("🤖 Bot is starting...")
	g.Go(func() error {
		return telegram.Run(gctx, api, bot)
	})

	if cfg.AdminAddr != "" {
		srv := &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           adminapi.NewRouter(engine, cfg.AdminToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			glog.Infof("Admin API listening on %s", cfg.AdminAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		glog.Errorf("Bot stopped with error: %v", err)
	}
	engine.Close()
	glog.Info("Bot stopped")
}
