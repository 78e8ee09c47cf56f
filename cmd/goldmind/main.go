package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/drakos74/goldmind/internal/api"
	"github.com/drakos74/goldmind/internal/bot"
	"github.com/drakos74/goldmind/internal/config"
	"github.com/drakos74/goldmind/internal/exchange"
	"github.com/drakos74/goldmind/internal/gemini"
	"github.com/drakos74/goldmind/internal/storage"
	"github.com/drakos74/goldmind/internal/storage/jsonstore"
	"github.com/drakos74/goldmind/user/local"
	"github.com/drakos74/goldmind/user/telegram"
	"github.com/drakos74/goldmind/user/ws"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	configPath := flag.String("config", "config.yml", "path to the yaml configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load configuration")
	}
	storage.DefaultDir = cfg.StorageDir

	if cfg.Gemini.Key == "" {
		log.Fatal().Msg("GEMINI_API_KEY is not set")
	}
	analyst := gemini.New(cfg.Gemini.Key, cfg.Gemini.Timeout,
		gemini.WithURL(cfg.Gemini.URL),
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithBudget(cfg.Gemini.RPM),
	)

	hub := ws.NewHub()
	defer hub.Close()
	publishers := api.Publishers{local.NewUser(100), hub}
	if cfg.Telegram.Token != "" {
		notifier, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create telegram notifier")
		}
		publishers = append(publishers, notifier)
	}

	venue := exchange.NewSim(cfg.Execution.Symbol, 0)
	watch := bot.NewOverWatch(func(account string) (*bot.Engine, error) {
		acctCfg := cfg
		acctCfg.Account = account
		return bot.NewEngine(acctCfg, venue, analyst, publishers, jsonstore.BlobShard("goldmind"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := watch.Start(ctx, cfg.Account); err != nil {
		log.Fatal().Err(err).Str("account", cfg.Account).Msg("could not start control loop")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", hub)
	mux.HandleFunc("/api/start", func(w http.ResponseWriter, r *http.Request) {
		account := accountOf(r, cfg.Account)
		if err := watch.Start(ctx, account); err != nil {
			if errors.Is(err, bot.ErrAlreadyRunning) {
				fmt.Fprintf(w, "account %s is already running\n", account)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "account %s started\n", account)
	})
	mux.HandleFunc("/api/stop", func(w http.ResponseWriter, r *http.Request) {
		account := accountOf(r, cfg.Account)
		watch.Stop(account)
		fmt.Fprintf(w, "account %s stopped\n", account)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	watch.Shutdown()
	cancel()
	_ = server.Shutdown(context.Background())
}

func accountOf(r *http.Request, fallback string) string {
	if account := r.URL.Query().Get("account"); account != "" {
		return account
	}
	return fallback
}
