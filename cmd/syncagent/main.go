// Command syncagent runs the chat sync engine and the planning board against
// a teamchat server without a UI and logs unread state as it changes.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"teamchat/internal/apiclient"
	"teamchat/internal/chatsync"
	"teamchat/internal/config"
	"teamchat/internal/localstore"
	"teamchat/internal/logging"
	"teamchat/internal/middleware"
	"teamchat/internal/models"
	"teamchat/internal/planning"
)

const devTokenTTL = 24 * time.Hour

func main() {
	configPath := flag.String("config", "", "path to agent YAML config")
	flag.Parse()

	config.LoadDotenv()
	cfg, err := config.LoadAgent(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid agent config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(cfg.Store, cfg.UserID)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open local store")
	}
	store := localstore.New(backend)
	defer store.Close()

	token := cfg.Token
	if token == "" {
		token, err = middleware.IssueToken(cfg.JWTSecret, cfg.UserID, cfg.UserName, devTokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to mint token")
		}
		log.Warn().Str("user_id", cfg.UserID).Msg("using self-issued token")
	}
	client := apiclient.New(cfg.BaseURL, token, nil)

	if me, err := client.Me(ctx); err == nil {
		if err := store.SetAccount(ctx, me); err != nil {
			log.Warn().Err(err).Msg("cache account")
		}
		if cfg.UserName == "" {
			cfg.UserName = me.DisplayName()
		}
	} else {
		log.Warn().Err(err).Msg("could not load account")
	}
	if err := client.Ping(ctx, true); err != nil {
		log.Warn().Err(err).Msg("presence ping failed")
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	engineCfg := chatsync.Config{
		UserID:            cfg.UserID,
		UserName:          cfg.UserName,
		MessageInterval:   cfg.MessageInterval,
		DirectoryInterval: cfg.DirectoryInterval,
		OnDirectory:       logDirectory,
	}
	if cfg.Push {
		engineCfg.Push = func(chatID string) (string, http.Header) {
			return client.PushURL(chatID), client.PushHeader()
		}
	}
	engine := chatsync.NewEngine(client, store, engineCfg)
	if err := engine.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("initial directory load failed")
	}

	view := chatsync.NewScrollModel(600)
	var ml *chatsync.MessageLog
	if cfg.Chat != "" {
		ml, err = engine.Select(ctx, cfg.Chat, view)
	} else {
		ml, err = engine.Resume(ctx, view)
	}
	switch {
	case errors.Is(err, chatsync.ErrNotSelected):
		log.Info().Msg("no chat selected, following the directory only")
	case err != nil:
		log.Warn().Err(err).Msg("initial message load failed")
	}
	if ml != nil {
		log.Info().Str("chat_id", ml.ChatID()).Int("items", len(ml.Items())).Msg("chat opened")
	}

	board := planning.NewBoard(cfg.UserID, cfg.UserName, client)
	loadBoard := func(ctx context.Context) error {
		if _, err := board.Load(ctx); err != nil {
			return err
		}
		log.Debug().Int("unread_comments", board.UnreadTotal()).Msg("board refreshed")
		return nil
	}
	if err := loadBoard(ctx); err != nil {
		log.Warn().Err(err).Msg("initial board load failed")
	}
	if cfg.BoardInterval > 0 {
		go chatsync.NewPoller("board", cfg.BoardInterval, loadBoard, nil).Run(ctx)
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	engine.Close()

	offCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(offCtx, false); err != nil {
		log.Warn().Err(err).Msg("offline ping failed")
	}
}

func openBackend(cfg config.StoreConfig, userID string) (localstore.Backend, error) {
	switch cfg.Backend {
	case "pebble":
		return localstore.NewPebble(cfg.Dir, nil)
	case "redis":
		return localstore.NewRedis(cfg.RedisURL, "teamchat:"+userID)
	default:
		return localstore.NewMemory(), nil
	}
}

func logDirectory(chats []models.Chat) {
	total := 0
	for _, c := range chats {
		total += c.UnreadCount
	}
	log.Info().Int("chats", len(chats)).Int("unread", total).Msg("directory synced")
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server error")
	}
}
