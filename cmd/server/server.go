package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	apiHandler "github.com/clipshare/be/internal/controller/http/api"
	openaiMod "github.com/clipshare/be/internal/moderation/openai"
	commentsSqlite "github.com/clipshare/be/internal/repositories/comments/sqlite"
	mediaFS "github.com/clipshare/be/internal/repositories/media/fs"
	usageRedis "github.com/clipshare/be/internal/repositories/usage/redis"
	usageSqlite "github.com/clipshare/be/internal/repositories/usage/sqlite"
	videosSqlite "github.com/clipshare/be/internal/repositories/videos/sqlite"
	"github.com/clipshare/be/pkg/common/logger"
	"github.com/clipshare/be/pkg/common/throttle"
	"github.com/clipshare/be/pkg/gate/challenge"
	"github.com/clipshare/be/pkg/gate/moderation"
	"github.com/clipshare/be/pkg/gate/pipeline"
	"github.com/clipshare/be/pkg/gate/ratelimit"
	"github.com/clipshare/be/pkg/repositories/usage"
)

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger.Initialize(envOr("LOG_LEVEL", "info"))
	logger.Info("starting server")

	videosRepo, err := videosSqlite.NewSQLiteRepo(envOr("VIDEOS_SQLITE_PATH", "./videos.db"))
	if err != nil {
		logger.Error("init videos repo: %v", err)
		os.Exit(1)
	}
	commentsRepo, err := commentsSqlite.NewSQLiteRepo(envOr("COMMENTS_SQLITE_PATH", "./comments.db"))
	if err != nil {
		logger.Error("init comments repo: %v", err)
		os.Exit(1)
	}

	// The usage store backs the admission quotas; Redis when configured
	// (shared across instances), SQLite otherwise.
	var usageStore usage.Store
	var usageDisconnect func()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: addr})
		store, err := usageRedis.NewRedisStore(client)
		if err != nil {
			logger.Error("init redis usage store: %v", err)
			os.Exit(1)
		}
		usageStore = store
		usageDisconnect = func() { _ = client.Close() }
		logger.Info("usage windows backed by redis at %s", addr)
	} else {
		store, err := usageSqlite.NewSQLiteStore(envOr("USAGE_SQLITE_PATH", "./usage.db"))
		if err != nil {
			logger.Error("init usage store: %v", err)
			os.Exit(1)
		}
		usageStore = store
		usageDisconnect = store.Disconnect
	}

	mediaStore, err := mediaFS.NewFSStore(envOr("MEDIA_DIR", "./media"), envOr("MEDIA_BASE_URL", "/media"))
	if err != nil {
		logger.Error("init media store: %v", err)
		os.Exit(1)
	}

	secret := os.Getenv("CAPTCHA_SECRET")
	if secret == "" {
		logger.Warn("CAPTCHA_SECRET is not set; challenge issuance will fail and all submissions will be rejected")
	}
	challenges := challenge.New(secret, challenge.Options{})

	classifier, err := openaiMod.New(os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		logger.Error("init moderation classifier: %v", err)
		os.Exit(1)
	}

	p := pipeline.New(pipeline.Config{
		Challenges:     challenges,
		Moderation:     moderation.NewGate(classifier, 10*time.Second),
		CommentLimiter: ratelimit.New(usageStore, ratelimit.DefaultCommentPolicy()),
		UploadLimiter:  ratelimit.New(usageStore, ratelimit.DefaultUploadPolicy()),
		Videos:         videosRepo,
		Comments:       commentsRepo,
		Media:          mediaStore,
	})

	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()
	challengeThrottle := throttle.NewStore(1, 5)
	challengeThrottle.StartJanitor(janitorCtx, 2*time.Minute)

	h := apiHandler.NewHandler(p, challenges, videosRepo, commentsRepo, challengeThrottle)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Mount("/", h.Router())
	router.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(mediaStore.Root()))))

	addr := ":" + envOr("PORT", "8080")
	server := &http.Server{Addr: addr, Handler: withCORS(router)}

	go func() {
		logger.Info("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown: %v", err)
	}
	videosRepo.Disconnect()
	commentsRepo.Disconnect()
	if usageDisconnect != nil {
		usageDisconnect()
	}
	logger.Info("server stopped")
}
