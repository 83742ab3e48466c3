package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Tasklist/internal/config"
	"Tasklist/internal/handlers"
	"Tasklist/internal/logging"
	"Tasklist/internal/service"
	"Tasklist/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	db     *pgxpool.Pool
	redis  *redis.Client
	store  *service.TaskStore
	router *gin.Engine
}

// New opens the configured storage backend, restores the task store from it
// and builds the router.
func New(cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	slot, err := a.openSlot()
	if err != nil {
		a.closeBackends()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout.Duration())
	defer cancel()
	a.store = service.NewTaskStore(ctx, storage.WithTimeout(slot, cfg.Storage.Timeout.Duration()), log)

	a.router = newRouter(cfg, log, a.store)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Store exposes the task store owned by the app.
func (a *App) Store() *service.TaskStore {
	return a.store
}

func (a *App) Close(ctx context.Context) error {
	_ = ctx
	a.closeBackends()
	return nil
}

func (a *App) closeBackends() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *App) openSlot() (storage.Slot, error) {
	st := a.cfg.Storage
	switch st.Backend {
	case config.BackendMemory:
		a.log.Warn("memory storage selected, tasks are lost on restart")
		return storage.NewMemorySlot(), nil
	case config.BackendFile:
		return storage.NewFileSlot(st.FilePath)
	case config.BackendRedis:
		rdb, err := newRedis(a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		return storage.NewRedisSlot(rdb, st.Key), nil
	case config.BackendPostgres:
		if err := storage.Migrate(a.cfg.PG.DSN); err != nil {
			return nil, err
		}
		db, err := newPostgres(a.cfg.PG.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		return storage.NewPGSlot(db, st.Key), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", st.Backend)
}

func newPostgres(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	// one writer, one snapshot row
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func newRouter(cfg config.Config, log *slog.Logger, store *service.TaskStore) *gin.Engine {
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", logging.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", logging.RequestIDHeader, handlers.SaveErrorHeader},
		MaxAge:        12 * time.Hour,
	}
	origins := cfg.HTTP.Origins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))

	Setup(r, cfg, store)
	return r
}
