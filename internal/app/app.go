package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bryan-kier/productivity/internal/auth"
	"github.com/bryan-kier/productivity/internal/cache"
	"github.com/bryan-kier/productivity/internal/config"
	"github.com/bryan-kier/productivity/internal/repo"
	"github.com/bryan-kier/productivity/internal/scheduler"
	"github.com/bryan-kier/productivity/internal/service"
	"github.com/bryan-kier/productivity/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	cfg    config.Config
	log    *zap.Logger
	db     *pgxpool.Pool
	redis  *redis.Client
	router http.Handler
	sched  *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	db, err := newPostgres(cfg.PG)
	if err != nil {
		return nil, err
	}
	a.db = db

	if cfg.PG.Migrate {
		if err := runMigrations(cfg.PG.DSN); err != nil {
			a.db.Close()
			return nil, err
		}
		log.Info("migrations applied")
	}

	if cfg.Redis.Enabled() {
		rdb, err := newRedis(cfg.Redis)
		if err != nil {
			a.db.Close()
			return nil, err
		}
		a.redis = rdb
	} else {
		log.Info("redis not configured, caching and scheduler lock disabled")
	}

	store := repo.NewPGStore(a.db, func() string { return uuid.New().String() })
	var lists *cache.ListCache
	if a.redis != nil {
		lists = cache.NewListCache(a.redis, cfg.Redis.DefaultTTL.Duration())
	}
	maintenance := service.NewMaintenanceService(store, lists, log, cfg.Scheduler.Retention.Duration())

	if cfg.Scheduler.Enabled {
		a.sched, err = newScheduler(cfg.Scheduler, maintenance, a.redis, log)
		if err != nil {
			a.Close(context.Background())
			return nil, err
		}
	}

	a.router = NewRouter(cfg, Deps{
		Store:       store,
		Lists:       lists,
		Verifier:    newVerifier(cfg.Auth, a.redis),
		Maintenance: maintenance,
		Log:         log,
		Started:     time.Now(),
	})
	return a, nil
}

func (a *App) Router() http.Handler {
	return a.router
}

// Start starts background work (the scheduler) if enabled.
func (a *App) Start() {
	if a.sched != nil {
		a.sched.Start()
	}
}

func (a *App) Close(ctx context.Context) error {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}

func newPostgres(cfg config.PGConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MaxConnIdleTime = cfg.IdleTimeout.Duration()
	pcfg.MaxConnLifetime = 30 * time.Minute
	pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout.Duration()

	pool, err := pgxpool.NewWithConfig(context.Background(), pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout.Duration())
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

func runMigrations(dsn string) error {
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// newVerifier prefers local JWT verification and falls back to asking the
// auth provider. Redis, when present, caches either.
func newVerifier(cfg config.AuthConfig, rdb *redis.Client) auth.Verifier {
	var v auth.Verifier
	if cfg.JWTSecret != "" {
		v = auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTAudience)
	} else {
		v = auth.NewSupabaseVerifier(cfg.SupabaseURL, cfg.AnonKey, nil)
	}
	if rdb != nil {
		v = auth.NewCachedVerifier(v, rdb, cfg.CacheTTL.Duration())
	}
	return v
}

func newScheduler(cfg config.SchedulerConfig, runner scheduler.Runner, rdb *redis.Client, log *zap.Logger) (*scheduler.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}
	opts := scheduler.Options{
		Location:   loc,
		DailySpec:  cfg.DailySpec,
		WeeklySpec: cfg.WeeklySpec,
		JobTimeout: cfg.JobTimeout.Duration(),
	}
	if rdb != nil {
		opts.Lock = scheduler.NewRedisLock(rdb)
	}
	return scheduler.New(runner, log, opts)
}
