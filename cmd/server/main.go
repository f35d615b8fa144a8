package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/config"
	"github.com/iliyamo/car-rental-booking/internal/database"
	"github.com/iliyamo/car-rental-booking/internal/handler"
	"github.com/iliyamo/car-rental-booking/internal/inventory"
	"github.com/iliyamo/car-rental-booking/internal/middleware"
	"github.com/iliyamo/car-rental-booking/internal/queue"
	"github.com/iliyamo/car-rental-booking/internal/repository"
	"github.com/iliyamo/car-rental-booking/internal/repository/memory"
	"github.com/iliyamo/car-rental-booking/internal/router"
	"github.com/iliyamo/car-rental-booking/internal/scheduler"
	"github.com/iliyamo/car-rental-booking/internal/service"
	"github.com/iliyamo/car-rental-booking/internal/telemetry"
)

type stores struct {
	db       *sql.DB // nil for the memory backend
	cars     repository.CarStore
	bookings repository.BookingStore
	users    repository.UserStore
	tokens   repository.TokenStore
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StoreBackend == config.BackendMemory {
		return stores{
			cars:     memory.NewCarStore(),
			bookings: memory.NewBookingStore(),
			users:    memory.NewUserStore(),
			tokens:   memory.NewTokenStore(),
		}, nil
	}
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return stores{}, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return stores{}, err
	}
	return stores{
		db:       db,
		cars:     repository.NewCarRepo(db),
		bookings: repository.NewBookingRepo(db),
		users:    repository.NewUserRepo(db),
		tokens:   repository.NewTokenRepo(db),
	}, nil
}

func newLogger() *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if os.Getenv("APP_ENV") == "dev" {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return log
}

func main() {
	log := newLogger()
	defer log.Sync()
	zap.ReplaceGlobals(log)

	cfg := config.Load() // Load environment config
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(cfg.Telemetry)
	if err != nil {
		log.Fatal("tracing setup failed", zap.Error(err))
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal("open store failed", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	if st.db != nil {
		defer st.db.Close()
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	if rdb != nil {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)

	var events *service.Events
	if cfg.Events.Enabled {
		events = service.NewEvents(service.NewRabbitPublisher(cfg.Events.URL, cfg.Events.Queue, log), log.Named("events"))
		consumer := &queue.Consumer{URL: cfg.Events.URL, Queue: cfg.Events.Queue, LogPath: cfg.Events.ConsumerLog, Log: log.Named("consumer")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}
	emitter := service.Invalidating{Next: events, Cache: cache, Log: log}

	inv := inventory.NewService(st.cars, st.bookings, emitter, log)
	adj := inventory.NewAdjuster(st.cars, st.bookings, emitter, log, cfg.Inventory.QuantityDebounce)

	auth := handler.NewAuthHandler(cfg, st.users, st.tokens, log)
	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := auth.SeedAdmin(seedCtx); err != nil {
		log.Error("seed admin failed", zap.Error(err))
	}
	cancel()

	cars := handler.NewCarHandler(st.cars, st.bookings, inv, adj, cache, log)
	bookings := handler.NewBookingHandler(st.bookings, inv, log)

	probes := map[string]handler.Pinger{}
	if st.db != nil {
		probes["mysql"] = st.db
	}
	if rdb != nil {
		probes["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	e := router.New(log, cfg.Telemetry)
	router.RegisterRoutes(e, handler.Health(probes))
	router.RegisterAuth(e, auth, cfg.JWTSecret, limit)
	router.RegisterPublic(e, cars, cache)
	router.RegisterCustomer(e, bookings, cfg.JWTSecret, limit)
	router.RegisterRecovery(e, auth, cfg.Env)
	router.RegisterAdmin(e, router.Admin{
		Auth:      auth,
		Cars:      cars,
		Bookings:  bookings,
		Users:     handler.NewUserHandler(st.users, st.tokens, log),
		Dashboard: handler.NewDashboardHandler(st.cars, st.bookings, st.users, cfg.Inventory),
	}, cfg.JWTSecret)

	sched, err := scheduler.New(scheduler.Jobs{
		Reconciler:     inv,
		ReconcileEvery: cfg.Inventory.ReconcileInterval,
		Tokens:         st.tokens,
		TokenGrace:     24 * time.Hour,
		SweepEvery:     cfg.TokenSweepInterval,
	}, log)
	if err != nil {
		log.Fatal("scheduler setup failed", zap.Error(err))
	}
	sched.Start()

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("backend", cfg.StoreBackend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	// no new adjustments once the server is down
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", zap.Error(err))
	}
	adj.Flush()
	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop failed", zap.Error(err))
	}
	events.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", zap.Error(err))
	}
}
