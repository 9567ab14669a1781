package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"coffeeshop/data"
	"coffeeshop/docs"
	"coffeeshop/pkg/api"
	"coffeeshop/pkg/cart"
	cartmemory "coffeeshop/pkg/cart/memory"
	"coffeeshop/pkg/cart/redisstore"
	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/config"
	"coffeeshop/pkg/logger"
	"coffeeshop/pkg/order"
	"coffeeshop/pkg/order/events"
	ordermemory "coffeeshop/pkg/order/memory"
	pg "coffeeshop/pkg/order/postgres"
	"coffeeshop/pkg/otel"
	"coffeeshop/pkg/session"
)

// @title Coffee Shop API
// @version 1.0
// @description Catalog, session cart and guest checkout for the coffee storefront.
// @host localhost:8000
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(os.Stderr, logger.LevelError, "coffeeshop", nil).Error(context.Background(), "load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.ServiceName, otel.GetTraceID)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "shutdown with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := otel.InitTracing(log, otel.Config{
		ServiceName: cfg.ServiceName,
		Host:        cfg.OTELHost,
		Exporter:    cfg.OTELExporter,
		Probability: cfg.OTELSampleRatio,
	})
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "catalog loaded", "products", cat.Len(), "categories", len(cat.Categories()))

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	memCarts := cartmemory.New()
	var store cart.Store = memCarts
	if cfg.CartStore == config.CartStoreRedis {
		store = redisstore.New(rdb, cfg.SessionTTL)
	}

	var sessions session.Registry
	var memSessions *session.MemoryRegistry
	if rdb != nil {
		sessions = session.NewRedisRegistry(rdb, cfg.SessionTTL)
	} else {
		memSessions = session.NewMemoryRegistry(cfg.SessionTTL, session.WithExpireFunc(memCarts.Delete))
		sessions = memSessions
	}
	carts := cart.NewService(cat, store, cart.WithMaxQuantity(cfg.MaxItemQuantity))

	var repo order.Repository = ordermemory.New()
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		pgRepo := pg.New(db)
		if err := pgRepo.Migrate(ctx); err != nil {
			return err
		}
		repo = pgRepo
	}

	orderOpts := []order.Option{
		order.WithClearCart(cfg.ClearCartOnCheckout),
		order.WithLogger(log),
	}
	if cfg.AMQPURL != "" {
		pub, err := events.Connect(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		orderOpts = append(orderOpts, order.WithPublisher(pub))
	}

	log.Info(ctx, "stores configured",
		"cart_store", cfg.CartStore,
		"redis", cfg.RedisAddr != "",
		"postgres", cfg.DatabaseURL != "",
		"events", cfg.AMQPURL != "",
	)

	// Let the swagger UI call whichever host served it.
	docs.SwaggerInfo.Host = ""
	srv := &api.Server{
		Catalog:        cat,
		Carts:          carts,
		Orders:         order.NewService(carts, repo, orderOpts...),
		Sessions:       sessions,
		Log:            log,
		Tracer:         tp.Tracer(cfg.ServiceName),
		SessionTTL:     cfg.SessionTTL,
		SecureCookie:   cfg.TLSEnabled(),
		AllowedOrigins: cfg.AllowedOrigins,
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "listening", "addr", cfg.Addr, "tls", cfg.TLSEnabled())
		var err error
		if cfg.TLSEnabled() {
			err = httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if memSessions != nil && cfg.SessionTTL > 0 {
		g.Go(func() error { return memSessions.Run(gctx, sweepInterval(cfg.SessionTTL)) })
	}
	return g.Wait()
}

// sweepInterval runs the session sweep a few times per TTL, at most once a
// minute.
func sweepInterval(ttl time.Duration) time.Duration {
	if d := ttl / 4; d < time.Minute {
		return d
	}
	return time.Minute
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.DataDir != "" {
		return catalog.LoadDir(cfg.DataDir)
	}
	return catalog.Load(data.FS)
}
