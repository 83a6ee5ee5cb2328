package main

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/example/course-studio/internal/cache"
	"github.com/example/course-studio/internal/config"
	"github.com/example/course-studio/internal/editor"
	"github.com/example/course-studio/internal/gateway"
	"github.com/example/course-studio/internal/handlers"
	"github.com/example/course-studio/internal/platform/auth"
	"github.com/example/course-studio/internal/platform/events"
	"github.com/example/course-studio/internal/platform/httpserver"
	"github.com/example/course-studio/internal/platform/logging"
	"github.com/example/course-studio/internal/platform/natsconn"
	"github.com/example/course-studio/internal/platform/run"
	"github.com/example/course-studio/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	gw, closeGateway := initGateway(cfg, log)
	if closeGateway != nil {
		defer closeGateway()
	}

	publisher, closeNATS := initEvents(cfg, log)
	if closeNATS != nil {
		defer closeNATS()
	}

	var defaults func(string) []string
	if !cfg.SeedDisabled {
		defaults = seed.Defaults
	}

	sessions := editor.NewSessions(editor.Deps{
		Gateway:    gw,
		Logger:     log,
		Events:     publisher,
		Defaults:   defaults,
		SuccessTTL: cfg.SuccessTTL,
		ErrorTTL:   cfg.ErrorTTL,
	})
	defer sessions.CloseAll()

	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)
	r.Route("/v1/courses/{course_id}", func(r chi.Router) {
		// Reads are public; every mutation requires a bearer token.
		r.Get("/status", handlers.GetStatus(sessions, gw, log))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(verifier))
			r.Post("/flush", handlers.FlushSession(sessions))
			r.Delete("/session", handlers.CloseSession(sessions))
		})

		r.Route("/outline", func(r chi.Router) {
			r.Get("/", handlers.GetOutline(sessions))

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireUser(verifier))
				r.Post("/reload", handlers.ReloadOutline(sessions))
				r.Put("/visibility", handlers.SetOutlineVisibility(sessions))

				r.Route("/sections", func(r chi.Router) {
					r.Post("/", handlers.AddSection(sessions))
					r.Put("/order", handlers.ReorderSections(sessions))
					r.Put("/move", handlers.MoveSection(sessions))
					r.Put("/{section_id}", handlers.RenameSection(sessions))
					r.Delete("/{section_id}", handlers.RemoveSection(sessions))
					r.Put("/{section_id}/expanded", handlers.SetSectionExpanded(sessions))
					r.Post("/{section_id}/lectures", handlers.AddLecture(sessions))
					r.Put("/{section_id}/lectures/order", handlers.ReorderLectures(sessions))
					r.Put("/{section_id}/lectures/move", handlers.MoveLecture(sessions))
				})
				r.Put("/lectures/{lecture_id}", handlers.UpdateLecture(sessions))
				r.Delete("/lectures/{lecture_id}", handlers.RemoveLecture(sessions))
			})
		})

		r.Route("/{category}", func(r chi.Router) {
			r.Get("/", handlers.ListItems(sessions))

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireUser(verifier))
				r.Post("/", handlers.AddItem(sessions))
				r.Post("/reload", handlers.ReloadItems(sessions))
				r.Put("/order", handlers.ReorderItems(sessions))
				r.Put("/move", handlers.MoveItem(sessions))
				r.Put("/visibility", handlers.SetItemsVisibility(sessions))
				r.Put("/{item_id}", handlers.EditItem(sessions))
				r.Delete("/{item_id}", handlers.RemoveItem(sessions))
			})
		})
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTPAddr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			sessions.CloseAll()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initGateway selects the persistence backend. In production
// (APP_ENV=production) it requires a working Postgres connection and
// terminates the process otherwise. A configured Redis wraps the
// gateway with the snapshot cache.
func initGateway(cfg config.Config, log *zap.Logger) (gateway.Gateway, func()) {
	isProd := strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production")

	var gw gateway.Gateway
	var closer func()

	if cfg.DatabaseURL == "" {
		if isProd {
			log.Error("DATABASE_URL is required in production")
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory gateway (development only)")
		gw = gateway.NewMemoryGateway()
	} else {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(context.Background())
			if err != nil {
				pool.Close()
			}
		}
		if err != nil {
			if isProd {
				log.Error("postgres is required in production but unavailable", zap.Error(err))
				_ = log.Sync()
				os.Exit(1)
			}
			log.Warn("postgres unavailable, falling back to in-memory gateway", zap.Error(err))
			gw = gateway.NewMemoryGateway()
		} else {
			log.Info("gateway: postgres")
			gw = gateway.NewPostgresGateway(pool)
			closer = pool.Close
		}
	}

	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
		} else {
			log.Info("snapshot cache: redis")
			gw = gateway.NewCachedGateway(gw, rc, log)
			inner := closer
			closer = func() {
				_ = rc.Client.Close()
				if inner != nil {
					inner()
				}
			}
		}
	}

	return gw, closer
}

// initEvents connects to NATS for save-event publishing. NATS being
// down is non-fatal: the nil publisher is a no-op.
func initEvents(cfg config.Config, log *zap.Logger) (*events.Publisher, func()) {
	if cfg.NATSURL == "" {
		log.Info("NATS_URL not set, save events disabled")
		return nil, nil
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL})
	if err != nil {
		log.Warn("nats connect failed, save events disabled", zap.Error(err))
		return nil, nil
	}
	js, err := nc.JetStream()
	if err != nil {
		log.Warn("jetstream init failed, save events disabled", zap.Error(err))
		nc.Close()
		return nil, nil
	}
	return events.New(js, log), nc.Close
}
