package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/billbatista/acasinha-finance/category"
	"github.com/billbatista/acasinha-finance/company"
	"github.com/billbatista/acasinha-finance/config"
	"github.com/billbatista/acasinha-finance/contract"
	"github.com/billbatista/acasinha-finance/dashboard"
	"github.com/billbatista/acasinha-finance/employee"
	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/export"
	"github.com/billbatista/acasinha-finance/income"
	"github.com/billbatista/acasinha-finance/logger"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/billbatista/acasinha-finance/migrations"
	"github.com/billbatista/acasinha-finance/realtime"
	"github.com/billbatista/acasinha-finance/session"
	"github.com/billbatista/acasinha-finance/storage"
	"github.com/billbatista/acasinha-finance/user"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	sweepInterval   = time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		os.Stderr.WriteString("loading config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := migrations.Up(db, log); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	objects, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return err
	}

	evtlogger := eventlogger.NewSqlEventLogger(db)
	worker := eventlogger.NewWorker(evtlogger, cfg.Events.Buffer, log)
	worker.Start()
	defer worker.Shutdown()

	hub := realtime.NewHub(cfg.Realtime.ClientSendBuffer, cfg.Realtime.ClientWriteWindow, log)
	defer hub.Close()
	listener, err := realtime.NewListener(cfg.Database.URL, cfg.Realtime, hub, log)
	if err != nil {
		return err
	}
	go listener.Run(ctx)

	userRepo := user.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	companyRepo := company.NewRepository(db)
	incomeRepo := income.NewRepository(db)
	expenseRepo := expense.NewRepository(db)
	employeeRepo := employee.NewRepository(db)
	categoryRepo := category.NewRepository(db)
	contractRepo := contract.NewRepository(db)

	currency, pageSize := cfg.App.Currency, cfg.App.PageSize

	users := user.NewHandler(userRepo, sessionRepo, worker, log, cfg.Session.CookieSecure)
	companies := company.NewHandler(companyRepo, company.NewRedisSelection(rdb), userRepo, contract.NewCompanyFiles(contractRepo, objects), worker, log)
	incomes := income.NewHandler(incomeRepo, worker, log, currency, pageSize)
	expenses := expense.NewHandler(expenseRepo, categoryRepo, worker, log, currency, pageSize)
	employees := employee.NewHandler(employeeRepo, worker, log, currency)
	categories := category.NewHandler(categoryRepo, worker, log)
	contracts := contract.NewHandler(contractRepo, objects, worker, log, pageSize)
	overview := dashboard.NewHandler(incomeRepo, expenseRepo, evtlogger, currency, log)
	exports := export.NewHandler(incomeRepo, expenseRepo, worker, log)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst)

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.AuthMiddleware(sessionRepo, log))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		evt := eventlogger.NewEvent(
			eventlogger.WithType("health_request"),
			eventlogger.WithData(map[string]string{
				"message":     "ok",
				"http_status": strconv.Itoa(http.StatusOK),
			}),
		)
		worker.Log(evt)
		w.Write([]byte("ok"))
	})

	router.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Post("/user/register", users.Register)
		r.Post("/user/login", users.Login)
	})
	router.Post("/user/logout", users.Logout)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/me", users.Me)
		r.Put("/me/name", users.UpdateName)
		r.Delete("/me/sessions", users.LogoutAll)

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", companies.List)
			r.Post("/", companies.Create)
			r.Get("/selected", companies.Selected)
			r.Put("/selected", companies.Select)

			r.Route("/{companyID}", func(r chi.Router) {
				r.Use(middleware.Tenant(companyRepo, log))

				r.Delete("/", companies.Delete)
				r.Post("/members", companies.AddMember)
				r.Route("/incomes", func(r chi.Router) {
					r.Get("/export", exports.Incomes)
					incomes.Routes(r)
				})
				r.Route("/expenses", func(r chi.Router) {
					r.Get("/export", exports.Expenses)
					expenses.Routes(r)
				})
				r.Route("/employees", employees.Routes)
				r.Route("/contracts", contracts.Routes)
				r.Route("/categories", categories.Routes)
				overview.Routes(r)
				r.Get("/ws", hub.ServeWS)
			})
		})
	})

	go sweep(ctx, sessionRepo, limiter, log)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type expiredSessions interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// sweep prunes expired sessions and idle rate limiter buckets.
func sweep(ctx context.Context, sessions expiredSessions, limiter *middleware.RateLimiter, log *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				log.Warn("deleting expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("deleted expired sessions", zap.Int64("count", n))
			}
		}
	}
}
