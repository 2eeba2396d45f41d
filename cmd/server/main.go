package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"flowtimer/internal/config"
	"flowtimer/internal/db"
	"flowtimer/internal/handler"
	"flowtimer/internal/repository"
	"flowtimer/internal/router"
	"flowtimer/internal/service"
	"flowtimer/internal/timer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(database, db.MigrationSource(cfg.MigrationsDir))
	if err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	for _, name := range applied {
		log.Printf("applied migration %s", name)
	}

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	prefsRepo := repository.NewPreferencesRepository(database)

	authService := service.NewAuthService(userRepo, prefsRepo, cfg.JWTSecret, cfg.TokenTTL)
	timerService := service.NewTimerService(service.TimerDeps{
		Sessions:    sessionRepo,
		Preferences: prefsRepo,
		Audio:       timer.LogNotifier{},
		Options: timer.Options{
			TickInterval:  cfg.TickInterval,
			RecordTimeout: cfg.RecordTimeout,
		},
	})
	statsService := service.NewStatsService(sessionRepo, sessionRepo, prefsRepo, userRepo, time.Now)

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(timerService)
	statsHandler := handler.NewStatsHandler(statsService)

	engine := router.New(authService, authHandler, timerHandler, statsHandler, cfg.CORSOrigins)
	server := newServer(":"+cfg.Port, engine, timerService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("flowtimer listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown server: %v", err)
	}
	timerService.Flush()
}

// newServer closes the timers as soon as shutdown begins. That ends every
// event stream, which would otherwise keep Shutdown waiting, and flushes
// pending session writes.
func newServer(addr string, handler http.Handler, timers *service.TimerService) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(timers.Close)
	return server
}
