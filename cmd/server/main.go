package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"urna/internal/config"
	"urna/internal/db"
	"urna/internal/handlers"
	"urna/internal/jobs"
	"urna/internal/logger"
	"urna/internal/middleware"
	"urna/internal/services"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	if err := db.SeedAdmin(conn, cfg.AdminCPF, cfg.AdminNome, cfg.AdminPassword, zl); err != nil {
		zl.Fatal("seed admin", zap.Error(err))
	}

	// Services
	presence := services.NewPresenceService(conn, zl)
	auth := services.NewAuthService(conn, presence, cfg.SessionTTL, zl)
	events := services.NewEventService(conn, presence, cfg, zl)
	votes := services.NewVoteService(conn, zl)
	results := services.NewResultsService(conn, zl)
	report := services.NewReportService(conn, zl)
	registry := services.NewRegistryService(conn, zl)
	importer := services.NewImporterService(registry, zl)

	// Handlers
	authHandler := handlers.NewAuthHandler(auth, zl)
	adminHandler := handlers.NewAdminHandler(registry, zl)
	eventHandler := handlers.NewEventHandler(events, presence, results, report, cfg, zl)
	voteHandler := handlers.NewVoteHandler(votes, zl)
	importHandler := handlers.NewImportHandler(importer, zl)

	r := gin.Default()

	// Public
	r.POST("/api/auth/login", authHandler.Login)

	// Authenticated
	api := r.Group("/api", middleware.AuthRequired(auth))
	{
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/me", authHandler.Me)

		api.GET("/eventos", eventHandler.List)
		api.GET("/eventos/:id", eventHandler.Get)
		api.GET("/eventos/:id/quorum", eventHandler.Quorum)
		api.GET("/eventos/:id/resultados", eventHandler.Results)
		api.GET("/eventos/:id/resultados/stream", eventHandler.StreamResults)
		api.POST("/eventos/:id/presenca", eventHandler.ConfirmPresence)

		api.POST("/eventos/:id/votar", voteHandler.Register)
		api.GET("/eventos/:id/meu-voto", voteHandler.Check)
	}

	// Admin only
	admin := r.Group("/api/admin", middleware.AuthRequired(auth), middleware.AdminRequired())
	{
		admin.POST("/eventos", eventHandler.Create)
		admin.POST("/eventos/:id/participantes", eventHandler.AddParticipants)
		admin.POST("/eventos/:id/iniciar", eventHandler.Start)
		admin.POST("/eventos/:id/liberar", eventHandler.Release)
		admin.POST("/eventos/:id/encerrar", eventHandler.Close)
		admin.DELETE("/eventos/:id", eventHandler.Delete)
		admin.GET("/eventos/:id/exportar", eventHandler.ExportCSV)

		admin.POST("/municipios", adminHandler.CreateMunicipio)
		admin.GET("/municipios", adminHandler.ListMunicipios)
		admin.PUT("/municipios/:id", adminHandler.UpdateMunicipio)
		admin.DELETE("/municipios/:id", adminHandler.DeleteMunicipio)

		admin.POST("/usuarios", adminHandler.CreateUser)
		admin.GET("/usuarios", adminHandler.ListUsers)
		admin.PUT("/usuarios/:id", adminHandler.UpdateUser)
		admin.DELETE("/usuarios/:id", adminHandler.DeleteUser)

		admin.POST("/importacao/preview", importHandler.Preview)
		admin.POST("/importacao/confirmar", importHandler.Commit)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs.StartSessionSweep(ctx, auth, cfg.SweepInterval, zl)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		zl.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}
