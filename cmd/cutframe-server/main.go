package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/piwi3910/CutFrame/internal/config"
	"github.com/piwi3910/CutFrame/internal/model"
	"github.com/piwi3910/CutFrame/internal/project"
	"github.com/piwi3910/CutFrame/internal/server"
	"github.com/piwi3910/CutFrame/internal/store"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configFile := flag.String("config", "", "Config file (yaml), default ./configs/cutframe.yaml or ./cutframe.yaml")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting cutframe server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	materials, err := initMaterials(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init material store", zap.Error(err))
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.New(server.Options{
			Settings:       cfg.Cutting.Settings(),
			Materials:      materials,
			Logger:         zapLogger,
			MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		}).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

// initMaterials picks the postgres store when the database is enabled and
// the JSON file otherwise.
func initMaterials(cfg *config.Config, zapLogger *zap.Logger) (server.MaterialStore, error) {
	if !cfg.Database.Enabled {
		path := cfg.Materials.SettingsPath
		if path == "" {
			path = project.DefaultMaterialsPath()
		}
		zapLogger.Info("Using file material store", zap.String("path", path))
		return server.NewFileMaterials(path), nil
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	repo := store.NewRepository(db, cfg.Materials.DefaultLength)
	ctx := context.Background()
	if err := repo.AutoMigrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate material table: %w", err)
	}
	defaults := model.DefaultMaterialLengths()
	defaults.Default = cfg.Materials.DefaultLength
	if err := repo.Seed(ctx, defaults); err != nil {
		return nil, err
	}
	zapLogger.Info("Using postgres material store",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName))
	return repo, nil
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}
