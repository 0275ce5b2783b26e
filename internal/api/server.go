package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"portal/internal/app/config"
	"portal/internal/app/dsn"
	"portal/internal/app/entitlement"
	"portal/internal/app/handler"
	"portal/internal/app/logging"
	"portal/internal/app/metrics"
	"portal/internal/app/middleware"
	"portal/internal/app/redis"
	"portal/internal/app/repository"
	"portal/internal/app/storage"
	"portal/internal/pkg"
)

// StartServer wires the portal from its configuration and serves the API
// until the listener fails.
func StartServer(configPaths ...string) error {
	cfg, err := config.NewConfig(configPaths...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.Log)
	logger.Info("Starting server")

	dsnStr := cfg.DSN
	if dsnStr == "" {
		dsnStr = dsn.FromEnv()
	}
	if dsnStr == "" {
		return errors.New("database is not configured, set DSN or DB_HOST")
	}
	repo, err := repository.New(dsnStr)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	defer redisClient.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []entitlement.Option{
		entitlement.WithMetrics(metrics.MustNewMetrics(reg)),
		entitlement.WithConfig(entitlement.Config{
			BulkWorkers:         cfg.Bulk.Workers,
			BulkMaxItems:        cfg.Bulk.MaxItems,
			DefaultWindowDays:   cfg.Expiry.WindowDays,
			RenewedLookbackDays: cfg.Expiry.RenewedLookbackDays,
			DefaultARecord:      cfg.DNS.DefaultARecord,
			DefaultMX:           cfg.DNS.DefaultMX,
		}),
	}

	var reports handler.ReportLinker
	if cfg.MinIO.Enabled {
		archive, err := storage.NewMinIOClient(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey,
			cfg.MinIO.Bucket, cfg.MinIO.UseSSL, cfg.MinIO.URLTTL)
		if err != nil {
			return fmt.Errorf("init minio: %w", err)
		}
		opts = append(opts, entitlement.WithArchiver(archive))
		reports = archive
	} else {
		logger.Warn("MinIO disabled, batch reports will not be archived")
	}

	svc := entitlement.NewService(repo, clock.WallClock, logger.WithField("component", "entitlement"), opts...)
	authHandler := handler.NewAuthHandler(repo, redisClient, cfg)
	apiHandler := handler.NewAPIHandler(svc, reports, repo, authHandler)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	corsCfg := cors.DefaultConfig()
	if len(cfg.CORS.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	if cfg.Metrics.Enabled {
		handler.RegisterMetrics(router, cfg.Metrics.Path, reg)
	}

	app := pkg.NewApp(cfg, router, apiHandler, middleware.NewAuthMiddleware(redisClient, cfg))
	return app.RunApp()
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}
