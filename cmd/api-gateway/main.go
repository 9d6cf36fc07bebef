package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/qr-attend-api/api/swagger"
	"github.com/noah-isme/qr-attend-api/internal/handler"
	"github.com/noah-isme/qr-attend-api/internal/middleware"
	"github.com/noah-isme/qr-attend-api/internal/repository"
	"github.com/noah-isme/qr-attend-api/internal/service"
	"github.com/noah-isme/qr-attend-api/pkg/cache"
	"github.com/noah-isme/qr-attend-api/pkg/config"
	"github.com/noah-isme/qr-attend-api/pkg/database"
	"github.com/noah-isme/qr-attend-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/qr-attend-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/qr-attend-api/pkg/middleware/requestid"
	"github.com/noah-isme/qr-attend-api/pkg/storage"
)

// @title QR Attend API
// @version 0.1.0
// @description Attendance tracking service: student roster, QR/typed check-ins, daily views and spreadsheet exports
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()

	var (
		rosterStore     service.RosterStore
		attendanceStore service.AttendanceStore
		ready           func(ctx context.Context) error
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
		}
		defer db.Close() //nolint:errcheck
		rosterStore = repository.NewStudentRepository(db)
		attendanceStore = repository.NewAttendanceRepository(db)
		ready = db.PingContext
	default:
		rosterStore = repository.NewLocalStudentRepository()
		attendanceStore = repository.NewLocalAttendanceRepository()
		ready = func(context.Context) error { return nil }
	}
	logr.Sugar().Infow("store backend selected", "driver", cfg.Store.Driver)

	var cacheSvc *service.CacheService
	if cfg.Summary.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Summary.CacheTTL, logr, true)
	}

	fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	rosterSvc := service.NewRosterService(rosterStore, validator.New(), logr)
	checkinSvc := service.NewCheckinService(rosterSvc, attendanceStore, metricsSvc, cacheSvc, logr)
	attendanceSvc := service.NewAttendanceService(attendanceStore, rosterStore, cacheSvc, logr)
	importSvc := service.NewImportService(rosterStore, logr)
	exportSvc := service.NewExportService(attendanceSvc, fileStore, signer,
		service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr, nil, nil)

	studentHandler := handler.NewStudentHandler(rosterSvc, attendanceSvc, importSvc)
	checkinHandler := handler.NewCheckinHandler(checkinSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/checkins", checkinHandler.Create)

		api.GET("/attendance", attendanceHandler.List)
		api.GET("/attendance/today", attendanceHandler.Today)
		api.GET("/attendance/summary", attendanceHandler.Summary)

		api.GET("/students", studentHandler.List)
		api.POST("/students", studentHandler.Create)
		api.POST("/students/import", studentHandler.Import)
		api.PATCH("/students/:id/active", studentHandler.SetActive)
		api.GET("/students/:id/attendance", studentHandler.History)

		api.POST("/exports/attendance", exportHandler.Create)
		api.GET("/exports/:filename", exportHandler.Download)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Scanner.StdinEnabled {
		scanLoop := service.NewScanLoop(stdinCodeSource(), checkinSvc, service.ScanLoopConfig{
			TickInterval: cfg.Scanner.TickInterval,
			Logger:       logr,
			OnResult: func(res service.ScanResult) {
				if res.Err != nil {
					logr.Sugar().Warnw("scan check-in rejected", "code", res.Code, "error", res.Err)
					return
				}
				logr.Sugar().Infow("scan check-in recorded",
					"student_id", res.Record.StudentID, "name", res.Record.StudentName)
			},
		})
		scanLoop.Start(rootCtx)
		defer scanLoop.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

// stdinCodeSource feeds lines typed or piped on stdin to the scan loop.
// Reads happen on a dedicated goroutine so a tick never blocks on the
// terminal; ticks with no pending line yield an empty code.
func stdinCodeSource() service.CodeSource {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line := <-lines:
			return line, nil
		default:
			return "", nil
		}
	}
}
