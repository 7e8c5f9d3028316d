package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	apirest "github.com/kasuganosora/questengine/api/rest"
	"github.com/kasuganosora/questengine/api/sse"
	"github.com/kasuganosora/questengine/audit"
	"github.com/kasuganosora/questengine/cache"
	"github.com/kasuganosora/questengine/config"
	dbadapter "github.com/kasuganosora/questengine/db"
	"github.com/kasuganosora/questengine/game/notify"
	"github.com/kasuganosora/questengine/game/quest"
	"github.com/kasuganosora/questengine/game/reward"
	"github.com/kasuganosora/questengine/logging"
	mw "github.com/kasuganosora/questengine/middleware"
	"github.com/kasuganosora/questengine/model"
	"github.com/kasuganosora/questengine/plugin/hook"
	"github.com/kasuganosora/questengine/scheduler"
	"github.com/kasuganosora/questengine/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf(".env: %v", err)
	}

	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	logger, err := logging.New(cfg.Log, cfg.Server.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" && cfg.Server.AdminKeyHash == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}
	if cfg.Security.JWTSecret == "" {
		logger.Warn("security.jwt_secret is not set; service and player APIs reject every token")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database, logger)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Quest engine ----
	hooks := hook.NewHookCenter(logger)
	notify.NewBridge(pubsub, logger).Register(hooks)

	repo := store.NewQuestRepo(db)
	dispenser := reward.New(repo, c, pubsub, cfg.Quests.RewardCacheTTL, logger)

	cadences, err := cfg.Quests.Cadences()
	if err != nil {
		log.Fatalf("quests: %v", err)
	}

	var persister *quest.Persister
	if cfg.Quests.WriteBehind {
		persister = quest.NewPersister(repo, cfg.Quests.FlushInterval, nil, logger)
	}

	engine := quest.NewEngine(quest.Options{
		Repo:               repo,
		Factory:            quest.NewFactory(quest.DefaultCatalog(), nil),
		Dispenser:          dispenser,
		Hooks:              hooks,
		Persister:          persister,
		Policy:             cfg.Quests.Rerolls.Policy(),
		Cadences:           cadences,
		KeepClaimedOnReset: cfg.Quests.KeepClaimedOnReset,
		Logger:             logger,
	})

	startCtx, startCancel := context.WithTimeout(context.Background(), time.Minute)
	n, err := engine.Preload(startCtx)
	startCancel()
	if err != nil {
		log.Fatalf("quest preload: %v", err)
	}
	logger.Info("quest data loaded", zap.Int("players", n))

	resets := quest.NewResetScheduler(engine, c, logger)
	for _, k := range quest.Kinds {
		logger.Info("next quest reset", zap.Stringer("kind", k), zap.Time("at", resets.NextBoundary(k)))
	}

	// ---- Scheduler ----
	sched, err := scheduler.New(logger)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	// ---- Periodic Scheduler Tasks ----
	if err := sched.AddTicker("quest_reset", cfg.Quests.SweepInterval, func(ctx context.Context) {
		if err := resets.Tick(ctx); err != nil {
			logger.Error("quest reset tick failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	if err := sched.AddTicker("online_time", cfg.Quests.OnlineTickInterval, func(ctx context.Context) {
		if _, err := engine.AccrueOnline(ctx); err != nil {
			logger.Error("online time tick failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger, "/health"), mw.Recovery(logger))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "players": len(engine.CachedPlayers())})
	})

	limiter := mw.NewRateLimiter(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst)
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go limiter.Run(bgCtx, time.Minute, 10*time.Minute)

	allowAdmin, err := mw.IPWhitelist(cfg.Server.AdminIPs)
	if err != nil {
		log.Fatalf("server.admin_ips: %v", err)
	}

	// ---- REST API routes ----
	questH := apirest.NewQuestHandler(engine, logger)
	adminH := apirest.NewAdminHandler(engine, resets, dispenser, repo, sched, auditSvc, logger)
	sseH := sse.NewHandler(pubsub, cfg.Security, logger)

	api := r.Group("/api")
	{
		// Gameplay servers report events with service tokens.
		svc := api.Group("", mw.Auth(cfg.Security, mw.RoleService), limiter.Middleware())
		svc.POST("/quests/progress", questH.ReportProgress)
		svc.POST("/quests/:kind/assign", questH.Assign)
		svc.POST("/quests/:kind/reroll", questH.Reroll)
		svc.POST("/quests/:kind/claim", questH.Claim)
		svc.GET("/players/:id/quests", questH.Status)
		svc.POST("/presence/login", questH.Login)
		svc.POST("/presence/heartbeat", questH.Heartbeat)
		svc.POST("/presence/logout", questH.Logout)

		me := api.Group("/me", mw.Auth(cfg.Security, mw.RolePlayer), limiter.Middleware())
		me.GET("/quests", questH.MyQuests)

		adminG := api.Group("/admin", allowAdmin, apirest.AdminAuth(cfg.Server.AdminKey, cfg.Server.AdminKeyHash))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/players", adminH.ListOnline)
		adminG.GET("/players/:id", adminH.PlayerStatus)
		adminG.POST("/players/:id/reset/:kind", adminH.ResetPlayer)
		adminG.POST("/players/:id/quests/:kind/reset-progress", adminH.ResetProgress)
		adminG.POST("/players/:id/quests/:kind/complete", adminH.ForceComplete)
		adminG.POST("/reset/:kind", adminH.GlobalReset)
		adminG.GET("/rewards/:kind/:bracket", adminH.GetRewards)
		adminG.PUT("/rewards/:kind/:bracket", adminH.PutRewards)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/announce", sseH.PostAnnounce)
	}

	// ---- SSE ----
	r.GET("/sse", sseH.ServeSSE)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-sigCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop()
	bgCancel()
	engine.Flush(shutdownCtx)
	if persister != nil {
		persister.Stop(shutdownCtx)
	}
	auditSvc.Stop(shutdownCtx)
	logger.Info("bye")
}
