package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skillmatch/internal/analysis"
	"skillmatch/internal/api/handler"
	"skillmatch/internal/api/middleware"
	"skillmatch/internal/api/router"
	"skillmatch/internal/cachestats"
	"skillmatch/internal/compatibility"
	"skillmatch/internal/config"
	"skillmatch/internal/constants"
	appLogger "skillmatch/internal/logger"
	"skillmatch/internal/matchcache"
	"skillmatch/internal/matching"
	"skillmatch/internal/outbox"
	"skillmatch/internal/profiles"
	"skillmatch/internal/scheduler"
	"skillmatch/internal/storage"
	"skillmatch/internal/tracing"
	"skillmatch/pkg/llm"
	"skillmatch/pkg/ratelimit"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"      //nolint:gochecknoglobals
	serviceName = "skillmatch" //nolint:gochecknoglobals
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	// .env 只是本地开发的便利，不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}
	initLogger(cfg)
	appLogger.Info().Str("service", serviceName).Str("version", version).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, tracing.ProviderConfig{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		Endpoint:     cfg.Tracing.OTLPEndpoint,
		Insecure:     cfg.Tracing.Insecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
		ShutdownWait: 5 * time.Second,
	})
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	db := storageManager.MySQL.DB()

	if cfg.MySQL.AutoMigrate {
		if err := storageManager.MySQL.AutoMigrate(); err != nil {
			glog.Fatalf("数据库迁移失败: %v", err)
		}
	}

	chatModel, err := llm.NewGroqChatModel(llm.GroqConfig{
		APIKey:   cfg.Groq.APIKey,
		BaseURL:  cfg.Groq.BaseURL,
		Model:    cfg.Groq.Model,
		JSONMode: true,
		Timeout:  config.GetDuration(cfg.Groq.Timeout, 60*time.Second),
	})
	if err != nil {
		glog.Fatalf("初始化LLM客户端失败: %v", err)
	}
	limitedModel := ratelimit.NewLLMWithRateLimit(
		chatModel,
		cfg.Groq.Model,
		cfg.ModelQPMLimits,
		cfg.QPMForModel(cfg.Groq.Model, 30),
		cfg.Analysis.MaxRetries,
		2*time.Second,
	)
	glog.Infof("LLM客户端初始化成功，默认模型: %s", cfg.Groq.Model)

	matchAnalyzer := analysis.NewSkillMatchAnalyzer(limitedModel,
		analysis.CallOptionsFrom(cfg.Analysis.SkillMatch, cfg.GetModelForTask(constants.TaskSkillMatch)))
	compatAnalyzer := analysis.NewCompatibilityAnalyzer(limitedModel,
		analysis.CallOptionsFrom(cfg.Analysis.Compatibility, cfg.GetModelForTask(constants.TaskCompatibility)))
	extractor := analysis.NewSkillExtractor(limitedModel,
		analysis.CallOptionsFrom(cfg.Analysis.Extraction, cfg.GetModelForTask(constants.TaskSkillExtraction)))
	recommender := analysis.NewRecommender(limitedModel,
		analysis.CallOptionsFrom(cfg.Analysis.Recommendation, cfg.GetModelForTask(constants.TaskSkillRecommendation)))

	var fastTier matchcache.FastTier = matchcache.NewGormFastTier(db, cfg.CacheTTL())
	if cfg.MatchCache.RedisMirror && storageManager.Redis != nil {
		fastTier = matchcache.NewMirroredFastTier(fastTier, storageManager.Redis)
		glog.Info("快速缓存层已启用Redis镜像")
	}
	detailTier := matchcache.NewGormDetailTier(db, cfg.CacheTTL())
	recommendationStore := matchcache.NewGormRecommendationStore(db, cfg.RecommendationTTL())
	repo := profiles.NewRepository(db)

	// 不启用事件时传入 nil 接口，服务内部跳过发布
	var matchEvents matching.EventSink
	var compatEvents compatibility.EventSink
	var relay *outbox.MessageRelay
	if cfg.Events.Enabled {
		writer := outbox.NewWriter(db, cfg.RabbitMQ.MatchEventsExchange, map[string]string{
			constants.EventSkillMatchComputed:    cfg.RabbitMQ.ComputedRoutingKey,
			constants.EventSkillMatchInvalidated: cfg.RabbitMQ.InvalidatedRoutingKey,
			constants.EventCompatibilityAnalyzed: cfg.RabbitMQ.CompatibilityRouting,
		})
		matchEvents, compatEvents = writer, writer

		if storageManager.RabbitMQ != nil {
			relay = outbox.NewMessageRelay(db, storageManager.RabbitMQ, appLogger.Component("outbox"),
				outbox.WithPollingInterval(config.GetDuration(cfg.Events.PollInterval, 5*time.Second)),
				outbox.WithBatchSize(cfg.Events.BatchSize),
			)
			relay.Start()
			glog.Info("消息中继服务已启动")
		} else {
			glog.Warn("RabbitMQ不可用，事件只写入outbox表")
		}
	}

	matchService := matching.NewService(fastTier, detailTier, repo, matchAnalyzer, matching.Options{
		TotalsPolicy: cfg.MatchCache.CategoryTotalsPolicy,
		DefaultScope: cfg.MatchCache.InvalidationScope,
		Events:       matchEvents,
	})
	recommendationService := matching.NewRecommendationService(recommendationStore, detailTier, repo, matchAnalyzer, recommender, nil)
	extractionService := matching.NewSkillExtractionService(repo, extractor, nil)
	compatService := compatibility.NewService(repo, compatAnalyzer, compatEvents, nil)

	statsService := cachestats.NewService(cachestats.NewCollector(db), storageManager.Redis,
		config.GetDuration(cfg.Stats.SnapshotTTL, time.Minute), nil)
	statsRefresher := scheduler.NewStatsRefresher(statsService, storageManager.Redis, cfg.Stats.RefreshCron)
	if err := statsRefresher.Start(); err != nil {
		glog.Fatalf("启动统计刷新任务失败: %v", err)
	}

	pingers := map[string]handler.Pinger{"mysql": storageManager.MySQL.Ping}
	if storageManager.Redis != nil {
		pingers["redis"] = storageManager.Redis.Ping
	}
	apiHandler := handler.NewHandler(handler.Services{
		Matches:         matchService,
		Recommendations: recommendationService,
		Extraction:      extractionService,
		Compatibility:   compatService,
		Stats:           statsService,
		Pingers:         pingers,
	})

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(
		hertztracing.ServerMiddleware(tracerCfg),
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.Timeout(config.GetDuration(cfg.Server.RequestTimeout, 120*time.Second)),
	)

	adminAuth := middleware.AdminKeyAuth(cfg.IsAdminKey, len(cfg.Server.AdminAPIKeys) > 0)
	if len(cfg.Server.AdminAPIKeys) == 0 {
		glog.Warn("未配置admin_api_keys，管理接口不做鉴权")
	}
	router.RegisterRoutes(h.Engine, apiHandler, adminAuth)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	statsRefresher.Stop(shutdownCtx)
	if relay != nil {
		relay.Stop()
		glog.Info("消息中继服务已停止")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Errorf("关闭链路追踪失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

func initLogger(cfg *config.Config) {
	l := appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	glog.SetLogger(hertzadapter.From(l))
	if cfg.Logger.Level == "debug" {
		glog.SetLevel(glog.LevelDebug)
	} else {
		glog.SetLevel(glog.LevelInfo)
	}
}
