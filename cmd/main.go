package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ecomsimply_v1_202608/internal/controller"
	"ecomsimply_v1_202608/internal/middleware"
	"ecomsimply_v1_202608/internal/model"
	"ecomsimply_v1_202608/internal/repository"
	"ecomsimply_v1_202608/internal/router"
	"ecomsimply_v1_202608/internal/service"
	"ecomsimply_v1_202608/internal/task"
	"ecomsimply_v1_202608/pkg/database"
)

// @title ECOMSIMPLY Amazon SP-API 服务
// @version 1.0
// @description Amazon 连接生命周期与商品发布流水线 API
// @host localhost:8080
// @BasePath /
func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	initTasks(deps)

	// 4. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.JWT, deps.ConnCtl, deps.PublishCtl)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB    *gorm.DB
	Repos *Repositories

	ConnSvc    *service.ConnectionService
	FeedClient service.FeedClientInterface
	Publisher  *service.PublisherService
	Pipeline   *service.PipelineService
	JWT        *middleware.JWTService

	ConnCtl    *controller.ConnectionController
	PublishCtl *controller.PublishController
}

// Repositories 仓库集合
type Repositories struct {
	Conn     repository.ConnectionRepository
	Pub      repository.PublicationRepository
	Settings repository.SettingsRepository
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=ecomsimply password=ecomsimply dbname=ecomsimply port=5432 sslmode=disable")
	verbose := getEnv("DB_VERBOSE", "") == "1"

	return database.InitDB(dsn, verbose,
		&model.Connection{},
		&model.PublicationRecord{},
		&model.UserSettings{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Conn:     repository.NewConnectionRepository(db),
		Pub:      repository.NewPublicationRepository(db),
		Settings: repository.NewSettingsRepository(db),
	}

	// -------- 连接链路 --------
	crypto, err := service.NewCryptoService(
		getEnv("TOKEN_ENCRYPTION_SECRET", ""),
		getEnv("TOKEN_ENCRYPTION_KEY_ID", "v1"),
	)
	if err != nil {
		log.Fatalf("加密服务初始化失败: %v", err)
	}
	codec := service.NewStateCodec(getEnv("OAUTH_STATE_SECRET", ""))

	lwaSvc := service.NewLWAService(&service.LWAConfig{
		ClientID:     getEnv("LWA_CLIENT_ID", ""),
		ClientSecret: getEnv("LWA_CLIENT_SECRET", ""),
		AppID:        getEnv("SPAPI_APP_ID", ""),
		RedirectURI:  getEnv("SPAPI_REDIRECT_URI", ""),
	})

	connSvc := service.NewConnectionService(repos.Conn, codec, lwaSvc, crypto)

	// -------- 发布链路 --------
	feedClient := service.NewSPAPIFeedClient(30 * time.Second)
	storageSvc := initStorageService()

	// storage 可为 nil，接口参数不能直接塞有类型的 nil 指针
	var mirror service.ImageMirrorInterface
	if storageSvc != nil {
		mirror = storageSvc
	}
	publisher := service.NewPublisherService(connSvc, repos.Pub, repos.Settings, feedClient, mirror, nil)

	seoSvc := service.NewSEOService(&service.SEOConfig{
		ApiKey: getEnv("GEMINI_API_KEY", ""),
		Model:  getEnv("GEMINI_MODEL", ""),
	})
	priceSvc := service.NewPriceService(&service.PriceConfig{
		APIKey:    getEnv("PRICE_API_KEY", ""),
		APISecret: getEnv("PRICE_API_SECRET", ""),
		BaseURL:   getEnv("PRICE_API_BASE_URL", ""),
	})
	pipeline := service.NewPipelineService(seoSvc, priceSvc, publisher, connSvc, repos.Settings)

	// -------- 中间件 & Controller 层 --------
	jwtSvc := middleware.NewJWTService(&middleware.JWTConfig{
		SecretKey: getEnv("JWT_SECRET", ""),
	})
	limiter := middleware.NewPublishRateLimiter()

	return &Dependencies{
		DB:         db,
		Repos:      repos,
		ConnSvc:    connSvc,
		FeedClient: feedClient,
		Publisher:  publisher,
		Pipeline:   pipeline,
		JWT:        jwtSvc,
		ConnCtl:    controller.NewConnectionController(connSvc, getEnv("FRONTEND_URL", "http://localhost:3000")),
		PublishCtl: controller.NewPublishController(publisher, pipeline, limiter),
	}
}

// initStorageService 初始化图片镜像存储，未配置时跳过
func initStorageService() *service.StorageService {
	bucket := getEnv("AWS_BUCKET", "")
	if bucket == "" {
		log.Println("未配置 AWS_BUCKET，图片镜像功能关闭")
		return nil
	}

	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Bucket:    bucket,
		Region:    getEnv("AWS_REGION", "eu-west-1"),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
		BasePath:  getEnv("STORAGE_BASE_PATH", "ecomsimply"),
	})
	if err != nil {
		log.Printf("警告: 存储服务初始化失败: %v", err)
		return nil
	}
	return storageSvc
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	// 过期 pending 连接清理
	sweepTask := task.NewSweepTask(deps.Repos.Conn)
	sweepTask.Start()

	// Feed 状态轮询
	pollTask := task.NewFeedPollTask(deps.Repos.Pub, deps.ConnSvc, deps.FeedClient)
	pollTask.Start()

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")
	if _, err := strconv.Atoi(port); err != nil {
		log.Fatalf("SERVER_PORT 不合法: %s", port)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
