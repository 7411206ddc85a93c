package main

import (
	"context"
	"fmt"
	"os"

	"dm-gateway/internal/bus"
	"dm-gateway/internal/collab"
	"dm-gateway/internal/constants"
	"dm-gateway/internal/delivery"
	"dm-gateway/internal/gateway"
	"dm-gateway/internal/platform/config"
	"dm-gateway/internal/platform/driver"
	"dm-gateway/internal/platform/health"
	"dm-gateway/internal/platform/logger"
	"dm-gateway/internal/platform/middleware"
	"dm-gateway/internal/platform/server"
	"dm-gateway/internal/presence"
	"dm-gateway/internal/security/audit"
	"dm-gateway/internal/storage/database"

	"github.com/jonboulle/clockwork"
)

func main() {
	if err := mainNoExit(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// mainNoExit 分離主要邏輯以避免 exitAfterDefer 問題，確保 defer 函數正常執行.
func mainNoExit() error {
	// 初始化日誌.
	if err := logger.InitLogger(); err != nil {
		return err
	}
	defer logger.CloseLogger()

	ctx := context.Background()

	// 載入配置.
	if err := config.Load(); err != nil {
		return err
	}
	cfg := config.Get()

	// 連接資料庫.
	if err := driver.ConnectMongo(); err != nil {
		return err
	}
	defer func() {
		if err := driver.CloseMongo(); err != nil {
			logger.Errorf(ctx, "關閉 MongoDB 連接失敗: %v", err)
		}
	}()

	// 設置 MongoDB 連接到 database 包
	database.SetMongoDB(driver.GetMongoDatabase())

	// 初始化 Repository.
	repos := database.NewRepositories()
	if repos == nil {
		return fmt.Errorf("repository initialization failed")
	}

	// 連接 Redis（事件總線，未配置時單實例運行）.
	if err := driver.ConnectRedis(); err != nil {
		return err
	}
	defer func() {
		if err := driver.CloseRedis(); err != nil {
			logger.Errorf(ctx, "關閉 Redis 連接失敗: %v", err)
		}
	}()

	// 審計與認證
	auditSvc := audit.NewAuditService(cfg.Security.Audit.Enabled)
	jwtAuth := middleware.NewJWTMiddleware(
		cfg.Security.Authentication.JWTSecret,
		cfg.Security.Authentication.JWTEnabled,
	)

	// 在線註冊表與 WebSocket 閘道
	registry := presence.NewRegistry()
	gw := gateway.NewGateway(registry, jwtAuth, auditSvc, cfg.Limits.WS.SendBuffer)

	// 跨實例事件總線
	var eventBus bus.EventBus
	if client := driver.GetRedisClient(); client != nil {
		channel := cfg.Redis.Channel
		if channel == "" {
			channel = constants.DefaultBusChannel
		}
		eventBus = bus.NewRedisBus(client, channel)
	} else {
		eventBus = bus.NewNoopBus()
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Errorf(ctx, "關閉事件總線失敗: %v", err)
		}
	}()

	// 平台協作服務：除錯模式下放行所有好友與用戶查詢
	var friends collab.FriendshipLookup
	var users collab.UserLookup
	if cfg.App.Debug {
		friends = collab.AllowAllFriendship{}
		users = collab.AssumeExistsUserLookup{}
	} else {
		db := driver.GetMongoDatabase()
		friends = collab.NewMongoFriendshipLookup(db)
		users = collab.NewMongoUserLookup(db)
	}

	var push collab.PushNotificationService
	if cfg.Push.Enabled {
		push = collab.LoggingPushService{}
	} else {
		push = collab.NoopPushService{}
	}

	// 交付編排服務
	service := delivery.NewService(
		repos.Message,
		repos.Pin,
		repos.Attachment,
		friends,
		users,
		push,
		gw,
		eventBus,
		clockwork.NewRealClock(),
		auditSvc,
	)

	// 訂閱總線：別台實例發的事件轉成本機下發
	subCtx, cancelSub := context.WithCancel(ctx)
	defer cancelSub()
	eventBus.Subscribe(subCtx, func(env bus.Envelope) {
		gw.EmitToUser(env.TargetUserID, env.Type, env.Payload)
	})

	logger.Info(ctx, "[System] 服務初始化完成", logger.WithDetails(map[string]interface{}{
		"instance": config.GetInstanceID(),
		"debug":    cfg.App.Debug,
	}))

	// 啟動 HTTP 服務器（阻塞直到收到關閉信號）
	return server.Start(&server.Dependencies{
		Service: service,
		Gateway: gw,
		Auth:    jwtAuth,
		Health:  health.NewHealthHandler(registry),
	})
}
