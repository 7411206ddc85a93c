package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dm-gateway/internal/platform/config"
	"dm-gateway/internal/platform/logger"
)

// Start 啟動 HTTP 伺服器並阻塞到收到關閉信號.
func Start(deps *Dependencies) error {
	cfg := config.Get()

	// setting router
	router := Router(deps)

	// create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.Timeout) * time.Second,
		WriteTimeout: 0, // WebSocket 需要長連接，設為 0 表示不超時
		IdleTimeout:  120 * time.Second,
	}

	// start server
	go func() {
		logger.LogInfof("伺服器正在監聽埠口: %s", cfg.Server.Port)

		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertPath, cfg.Server.KeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.LogErrorf("伺服器啟動失敗: %v", err)
			os.Exit(1)
		}
	}()

	// 等待關閉信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.LogInfof("收到關閉信號，正在優雅關閉伺服器...")

	// 優雅關閉
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.LogErrorf("伺服器關閉失敗: %v", err)
		return err
	}

	logger.LogInfof("伺服器已優雅關閉")
	return nil
}
