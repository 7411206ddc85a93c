package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 應用程式配置結構.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
	Push     PushConfig     `mapstructure:"push"`
	Limits   LimitsConfig   `mapstructure:"limits"`
}

// AppConfig 應用程式基本配置.
type AppConfig struct {
	Name       string `mapstructure:"name"`
	Version    string `mapstructure:"version"`
	InstanceID string `mapstructure:"instance_id"`
	Debug      bool   `mapstructure:"debug"`
}

// ServerConfig 伺服器配置.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Timeout  int    `mapstructure:"timeout"`
	UseHTTPS bool   `mapstructure:"use_https"`
	CertPath string `mapstructure:"cert_path"`
	KeyPath  string `mapstructure:"key_path"`
}

// DatabaseConfig 資料庫配置.
type DatabaseConfig struct {
	Mongo MongoConfig `mapstructure:"mongo"`
}

// MongoConfig MongoDB 配置.
type MongoConfig struct {
	URL                    string `mapstructure:"url"`
	Database               string `mapstructure:"database"`
	Username               string `mapstructure:"username"`
	Password               string `mapstructure:"password"`
	MaxPoolSize            uint64 `mapstructure:"max_pool_size"`
	MinPoolSize            uint64 `mapstructure:"min_pool_size"`
	MaxConnIdleTime        int    `mapstructure:"max_conn_idle_time"`
	ConnectTimeout         int    `mapstructure:"connect_timeout"`
	ServerSelectionTimeout int    `mapstructure:"server_selection_timeout"`
}

// RedisConfig 事件總線使用的 Redis 配置.
// URL 留空表示不啟用跨實例廣播（單實例部署）.
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

// LogConfig 日誌配置.
type LogConfig struct {
	RotationTimeHours int `mapstructure:"rotation_time_hours"` // 日誌輪轉時間 (小時).
	MaxAgeDays        int `mapstructure:"max_age_days"`        // 日誌保留天數.
	MaxSizeMB         int `mapstructure:"max_size_mb"`         // 單個日誌檔案最大大小 (MB).
}

// SecurityConfig 安全配置.
type SecurityConfig struct {
	Authentication AuthenticationConfig `mapstructure:"authentication"`
	Audit          AuditConfig          `mapstructure:"audit"`
}

// AuthenticationConfig 認證配置.
type AuthenticationConfig struct {
	JWTEnabled bool   `mapstructure:"jwt_enabled"`
	JWTSecret  string `mapstructure:"jwt_secret"`
}

// AuditConfig 審計配置.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PushConfig 推播通知配置.
type PushConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LimitsConfig 限制配置.
type LimitsConfig struct {
	Request      RequestLimitsConfig    `mapstructure:"request"`
	RateLimiting RateLimitingConfig     `mapstructure:"rate_limiting"`
	WS           WSLimitsConfig         `mapstructure:"ws"`
	Pagination   PaginationLimitsConfig `mapstructure:"pagination"`
	Message      MessageLimitsConfig    `mapstructure:"message"`
}

// RequestLimitsConfig 請求限制配置.
type RequestLimitsConfig struct {
	MaxBodySize int64 `mapstructure:"max_body_size"`
}

// RateLimitingConfig Rate Limiting 配置.
type RateLimitingConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	DefaultPerMinute int  `mapstructure:"default_per_minute"`
	MessagesPerMin   int  `mapstructure:"messages_per_minute"`
	PinsPerMin       int  `mapstructure:"pins_per_minute"`
}

// WSLimitsConfig WebSocket 連接限制配置.
type WSLimitsConfig struct {
	MaxConnectionsPerIP   int `mapstructure:"max_connections_per_ip"`
	MaxTotalConnections   int `mapstructure:"max_total_connections"`
	MinConnectionInterval int `mapstructure:"min_connection_interval_seconds"`
	SendBuffer            int `mapstructure:"send_buffer"`
}

// PaginationLimitsConfig 分頁限制配置.
type PaginationLimitsConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

// MessageLimitsConfig 訊息限制配置.
type MessageLimitsConfig struct {
	MaxLength     int `mapstructure:"max_length"`
	MaxEditLength int `mapstructure:"max_edit_length"`
	EditWindowMin int `mapstructure:"edit_window_minutes"`
}

var (
	config *Config
	// ENV 當前環境變數.
	ENV string = "local"
)

// Load 載入設定檔.
func Load(testCfg ...*Config) error {
	// 如果直接傳入配置（主要用於測試），設定並驗證
	if len(testCfg) > 0 && testCfg[0] != nil {
		config = testCfg[0]
		if err := validateConfig(config); err != nil {
			return fmt.Errorf("配置驗證失敗: %w", err)
		}
		return nil
	}

	// 初始化 Viper
	v := viper.New()

	// 檢查是否有 CONFIG_PATH 環境變數
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		// 使用 CONFIG_PATH 指定的檔案
		v.SetConfigFile(configPath)
		// 從檔案名稱推斷環境
		baseName := filepath.Base(configPath)
		ENV = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	} else {
		// 使用預設的環境配置檔案
		v.SetConfigName(ENV)
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
	}

	// 讀取配置檔案
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("讀取配置檔案失敗: %w", err)
	}

	// 將配置綁定到結構體
	config = &Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("解析配置失敗: %w", err)
	}

	// 驗證配置
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("配置驗證失敗: %w", err)
	}

	return nil
}

// Get 取得設定.
func Get() *Config {
	return config
}

// SetEnv 設定環境.
func SetEnv(env string) {
	ENV = env
}

// GetEnv 取得當前環境.
func GetEnv() string {
	return ENV
}

// validateConfig 驗證配置的有效性
func validateConfig(cfg *Config) error {
	// 驗證應用程式配置
	if cfg.App.Name == "" {
		return fmt.Errorf("應用程式名稱不能為空")
	}
	if cfg.App.Version == "" {
		return fmt.Errorf("應用程式版本不能為空")
	}

	// 驗證伺服器配置
	if cfg.Server.Host == "" {
		return fmt.Errorf("伺服器主機不能為空")
	}
	if cfg.Server.Port == "" {
		return fmt.Errorf("伺服器端口不能為空")
	}
	if cfg.Server.Timeout <= 0 {
		return fmt.Errorf("伺服器超時時間必須大於 0")
	}

	// 驗證資料庫配置
	if cfg.Database.Mongo.URL == "" {
		return fmt.Errorf("MongoDB URL 不能為空")
	}
	if cfg.Database.Mongo.Database == "" {
		return fmt.Errorf("MongoDB 資料庫名稱不能為空")
	}
	if cfg.Database.Mongo.MaxPoolSize == 0 {
		return fmt.Errorf("MongoDB 最大連接池大小必須大於 0")
	}
	if cfg.Database.Mongo.MinPoolSize > cfg.Database.Mongo.MaxPoolSize {
		return fmt.Errorf("MongoDB 最小連接池大小不能大於最大連接池大小")
	}

	// 驗證日誌配置
	if cfg.Log.RotationTimeHours <= 0 {
		return fmt.Errorf("日誌輪轉時間必須大於 0")
	}
	if cfg.Log.MaxAgeDays <= 0 {
		return fmt.Errorf("日誌保留天數必須大於 0")
	}
	if cfg.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("日誌檔案最大大小必須大於 0")
	}

	// 驗證認證配置
	if cfg.Security.Authentication.JWTEnabled && cfg.Security.Authentication.JWTSecret == "" {
		return fmt.Errorf("啟用 JWT 認證時密鑰不能為空")
	}

	return nil
}

// IsDebug 檢查是否為除錯模式
func IsDebug() bool {
	if config != nil {
		return config.App.Debug
	}
	return false
}

// GetServerAddr 取得伺服器地址
func GetServerAddr() string {
	if config != nil {
		return fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)
	}
	return "localhost:8080"
}

// GetInstanceID 取得實例標識（用於日誌與審計，區分多實例部署）
func GetInstanceID() string {
	if config != nil && config.App.InstanceID != "" {
		return config.App.InstanceID
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}
