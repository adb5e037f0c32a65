package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zhouzirui/auro-chat/backend/internal/model/chat"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Chat    ChatConfig
	Storage StorageConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chatCfg, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Chat: chatCfg, Storage: storage, Log: logCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ChatConfig 描述聊天引擎的时间与随机数设置。
type ChatConfig struct {
	// TimeUnit 是一个模拟时间单位的长度，状态推进、打字延迟和在线状态都以它为基准。
	TimeUnit            time.Duration
	PresencePeriodUnits int
	SystemTheme         chat.Theme
	Seed                *uint64
}

// PresencePeriod 返回在线状态模拟的周期。
func (c ChatConfig) PresencePeriod() time.Duration {
	return time.Duration(c.PresencePeriodUnits) * c.TimeUnit
}

// SystemThemePreference 在配置了系统主题时返回它。
func (c ChatConfig) SystemThemePreference() (chat.Theme, bool) {
	if c.SystemTheme == "" {
		return "", false
	}
	return c.SystemTheme, true
}

func loadChatConfig() (ChatConfig, error) {
	unit, err := parseDurationEnv("CHAT_TIME_UNIT", time.Second)
	if err != nil {
		return ChatConfig{}, err
	}
	if unit <= 0 {
		return ChatConfig{}, fmt.Errorf("invalid CHAT_TIME_UNIT value %q: must be positive", unit)
	}

	periodUnits := 5
	if override, err := parseOptionalIntEnv("CHAT_PRESENCE_PERIOD_UNITS"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			periodUnits = 1
		} else {
			periodUnits = *override
		}
	}

	var theme chat.Theme
	if raw := strings.TrimSpace(os.Getenv("CHAT_SYSTEM_THEME")); raw != "" {
		parsed, ok := chat.ParseTheme(strings.ToLower(raw))
		if !ok {
			return ChatConfig{}, fmt.Errorf("invalid CHAT_SYSTEM_THEME value %q: want light or dark", raw)
		}
		theme = parsed
	}

	seed, err := parseOptionalUintEnv("CHAT_SEED")
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{
		TimeUnit:            unit,
		PresencePeriodUnits: periodUnits,
		SystemTheme:         theme,
		Seed:                seed,
	}, nil
}

// StorageConfig 描述持久化后端配置。
type StorageConfig struct {
	Driver        string
	Path          string
	RedisAddr     string
	FlushInterval time.Duration
}

func loadStorageConfig() (StorageConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", "sqlite"))

	defaultPath := ""
	switch driver {
	case "sqlite":
		defaultPath = "data/chat.db"
	case "pebble":
		defaultPath = "data/pebble"
	case "memory", "redis":
	default:
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_DRIVER value %q", driver)
	}

	flush, err := parseDurationEnv("STORAGE_FLUSH_INTERVAL", 250*time.Millisecond)
	if err != nil {
		return StorageConfig{}, err
	}

	return StorageConfig{
		Driver:        driver,
		Path:          getEnvOrDefault("STORAGE_PATH", defaultPath),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		FlushInterval: flush,
	}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() (LogConfig, error) {
	format := strings.ToLower(getEnvOrDefault("LOG_FORMAT", "console"))
	if format != "console" && format != "json" {
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value %q: want console or json", format)
	}
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: format,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalUintEnv(key string) (*uint64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
