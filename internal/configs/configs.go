package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// 区块浏览器配置
	Explorer ExplorerConfig `json:"explorer"`

	// AI 模型参数
	AI AIConfig `json:"ai"`

	// Agent 框架回调配置
	Gateway GatewayConfig `json:"gateway"`

	// 余额过滤配置
	Filter FilterConfig `json:"filter"`

	// HTTP 服务配置
	API APIConfig `json:"api"`

	// 分析窗口: 参与总结的最近转账条数
	SummaryWindow int `json:"summary_window"`
}

type ExplorerConfig struct {
	BaseURL     string   `json:"base_url"`
	APIKeys     []string `json:"api_keys"`     // 有序密钥列表,按策略轮换
	KeyStrategy string   `json:"key_strategy"` // round_robin / random
}

type AIConfig struct {
	Provider    string  `json:"provider"` // openai / deepseek
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"` // 为空时使用服务商默认模型
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type GatewayConfig struct {
	HubURL     string `json:"hub_url"` // 为空时禁用回调,仅记录日志
	ServiceKey string `json:"service_key"`
}

type FilterConfig struct {
	Enabled bool    `json:"enabled"`
	RPS     float64 `json:"rps"` // 余额查询的每秒配额
}

type APIConfig struct {
	Port int `json:"port"`
}

// Load reads configuration from the environment, honoring a .env file when
// present. Missing required keys are the only load failure.
func Load() (*Config, error) {
	// .env 不存在时直接回退到进程环境变量
	_ = godotenv.Load()

	keys, err := requireEnv("ETHERSCAN_API_KEYS")
	if err != nil {
		return nil, err
	}
	aiKey, err := requireEnv("AI_API_KEY")
	if err != nil {
		return nil, err
	}
	serviceKey, err := requireEnv("AGENT_SERVICE_KEY")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Explorer: ExplorerConfig{
			BaseURL:     getEnv("ETHERSCAN_BASE_URL", "https://api.etherscan.io/api"),
			APIKeys:     splitKeys(keys),
			KeyStrategy: getEnv("EXPLORER_KEY_STRATEGY", "round_robin"),
		},
		AI: AIConfig{
			Provider:    getEnv("AI_PROVIDER", "openai"),
			APIKey:      aiKey,
			Model:       getEnv("AI_MODEL", ""),
			MaxTokens:   getEnvInt("AI_MAX_TOKENS", 600),
			Temperature: getEnvFloat("AI_TEMPERATURE", 0.3),
		},
		Gateway: GatewayConfig{
			HubURL:     getEnv("AGENT_HUB_URL", ""),
			ServiceKey: serviceKey,
		},
		Filter: FilterConfig{
			Enabled: getEnvBool("BALANCE_FILTER_ENABLED", false),
			RPS:     getEnvFloat("BALANCE_FILTER_RPS", 0.2),
		},
		API: APIConfig{
			Port: getEnvInt("API_PORT", 8080),
		},
		SummaryWindow: clamp(getEnvInt("SUMMARY_WINDOW", 20), 1, 50),
	}

	if len(cfg.Explorer.APIKeys) == 0 {
		return nil, fmt.Errorf("ETHERSCAN_API_KEYS contains no usable keys")
	}

	return cfg, nil
}

func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitKeys(raw string) []string {
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
