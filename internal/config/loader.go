package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 STATUSCAT_CACHEDIR=/var/cache/statuscat。
const EnvPrefix = "STATUSCAT"

const (
	defaultOrigin          = "https://http.cat"
	defaultUpstreamTimeout = 30 * time.Second
	defaultMaxBlobSize     = 10 * 1024 * 1024
)

// flagBindings 描述配置键与 CLI 标志的对应关系，未注册的标志会被忽略。
var flagBindings = map[string]string{
	"Host":            "host",
	"Port":            "port",
	"CacheDir":        "cache",
	"Origin":          "origin",
	"UpstreamTimeout": "upstream-timeout",
	"MaxBlobSize":     "max-blob-size",
	"SingleFlight":    "single-flight",
	"LogLevel":        "log-level",
	"LogFilePath":     "log-file",
}

var configKeys = []string{
	"Host", "Port", "CacheDir",
	"Origin", "UpstreamTimeout", "MaxBlobSize", "SingleFlight",
	"LogLevel", "LogFilePath", "LogMaxSize", "LogMaxBackups", "LogCompress",
}

// Load 按 “CLI 标志 > 环境变量 > 配置文件 > 默认值” 的优先级合并配置，
// 随后注入默认值并完成校验。path 为空时不读取配置文件；flags 可为 nil。
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absCache, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.CacheDir = absCache

	return &cfg, nil
}

// Host/Port/CacheDir 故意不设默认值：三者必须由调用方显式提供。
func setDefaults(v *viper.Viper) {
	v.SetDefault("Origin", defaultOrigin)
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("MaxBlobSize", defaultMaxBlobSize)
	v.SetDefault("SingleFlight", false)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for key, name := range flagBindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("绑定参数 --%s 失败: %w", name, err)
		}
	}
	return nil
}

func applyDefaults(c *Config) {
	c.Host = strings.TrimSpace(c.Host)
	c.Origin = strings.TrimRight(strings.TrimSpace(c.Origin), "/")
	if c.Origin == "" {
		c.Origin = defaultOrigin
	}
	if c.UpstreamTimeout.DurationValue() == 0 {
		c.UpstreamTimeout = Duration(defaultUpstreamTimeout)
	}
	if c.MaxBlobSize == 0 {
		c.MaxBlobSize = defaultMaxBlobSize
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
