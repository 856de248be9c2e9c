package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(testConfigPath(t, "valid.toml"), nil)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 8081 {
		t.Fatalf("监听地址解析错误: %s", cfg.ListenAddr())
	}
	if cfg.UpstreamTimeout.DurationValue() != 15*time.Second {
		t.Fatalf("UpstreamTimeout 解析错误: %s", cfg.UpstreamTimeout.DurationValue())
	}
	if cfg.Origin != "https://http.cat" {
		t.Fatalf("Origin 末尾的 / 应被去除，得到 %s", cfg.Origin)
	}
	if cfg.MaxBlobSize != defaultMaxBlobSize {
		t.Fatalf("MaxBlobSize 应该自动填充默认值")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel 应被保留，得到 %s", cfg.LogLevel)
	}
	if cfg.SingleFlight {
		t.Fatalf("SingleFlight 默认应关闭")
	}
}

func TestValidateRejectsMissingHost(t *testing.T) {
	_, err := Load(testConfigPath(t, "missing.toml"), nil)
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("缺少 Host 应返回 FieldError，得到 %v", err)
	}
	if fieldErr.Field != "Host" {
		t.Fatalf("错误字段应为 Host，得到 %s", fieldErr.Field)
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Port 超出范围应当报错")
	}
}

func TestValidateTable(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*Config)
		shouldErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing cache dir", func(c *Config) { c.CacheDir = "" }, true},
		{"zero port", func(c *Config) { c.Port = 0 }, true},
		{"ftp origin", func(c *Config) { c.Origin = "ftp://http.cat" }, true},
		{"origin without host", func(c *Config) { c.Origin = "https://" }, true},
		{"origin with query", func(c *Config) { c.Origin = "https://http.cat?x=1" }, true},
		{"zero timeout", func(c *Config) { c.UpstreamTimeout = 0 }, true},
		{"negative blob size", func(c *Config) { c.MaxBlobSize = -1 }, true},
		{"negative log backups", func(c *Config) { c.LogMaxBackups = -1 }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestListenAddr(t *testing.T) {
	cfg := validConfig()
	if got := cfg.ListenAddr(); got != "localhost:3000" {
		t.Fatalf("unexpected listen addr %s", got)
	}
}

func validConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            3000,
		CacheDir:        "./cache",
		Origin:          "https://http.cat",
		UpstreamTimeout: Duration(time.Second),
		MaxBlobSize:     1024,
		LogLevel:        "info",
	}
}
