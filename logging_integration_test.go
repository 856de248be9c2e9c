package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggingFallbackToStdout(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	writeFile(t, blocked, "regular file")

	logPath := filepath.Join(blocked, "sub", "statuscat.log")
	configPath := writeConfigFile(t, fmt.Sprintf(`
Host = "127.0.0.1"
Port = 5000
CacheDir = "%s"
LogLevel = "info"
LogFilePath = "%s"
`, filepath.Join(dir, "cache"), logPath))

	useBufferWriters(t)
	code := run(cliOptions{configPath: configPath, checkOnly: true})
	if code != 0 {
		t.Fatalf("日志 fallback 不应导致失败，得到 %d", code)
	}
	t.Log(stdOutBuffer().String())
}

func TestInvalidLogLevelAbortsStartup(t *testing.T) {
	configPath := writeConfigFile(t, fmt.Sprintf(`
Host = "127.0.0.1"
Port = 5000
CacheDir = "%s"
LogLevel = "chatty"
`, filepath.Join(t.TempDir(), "cache")))

	useBufferWriters(t)
	if code := run(cliOptions{configPath: configPath, checkOnly: true}); code != 1 {
		t.Fatalf("非法日志级别应返回 1，得到 %d", code)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, file, strings.TrimSpace(content))
	return file
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入文件失败: %v", err)
	}
}
