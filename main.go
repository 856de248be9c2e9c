package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/any-hub/statuscat/internal/cache"
	"github.com/any-hub/statuscat/internal/config"
	"github.com/any-hub/statuscat/internal/logging"
	"github.com/any-hub/statuscat/internal/metrics"
	"github.com/any-hub/statuscat/internal/origin"
	"github.com/any-hub/statuscat/internal/proxy"
	"github.com/any-hub/statuscat/internal/retrieval"
	"github.com/any-hub/statuscat/internal/server"
	"github.com/any-hub/statuscat/internal/server/routes"
	"github.com/any-hub/statuscat/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	flags       *pflag.FlagSet
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute 解析参数并运行，返回退出码：0 成功，1 运行/配置失败，2 参数错误。
func execute(args []string) int {
	exitCode := 0
	cmd := newRootCommand(func(opts cliOptions) {
		exitCode = run(opts)
	})
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stdErr, "解析参数失败: %v\n", err)
		return 2
	}
	return exitCode
}

// newRootCommand 构建 statuscat 根命令；run 在参数解析成功后被调用。
func newRootCommand(run func(cliOptions)) *cobra.Command {
	var opts cliOptions

	cmd := &cobra.Command{
		Use:           "statuscat",
		Short:         "Caching reverse proxy for HTTP status code images",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.flags = cmd.Flags()
			if opts.configPath == "" {
				opts.configPath = os.Getenv(config.EnvPrefix + "_CONFIG")
			}
			run(opts)
			return nil
		},
	}
	cmd.SetOut(stdOut)
	cmd.SetErr(stdErr)

	flags := cmd.Flags()
	flags.StringP("host", "H", "", "监听地址（必填）")
	flags.IntP("port", "p", 0, "监听端口（必填）")
	flags.StringP("cache", "c", "", "缓存目录（必填，不存在时自动创建）")
	flags.String("origin", "", "上游图片服务地址（默认 https://http.cat）")
	flags.String("upstream-timeout", "", "回源超时，例如 30s")
	flags.Int64("max-blob-size", 0, "回源正文大小上限（字节）")
	flags.Bool("single-flight", false, "同一状态码的并发冷读共享一次回源")
	flags.String("log-level", "", "日志级别")
	flags.String("log-file", "", "日志文件路径，留空输出到 stdout")
	flags.StringVar(&opts.configPath, "config", "", "配置文件路径（可被 STATUSCAT_CONFIG 覆盖）")
	flags.BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	flags.BoolVar(&opts.showVersion, "version", false, "显示版本信息")

	return cmd
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath, opts.flags)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["listen"] = cfg.ListenAddr()
		fields["cache_dir"] = cfg.CacheDir
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动遵循“配置 → 磁盘缓存 → 回源 → 协调器 → Fiber server”顺序，
	// 缓存目录不可用时直接退出，不接受任何请求。
	_, statErr := os.Stat(cfg.CacheDir)
	store, err := cache.NewStore(cfg.CacheDir)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}
	cacheFields := logging.BaseFields("cache_dir", opts.configPath)
	cacheFields["cache_dir"] = cfg.CacheDir
	cacheFields["created"] = errors.Is(statErr, os.ErrNotExist)
	logger.WithFields(cacheFields).Info("缓存目录就绪")

	httpClient := server.NewUpstreamClient(cfg)
	fetcher, err := origin.NewHTTPFetcher(httpClient, cfg.Origin, cfg.MaxBlobSize)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化回源客户端失败: %v\n", err)
		return 1
	}

	recorder := metrics.New("statuscat")
	coordinator := retrieval.NewCoordinator(store, fetcher, logger, retrieval.Options{
		Recorder:     recorder,
		SingleFlight: cfg.SingleFlight,
	})
	proxyHandler := proxy.NewHandler(coordinator, logger)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen"] = cfg.ListenAddr()
	fields["origin"] = cfg.Origin
	fields["single_flight"] = cfg.SingleFlight
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, proxyHandler, recorder, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

func startHTTPServer(cfg *config.Config, proxyHandler server.ProxyHandler, recorder *metrics.Metrics, logger *logrus.Logger) error {
	app, err := server.NewApp(server.AppOptions{
		Logger:    logger,
		Proxy:     proxyHandler,
		BodyLimit: int(cfg.MaxBlobSize),
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticsRoutes(app, routes.StatusInfo{
		Version:      version.Full(),
		Origin:       cfg.Origin,
		CacheDir:     cfg.CacheDir,
		SingleFlight: cfg.SingleFlight,
	}, recorder.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.ListenAddr()
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"addr":   addr,
	}).Info("Fiber 服务启动")

	err = app.Listen(addr, fiber.ListenConfig{
		DisableStartupMessage: true,
		GracefulContext:       ctx,
		ShutdownTimeout:       shutdownTimeout,
	})
	logger.WithFields(logrus.Fields{"action": "shutdown", "addr": addr}).Info("Fiber 服务已停止")
	return err
}
