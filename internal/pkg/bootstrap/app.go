// Package bootstrap 负责进程级别的初始化：配置、日志、追踪、服务注册和优雅关停。
package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/nacos"
	"storefront/internal/pkg/tracing"
)

type AppCtx struct {
	Mux    *http.ServeMux
	Nacos  *nacos.Client // 未配置 Nacos 时为 nil
	Config *Config
}

// AppInfo 包含了启动一个服务所需的特定信息。
type AppInfo struct {
	ServiceName string
	Port        int // 为 0 时使用 app.port
	// RegisterHandlers 注册服务自己的路由，返回的 cleanup 会在关停时调用
	RegisterHandlers func(appCtx AppCtx) (cleanup func(ctx context.Context), err error)
}

// Init 加载配置并初始化日志和追踪，命令行工具也使用它。
func Init(serviceName string) (*Config, tracing.ShutdownFunc) {
	cfg, err := LoadConfig()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	logger.Init(serviceName, cfg.App.LogLevel)

	shutdown, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.SampleRatio)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	return cfg, shutdown
}

// StartService 封装了服务的通用启动和优雅关停逻辑，阻塞直到收到退出信号。
func StartService(info AppInfo) {
	cfg, shutdownTracer := Init(info.ServiceName)
	port := info.Port
	if port == 0 {
		port = cfg.App.Port
	}

	var namingClient *nacos.Client
	var ip string
	if cfg.Infra.Nacos.ServerAddrs != "" {
		var err error
		namingClient, err = nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		if ip, err = outboundIP(); err != nil {
			logger.L().Fatal().Err(err).Msg("failed to get outbound IP address")
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	cleanup := func(context.Context) {}
	if info.RegisterHandlers != nil {
		c, err := info.RegisterHandlers(AppCtx{Mux: mux, Nacos: namingClient, Config: cfg})
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to register handlers")
		}
		if c != nil {
			cleanup = c
		}
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.L().Info().Str("service", info.ServiceName).Int("port", port).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	instance := nacos.Instance{
		Service:  info.ServiceName,
		IP:       ip,
		Port:     port,
		Metadata: map[string]string{"app": cfg.App.Name},
	}
	if namingClient != nil {
		if err := namingClient.Register(instance); err != nil {
			logger.L().Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.L().Info().Str("service", info.ServiceName).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// 先从注册中心摘除，再停止接收请求
		if namingClient != nil {
			if err := namingClient.Deregister(instance); err != nil {
				logger.L().Error().Err(err).Msg("error deregistering from nacos")
			}
			namingClient.Close()
		}
		if nacosConfigClient != nil {
			nacosConfigClient.CloseClient()
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L().Error().Err(err).Msg("error shutting down http server")
		}
		cleanup(shutdownCtx)
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.L().Error().Err(err).Msg("error shutting down tracer provider")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.L().Error().Err(err).Msg("service exited with error")
		os.Exit(1)
	}
	logger.L().Info().Str("service", info.ServiceName).Msg("gracefully shut down")
}

// outboundIP 返回本机对外通信使用的 IP，用于服务注册。
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
