package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/url"
	"os"
	"time"

	colearn "github.com/absmach/colearn"
	"github.com/absmach/colearn/coordinator"
	"github.com/absmach/colearn/coordinator/api"
	"github.com/absmach/colearn/coordinator/middleware"
	"github.com/absmach/colearn/pkg/detector"
	"github.com/absmach/colearn/pkg/mqtt"
	"github.com/absmach/colearn/pkg/privacy"
	"github.com/absmach/colearn/pkg/selector"
	"github.com/absmach/colearn/pkg/storage"
	"github.com/absmach/colearn/round"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "coordinator"
	defHTTPPort   = "7070"
	envPrefixHTTP = "COORDINATOR_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel    string        `env:"COORDINATOR_LOG_LEVEL"    envDefault:"info"`
	InstanceID  string        `env:"COORDINATOR_INSTANCE_ID"`
	ConfigPath  string        `env:"COORDINATOR_CONFIG_PATH"`
	MQTTAddress string        `env:"COORDINATOR_MQTT_ADDRESS" envDefault:"tcp://localhost:1883"`
	MQTTQoS     uint8         `env:"COORDINATOR_MQTT_QOS"     envDefault:"2"`
	MQTTTimeout time.Duration `env:"COORDINATOR_MQTT_TIMEOUT" envDefault:"30s"`
	ClientID    string        `env:"COORDINATOR_CLIENT_ID"`
	ClientKey   string        `env:"COORDINATOR_CLIENT_KEY"`
	ChannelID   string        `env:"COORDINATOR_CHANNEL_ID"`
	OTELURL     url.URL       `env:"COORDINATOR_OTEL_URL"`
	TraceRatio  float64       `env:"COORDINATOR_TRACE_RATIO"  envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	tuning := coordinator.DefaultTuning()
	var selectorOpts []selector.Option
	if cfg.ConfigPath != "" {
		fileCfg, err := colearn.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logger.Error("failed to load tuning config", slog.String("error", err.Error()))

			return
		}
		tuning = applyTuning(tuning, fileCfg.Coordinator)
		selectorOpts = capOverrides(fileCfg.Selection)
	}

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, "", cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	storageCfg := storage.Config{}
	if err := env.Parse(&storageCfg); err != nil {
		logger.Error("failed to load storage configuration", slog.String("error", err.Error()))

		return
	}
	repos, err := storage.NewRepositories(storageCfg)
	if err != nil {
		logger.Error("failed to initialize storage", slog.String("error", err.Error()))

		return
	}
	defer func() {
		if err := repos.Close(); err != nil {
			logger.Error("error closing storage", slog.Any("error", err))
		}
	}()

	mqttPubSub, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cfg.ClientID, cfg.ClientKey, cfg.ChannelID, cfg.MQTTTimeout, logger)
	if err != nil {
		logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

		return
	}

	mech := privacy.NewGaussian(tuning.Sensitivity, rand.New(rand.NewSource(time.Now().UnixNano())))

	svc := coordinator.NewService(
		repos,
		selector.NewComposite(selectorOpts...),
		detector.New(),
		mech,
		mqttPubSub,
		cfg.ChannelID,
		tuning,
		logger,
	)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if err := svc.Subscribe(ctx); err != nil {
		logger.Error("failed to subscribe to coordinator channel", slog.String("error", err.Error()))

		return
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}

func applyTuning(t coordinator.Tuning, c colearn.CoordinatorConfig) coordinator.Tuning {
	if c.ConsensusThreshold > 0 {
		t.ConsensusThreshold = c.ConsensusThreshold
	}
	if c.TotalPrivacyBudget > 0 {
		t.TotalPrivacyBudget = c.TotalPrivacyBudget
	}
	if c.RoundTimeout > 0 {
		t.RoundTimeout = c.RoundTimeout
	}
	if c.Sensitivity > 0 {
		t.Sensitivity = c.Sensitivity
	}
	if c.WASMAggregatorPath != "" {
		t.WASMAggregatorPath = c.WASMAggregatorPath
	}

	return t
}

func capOverrides(c colearn.SelectionConfig) []selector.Option {
	var opts []selector.Option
	if c.FedAvgCap > 0 {
		opts = append(opts, selector.WithCap(round.FedAvg, c.FedAvgCap))
	}
	if c.SecureAggregationCap > 0 {
		opts = append(opts, selector.WithCap(round.SecureAggregation, c.SecureAggregationCap))
	}
	if c.ByzantineRobustCap > 0 {
		opts = append(opts, selector.WithCap(round.ByzantineRobust, c.ByzantineRobustCap))
	}
	if c.DifferentialPrivateCap > 0 {
		opts = append(opts, selector.WithCap(round.DifferentialPrivate, c.DifferentialPrivateCap))
	}

	return opts
}
