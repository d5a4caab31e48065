package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"claimgate/config"
	"claimgate/core"
	"claimgate/core/events"
	"claimgate/crypto"
	gwconfig "claimgate/gateway/config"
	"claimgate/gateway/middleware"
	"claimgate/gateway/routes"
	"claimgate/integrations/audit"
	"claimgate/integrations/webhooks"
	"claimgate/native/activity/prooflog"
	"claimgate/native/campaign"
	"claimgate/native/registry"
	"claimgate/observability/logging"
	"claimgate/observability/metrics"
	"claimgate/observability/otel"
	"claimgate/rpc"
	"claimgate/storage"
)

const envName = "CLAIMGATE_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	gatewayFile := flag.String("gateway-config", "", "Path to the gateway YAML configuration (overrides the config file)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envName))
	logger := logging.Setup("claimgated", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fatal(logger, "load config", err)
	}
	if env == "" {
		env = cfg.Environment
	}
	if cfg.Logging.File != "" {
		logger = logging.SetupWithRotation("claimgated", env, logging.Rotation{
			File:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: "claimgated",
			Environment: env,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			fatal(logger, "init telemetry", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		fatal(logger, "open database", err)
	}
	defer db.Close()

	var plog *prooflog.Log
	if cfg.ProofLog.Enabled {
		plog, err = prooflog.Open(cfg.ProofLog.Path)
		if err != nil {
			fatal(logger, "open proof log", err)
		}
		defer plog.Close()
	}

	emitters := []events.Emitter{metrics.NewCollector()}
	if cfg.Audit.Enabled {
		auditDB, err := audit.Open(cfg.Audit.DSN)
		if err != nil {
			fatal(logger, "open audit store", err)
		}
		recorder, err := audit.NewRecorder(auditDB, logger)
		if err != nil {
			fatal(logger, "init audit recorder", err)
		}
		emitters = append(emitters, recorder)
	}
	if cfg.Webhooks.Enabled {
		secret := cfg.WebhookSecret()
		if len(secret) == 0 {
			fatal(logger, "init webhooks", fmt.Errorf("secret env %s not set", cfg.Webhooks.SecretEnv))
		}
		dispatcher, err := webhooks.NewDispatcher(cfg.Webhooks.Endpoint, secret)
		if err != nil {
			fatal(logger, "init webhooks", err)
		}
		defer dispatcher.Close()
		emitters = append(emitters, webhooks.NewNotifier(dispatcher))
	}

	treasury, err := cfg.Treasury()
	if err != nil {
		fatal(logger, "decode treasury", err)
	}

	node, err := core.NewNode(db, core.Options{
		Treasury: treasury,
		ProofLog: plog,
		Emitters: emitters,
	})
	if err != nil {
		fatal(logger, "create node", err)
	}

	if manifestPath := strings.TrimSpace(cfg.RegistryManifest); manifestPath != "" {
		if err := applyManifest(node, manifestPath); err != nil {
			fatal(logger, "apply registry manifest", err)
		}
	}

	restored, err := node.Restore()
	if err != nil {
		fatal(logger, "restore campaigns", err)
	}
	logger.Info("campaigns restored", slog.Int("count", restored))

	rpcServer := rpc.NewServer(node)
	if token := cfg.RPCAuthToken(); token != "" {
		rpcServer.SetAuthToken(token)
	} else {
		logger.Warn("mutating RPC methods disabled", slog.String("env", cfg.RPCAuthTokenEnv))
	}

	rpcMux := http.NewServeMux()
	rpcMux.Handle("/", rpcServer)
	rpcMux.HandleFunc("/ws/events", rpcServer.HandleEvents)
	rpcSrv := &http.Server{
		Addr:         cfg.RPCAddress,
		Handler:      rpcMux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	gatewayPath := strings.TrimSpace(*gatewayFile)
	if gatewayPath == "" {
		gatewayPath = strings.TrimSpace(cfg.Gateway.ConfigPath)
	}
	gwCfg, err := gwconfig.Load(gatewayPath)
	if err != nil {
		fatal(logger, "load gateway config", err)
	}
	gatewaySrv := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      buildGateway(gwCfg, rpcServer),
		ReadTimeout:  gwCfg.ReadTimeout,
		WriteTimeout: gwCfg.WriteTimeout,
		IdleTimeout:  gwCfg.IdleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("rpc listening", slog.String("address", cfg.RPCAddress))
		if err := rpcSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("rpc server: %w", err)
		}
	}()
	go func() {
		logger.Info("gateway listening", slog.String("address", cfg.ListenAddress))
		if err := gatewaySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("gateway server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gatewaySrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown failed", slog.Any("error", err))
	}
	if err := rpcSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("rpc shutdown failed", slog.Any("error", err))
	}
}

// applyManifest seeds registry admins, factory origins, kinds and pairings
// from the YAML manifest. The first admin acts as the caller for every
// registration.
func applyManifest(node *core.Node, path string) error {
	manifest, err := registry.LoadManifest(path)
	if err != nil {
		return err
	}
	admins := make([][20]byte, 0, len(manifest.Admins))
	for _, raw := range manifest.Admins {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("manifest admin %q: %w", raw, err)
		}
		admins = append(admins, addr.Bytes())
	}
	for _, admin := range admins {
		for _, role := range []string{registry.RoleAdmin, campaign.RoleFactoryAdmin} {
			if err := node.State().GrantRole(role, admin); err != nil {
				return fmt.Errorf("grant %s: %w", role, err)
			}
		}
	}
	if len(admins) == 0 {
		if len(manifest.ActivityKinds) > 0 || len(manifest.RewardKinds) > 0 || len(manifest.Origins) > 0 {
			return fmt.Errorf("manifest declares kinds or origins but no admins")
		}
		return nil
	}
	caller := admins[0]
	if err := node.Registry().Apply(caller, manifest); err != nil {
		return err
	}
	for _, raw := range manifest.Origins {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("manifest origin %q: %w", raw, err)
		}
		if err := node.Factory().SetOriginAuthorized(caller, addr.Bytes(), true); err != nil {
			return fmt.Errorf("authorize origin %q: %w", raw, err)
		}
	}
	return nil
}

func buildGateway(cfg gwconfig.Config, rpcServer *rpc.Server) http.Handler {
	limits := make(map[string]middleware.RateLimit, len(cfg.RateLimits))
	for _, limit := range cfg.RateLimits {
		limits[limit.ID] = middleware.RateLimit{
			RatePerSecond: limit.RatePerSecond,
			Burst:         limit.Burst,
			DefaultTokens: limit.DefaultTokens,
			Tokens:        limit.Tokens,
		}
	}
	return routes.New(routes.Config{
		RPC:    rpcServer,
		Events: http.HandlerFunc(rpcServer.HandleEvents),
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ScopeClaim: cfg.Auth.ScopeClaim,
			ClockSkew:  cfg.Auth.ClockSkew,
		}, nil),
		RateLimiter: middleware.NewRateLimiter(limits, nil),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName:   cfg.Observability.ServiceName,
			MetricsPrefix: cfg.Observability.MetricsPrefix,
			LogRequests:   cfg.Observability.LogRequests,
			Enabled:       cfg.Observability.Metrics || cfg.Observability.Tracing,
		}, nil),
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
		},
	})
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
