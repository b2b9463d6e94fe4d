package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seqrpay/internal/keys"
	"seqrpay/internal/keys/directory"
	"seqrpay/internal/keys/securestore"
	"seqrpay/internal/payment/signer"
	"seqrpay/internal/payment/verifier"
	"seqrpay/internal/platform/config"
	"seqrpay/internal/platform/health"
	"seqrpay/internal/platform/metrics"
	"seqrpay/internal/platform/tracer"
	"seqrpay/internal/scan/evaluation"
	"seqrpay/internal/scan/heuristic"
	"seqrpay/internal/scan/reputation"
	httptransport "seqrpay/internal/transport/http"
)

// devPassphrase protects dev keystores only; config validation forbids an
// empty passphrase anywhere else.
const devPassphrase = "seqrpay-dev-passphrase"

type application struct {
	router http.Handler
}

func build(cfg config.Server, log *slog.Logger) (*application, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	tr := tracer.NewOTel()

	passphrase := cfg.KeystorePassphrase
	if passphrase == "" && cfg.IsDev() {
		log.Warn("using development keystore passphrase")
		passphrase = devPassphrase
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := securestore.NewFileStore(filepath.Join(cfg.DataDir, "keys"), passphrase)
	if err != nil {
		return nil, fmt.Errorf("open secure store: %w", err)
	}
	index := keys.NewFileIndex(filepath.Join(cfg.DataDir, "public_keys.json"), keys.WithIndexLogger(log))

	var dir keys.Directory
	managerOpts := []keys.Option{keys.WithMetrics(m), keys.WithTracer(tr), keys.WithLogger(log)}
	if cfg.Directory.URL != "" {
		dir = directory.NewClient(cfg.Directory.URL, cfg.Directory.Timeout,
			directory.WithTracer(tr), directory.WithLogger(log))
		managerOpts = append(managerOpts, keys.WithDirectory(dir))
	}
	manager := keys.NewManager(store, index, managerOpts...)
	if dir == nil {
		dir = directory.NewLocalStub(manager, log)
	}

	paymentSigner := signer.New(manager,
		signer.WithMetrics(m), signer.WithTracer(tr), signer.WithLogger(log))
	sigVerifier := verifier.New(
		verifier.WithMetrics(m), verifier.WithTracer(tr), verifier.WithLogger(log))

	reputationClient := reputation.New(reputation.Config{
		BaseURL:        cfg.Reputation.BaseURL,
		APIKey:         cfg.Reputation.APIKey,
		Timeout:        cfg.Reputation.Timeout,
		PollInterval:   cfg.Reputation.PollInterval,
		RequestsPerMin: cfg.Reputation.RequestsPerMin,
	}, reputation.WithTracer(tr), reputation.WithLogger(log))
	if cfg.Reputation.APIKey == "" {
		log.Warn("reputation api key not set; url scans will be denied")
	}

	evalOpts := []evaluation.Option{
		evaluation.WithReputation(reputationClient),
		evaluation.WithTimeouts(evaluation.Timeouts{
			Reputation: cfg.Reputation.Timeout,
			Heuristic:  cfg.Heuristic.Timeout,
		}),
		evaluation.WithMetrics(m),
		evaluation.WithTracer(tr),
		evaluation.WithLogger(log),
	}
	if cfg.Heuristic.APIKey != "" {
		evalOpts = append(evalOpts, evaluation.WithHeuristic(heuristic.New(heuristic.Config{
			BaseURL: cfg.Heuristic.BaseURL,
			Model:   cfg.Heuristic.Model,
			APIKey:  cfg.Heuristic.APIKey,
			Timeout: cfg.Heuristic.Timeout,
		}, heuristic.WithTracer(tr), heuristic.WithLogger(log))))
	} else {
		log.Info("heuristic api key not set; heuristic slot will pass automatically")
	}
	evaluator := evaluation.New(sigVerifier, dir, evalOpts...)

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("keystore", func(context.Context) error {
		_, err := os.Stat(cfg.DataDir)
		return err
	})

	handler := httptransport.New(paymentSigner, evaluator, manager, log,
		httptransport.WithEvaluationTimeout(cfg.EvaluationTimeout))
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Handler:        handler,
		Health:         healthHandler,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		RequestTimeout: cfg.EvaluationTimeout + 5*time.Second,
		Logger:         log,
	})
	return &application{router: router}, nil
}
