package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/reactix/pkg/config"
	"github.com/cuemby/reactix/pkg/log"
	"github.com/cuemby/reactix/pkg/metrics"
	"github.com/cuemby/reactix/pkg/scheduler"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build and execute a topology manifest to completion or timeout",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringP("file", "f", "", "Topology manifest YAML file (required)")
	_ = runCmd.MarkFlagRequired("file")
	runCmd.Flags().String("metrics-addr", "", "Address to serve /metrics, /health, /ready, /live on (disabled if empty)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	filename, _ := cmd.Flags().GetString("file")

	m, err := config.LoadManifest(filename)
	if err != nil {
		return err
	}

	b, err := config.Build(m)
	if err != nil {
		return fmt.Errorf("build topology: %w", err)
	}

	topo, err := b.Finish()
	if err != nil {
		return fmt.Errorf("finish topology: %w", err)
	}
	metrics.RegisterComponent("builder", true, "topology built")

	runID := uuid.NewString()
	logger := log.WithRunID(runID)
	logger.Info().Int("enclaves", len(topo.Envs)).Msg("starting run")

	if metricsAddr, _ := cmd.Flags().GetString("metrics-addr"); metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server exited")
			}
		}()
		logger.Info().Str("addr", metricsAddr).Msg("metrics/health endpoints listening")
	}

	enclaves := topo.Assemble()
	schedConfig := m.Scheduler.ToScheduler()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	metrics.RegisterComponent("scheduler", true, "running")
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if len(enclaves) == 1 {
			for key, enc := range enclaves {
				scheduler.New(key, enc, schedConfig).EventLoop()
			}
			return
		}
		scheduler.ExecuteEnclaves(enclaves, schedConfig)
	}()

	select {
	case <-finished:
	case <-sigCh:
		logger.Info().Msg("received interrupt, closing enclaves")
		for _, enc := range enclaves {
			enc.Close()
		}
		<-finished
	}

	logger.Info().Msg("run complete")
	return nil
}
