package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/averyc/sentinel/internal/admin"
	"github.com/averyc/sentinel/internal/collector"
	"github.com/averyc/sentinel/internal/logging"
	"github.com/averyc/sentinel/internal/newsapi"
)

var (
	serveAddr     string
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic collector with the admin HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "admin listen address (default from config)")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 0, "collection interval (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, st, taxonomy, err := setup()
	if err != nil {
		return err
	}
	defer st.Close()
	defer logging.Close()

	if err := cfg.ValidateForCollection(); err != nil {
		return err
	}

	addr := cfg.Admin.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	interval := time.Duration(cfg.Collection.IntervalMinutes) * time.Minute
	if serveInterval > 0 {
		interval = serveInterval
	}

	logger := logging.WithPrefix("serve")
	client := newsapi.NewClient(cfg.News.APIKey, cfg.News.BaseURL)
	c := collector.New(st, client, taxonomy, logging.WithPrefix("collector"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("NewsAPI unreachable at startup", "error", err)
	}
	cancelPing()

	sched := collector.NewScheduler(c, interval, cfg.Collection.LookbackHours)
	sched.Start(ctx)

	adm := admin.New(c, st, cfg.Admin.Token, true, logging.WithPrefix("admin"))
	httpSrv := &http.Server{Addr: addr, Handler: adm.Router()}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("admin API listening", "addr", addr)
		srvErr <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			sched.Wait()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	sched.Wait()
	logger.Info("stopped")
	return nil
}
