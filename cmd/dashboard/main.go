package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nocturnalismee/server-monitoring-dashboard/internal/config"
	"github.com/nocturnalismee/server-monitoring-dashboard/internal/database"
	"github.com/nocturnalismee/server-monitoring-dashboard/internal/metrics"
	"github.com/nocturnalismee/server-monitoring-dashboard/internal/web"
)

const version = "2.0.0"

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Server Monitoring Dashboard v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	setupLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"config_file": *configFile,
		"port":        cfg.Server.Port,
		"servers":     len(cfg.Servers),
	}).Info("Starting monitoring dashboard")

	store, err := database.NewBoltStore(cfg.Database.Path)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := syncRegistry(ctx, store, cfg.Servers); err != nil {
		logrus.Fatalf("Failed to sync server registry: %v", err)
	}

	metricsCollector := metrics.NewCollector(store, cfg.Dashboard.OfflineTimeout)

	webServer := web.NewServer(cfg, store, metricsCollector)
	go webServer.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("Received shutdown signal")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := webServer.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Failed to stop web server cleanly")
	}
	logrus.Info("Shutdown complete")
}

// syncRegistry applies the configured server entries to the stored
// registry: existing registrations (matched by id, then hostname) are
// updated in place, new ones are created with a fresh id.
func syncRegistry(ctx context.Context, store database.Store, entries []config.ServerEntry) error {
	existing, err := store.GetServers(ctx, database.ServerFilters{})
	if err != nil {
		return err
	}

	byHostname := make(map[string]database.Server, len(existing))
	for _, server := range existing {
		byHostname[server.Hostname] = server
	}

	for _, entry := range entries {
		var current *database.Server
		if entry.ID != "" {
			server, err := store.GetServer(ctx, entry.ID)
			if err != nil && !errors.Is(err, database.ErrServerNotFound) {
				return err
			}
			current = server
		}
		if current == nil {
			if server, ok := byHostname[entry.Hostname]; ok {
				current = &server
			}
		}

		if current == nil {
			server := &database.Server{
				ID:       entry.ID,
				Name:     entry.Name,
				Hostname: entry.Hostname,
				APIKey:   entry.APIKey,
				Location: entry.Location,
				Provider: entry.Provider,
				Type:     entry.Type,
				Active:   entry.Active,
			}
			if err := store.CreateServer(ctx, server); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"server":    server.Name,
				"server_id": server.ID,
			}).Info("Registered server from config")
			continue
		}

		current.Name = entry.Name
		current.Hostname = entry.Hostname
		current.APIKey = entry.APIKey
		current.Location = entry.Location
		current.Provider = entry.Provider
		current.Type = entry.Type
		current.Active = entry.Active
		if err := store.UpdateServer(ctx, current); err != nil {
			return err
		}
	}

	return nil
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
