package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"davcal/internal/caldav"
	"davcal/internal/config"
	"davcal/internal/dateutil"
	appLog "davcal/internal/log"
	"davcal/internal/share"
	"davcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		conf.LogLevel = "debug"
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("davcal starting",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"log_level", conf.LogLevel,
		"refresh", conf.RefreshCron,
		"share_count", len(conf.Shares),
	)

	client, err := caldav.NewClient(conf.CalDAV)
	if err != nil {
		appLog.Error("failed to create CalDAV client", err)
		os.Exit(1)
	}

	srv := web.NewServer(conf, client, share.NewRegistry(conf.Shares))

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := startRefresh(ctx, conf, srv)
	if err != nil {
		appLog.Error("failed to schedule calendar refresh", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		<-scheduler.Stop().Done()
		os.Exit(1)
	}

	<-scheduler.Stop().Done()
	appLog.Info("davcal exiting")
}

// startRefresh keeps the cached calendar list warm on the configured cron
// schedule, evaluated in the configured timezone.
func startRefresh(ctx context.Context, conf *config.Config, srv *web.Server) (*cron.Cron, error) {
	loc, err := dateutil.LoadTimezone(conf.Timezone)
	if err != nil {
		appLog.Warn("config timezone invalid, scheduling in UTC", "timezone", conf.Timezone)
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	refresh := func() {
		refreshCtx, cancel := context.WithTimeout(ctx, time.Duration(conf.CalDAV.TimeoutSeconds)*time.Second*3)
		defer cancel()
		if err := srv.RefreshCalendars(refreshCtx); err != nil {
			appLog.Error("calendar refresh failed", err)
		}
	}
	if _, err := c.AddFunc(conf.RefreshCron, refresh); err != nil {
		return nil, err
	}
	c.Start()

	// Warm the cache once at startup without delaying the listener.
	go refresh()

	return c, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/davcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
