package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"tailscale.com/tsweb"

	"github.com/banshee-data/phoenix.tracksim/internal/api"
	"github.com/banshee-data/phoenix.tracksim/internal/config"
	"github.com/banshee-data/phoenix.tracksim/internal/db"
	"github.com/banshee-data/phoenix.tracksim/internal/feed"
	"github.com/banshee-data/phoenix.tracksim/internal/monitor"
	"github.com/banshee-data/phoenix.tracksim/internal/monitoring"
	"github.com/banshee-data/phoenix.tracksim/internal/sim"
	"github.com/banshee-data/phoenix.tracksim/internal/timeutil"
	"github.com/banshee-data/phoenix.tracksim/internal/version"
)

var (
	listen       = flag.String("listen", ":8000", "Listen address")
	configFile   = flag.String("config", "", "JSON overrides file applied on top of the environment")
	logFile      = flag.String("log-file", "", "Also write logs to this file, rotated")
	dbPath       = flag.String("db-path", "", "Platform catalog database (overrides DATABASE_PATH)")
	feedUDP      = flag.String("feed-udp", "", "Publish records to this UDP host:port")
	feedSerial   = flag.String("feed-serial", "", "Publish records to this serial port")
	feedBaud     = flag.Int("feed-baud", feed.DefaultPortOptions().BaudRate, "Baud rate for -feed-serial")
	feedPcap     = flag.String("feed-pcap", "", "Record published records to this pcap file")
	feedInterval = flag.Duration("feed-interval", 0, "Publish interval (0 keeps the configured interval)")
	cacheTTL     = flag.Duration("profile-cache-ttl", db.DefaultProfileCacheTTL, "How long platform profiles stay cached")
)

const profileCacheSize = 256

func main() {
	flag.Usage = printUsage
	flag.Parse()

	switch flag.Arg(0) {
	case "":
	case "version":
		fmt.Printf("tracksim %s\n", version.Current())
		return
	case "migrate":
		settings, err := loadSettings()
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
		if err := db.RunMigrateCommand(os.Stdout, flag.Args()[1:], settings.DatabasePath); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	case "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", flag.Arg(0))
		printUsage()
		os.Exit(1)
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	if *logFile != "" {
		closer, err := monitoring.TeeStdLog(monitoring.DefaultLogFileOptions(*logFile))
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer func() {
			log.SetOutput(os.Stderr)
			closer.Close()
		}()
	}

	settings, err := loadSettings()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings); err != nil {
		log.Fatalf("tracksim: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

func printUsage() {
	fmt.Fprintf(flag.CommandLine.Output(), `tracksim - simulated radar track source

Usage:
  tracksim [flags]                serve the API, debug pages and feeds
  tracksim [flags] migrate <cmd>  manage the catalog schema and import platforms (see "migrate help")
  tracksim version                print the build version

Flags:
`)
	flag.PrintDefaults()
}

// loadSettings layers the environment, the -config file and the command line
// flags, in that order, and validates the result.
func loadSettings() (config.Settings, error) {
	settings := config.FromEnv(os.Getenv)

	if *configFile != "" {
		o, err := config.LoadOverrides(*configFile)
		if err != nil {
			return settings, err
		}
		settings = o.Apply(settings)
	}
	if *dbPath != "" {
		settings.DatabasePath = *dbPath
	}
	if *feedInterval > 0 {
		settings.FeedInterval = *feedInterval
	}
	return settings, settings.Validate()
}

func run(ctx context.Context, settings config.Settings) error {
	database, err := db.NewDB(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer database.Close()
	catalog := db.NewCatalog(database, profileCacheSize, *cacheTTL)

	clock := timeutil.RealClock{}
	simulator, err := sim.New(settings.SimConfig(clock))
	if err != nil {
		return err
	}
	log.Printf("tracksim %s: run %s, %d primary tracks", version.Current(), simulator.RunID(), settings.SimConfig(clock).GridSize())

	sinks, err := openSinks(clock)
	if err != nil {
		return err
	}
	publisher, err := feed.New(simulator, clock, settings.FeedInterval, sinks...)
	if err != nil {
		return err
	}
	defer publisher.Close()

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewServer(simulator, catalog, settings).Handler())

	debug := tsweb.Debugger(mux)
	debug.KV("Build", version.Current().String())
	debug.KV("Run", simulator.RunID())
	if err := database.AttachAdminRoutes(debug); err != nil {
		return err
	}
	monitor.New(simulator, clock, settings.MaxRangeM()).AttachAdminRoutes(debug)
	publisher.AttachAdminRoutes(debug)

	server := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			return server.Close()
		}
		return nil
	})
	if len(sinks) > 0 {
		g.Go(func() error {
			return publisher.Run(ctx)
		})
	}
	return g.Wait()
}

// openSinks opens every sink named on the command line. Sinks opened before
// a failure are closed again.
func openSinks(clock timeutil.Clock) ([]feed.Sink, error) {
	var sinks []feed.Sink
	fail := func(err error) ([]feed.Sink, error) {
		for _, s := range sinks {
			s.Close()
		}
		return nil, err
	}

	if *feedUDP != "" {
		s, err := feed.NewUDPSink(*feedUDP)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if *feedSerial != "" {
		opts := feed.DefaultPortOptions()
		opts.BaudRate = *feedBaud
		s, err := feed.OpenSerialSink(*feedSerial, opts)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if *feedPcap != "" {
		s, err := feed.CreateCaptureSink(*feedPcap, clock.Now)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}
