package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mocap-track-go/internal/config"
	"mocap-track-go/internal/natnet"
	"mocap-track-go/internal/server"
	"mocap-track-go/internal/simulator"
	"mocap-track-go/internal/tracker"
)

func main() {
	defaults := config.Default()
	var (
		configPath      = flag.String("config", "", "Optional YAML config file; flags override its values")
		port            = flag.Int("port", defaults.Port, "HTTP port for the query API")
		clientAddress   = flag.String("client-address", defaults.ClientAddress, "Local interface address (multicast)")
		serverAddress   = flag.String("server-address", defaults.ServerAddress, "Motion capture server address")
		unicast         = flag.Bool("unicast", defaults.Unicast, "Use unicast instead of multicast")
		dataPort        = flag.Int("data-port", defaults.DataPort, "Frame data port")
		multicastGroup  = flag.String("multicast-group", defaults.MulticastGroup, "Multicast group address")
		settleDelay     = flag.Duration("settle-delay", defaults.SettleDelay, "Wait after starting the client before checking the connection")
		pollInterval    = flag.Duration("poll-interval", defaults.PollInterval, "Accessor polling interval")
		timeout         = flag.Duration("timeout", defaults.Timeout, "Maximum wait for a query")
		ingestLogEvery  = flag.Int("ingest-log-every", defaults.IngestLogEvery, "Log every Nth frame decode error")
		debug           = flag.Bool("debug", defaults.Debug, "Run with simulated data")
		debugRate       = flag.Float64("debug-rate", defaults.DebugRate, "Simulated frame rate (frames/sec)")
		consoleInterval = flag.Duration("console-interval", defaults.ConsoleInterval, "Print tracking data every interval (0 disables)")
		referenceID     = flag.Int("reference-id", defaults.ReferenceID, "Reference rigid body for the console")
		trackingID      = flag.Int("tracking-id", defaults.TrackingID, "Tracked rigid body for the console")
	)
	flag.Parse()

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "client-address":
			cfg.ClientAddress = *clientAddress
		case "server-address":
			cfg.ServerAddress = *serverAddress
		case "unicast":
			cfg.Unicast = *unicast
		case "data-port":
			cfg.DataPort = *dataPort
		case "multicast-group":
			cfg.MulticastGroup = *multicastGroup
		case "settle-delay":
			cfg.SettleDelay = *settleDelay
		case "poll-interval":
			cfg.PollInterval = *pollInterval
		case "timeout":
			cfg.Timeout = *timeout
		case "ingest-log-every":
			cfg.IngestLogEvery = *ingestLogEvery
		case "debug":
			cfg.Debug = *debug
		case "debug-rate":
			cfg.DebugRate = *debugRate
		case "console-interval":
			cfg.ConsoleInterval = *consoleInterval
		case "reference-id":
			cfg.ReferenceID = *referenceID
		case "tracking-id":
			cfg.TrackingID = *trackingID
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trk := tracker.New(tracker.Options{
		ClientAddress: cfg.ClientAddress,
		ServerAddress: cfg.ServerAddress,
		Unicast:       cfg.Unicast,
		NewClient:     clientFactory(cfg),
		SettleDelay:   cfg.SettleDelay,
		PollInterval:  cfg.PollInterval,
	})
	if err := trk.Start(); err != nil {
		log.Fatalf("start tracker: %v", err)
	}
	defer trk.Stop()

	if cfg.ConsoleInterval > 0 {
		go consoleLoop(ctx, trk, cfg)
	}

	log.Printf("Serving query API at http://localhost:%d\n", cfg.Port)
	if err := server.Run(ctx, cfg, trk); err != nil {
		log.Printf("server stopped: %v", err)
	}
}

func clientFactory(cfg config.AppConfig) func() natnet.Client {
	if cfg.Debug {
		sim := simulator.DefaultConfig()
		sim.Rate = cfg.DebugRate
		return func() natnet.Client { return simulator.NewClient(sim) }
	}
	return func() natnet.Client {
		return natnet.NewZMQClient(natnet.ZMQOptions{
			DataPort:       cfg.DataPort,
			MulticastGroup: cfg.MulticastGroup,
			LogEvery:       cfg.IngestLogEvery,
		})
	}
}
