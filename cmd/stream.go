package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alejoacosta74/coinbase-api/client"
	"github.com/alejoacosta74/coinbase-api/internal/auth"
	"github.com/alejoacosta74/coinbase-api/internal/config"
	"github.com/alejoacosta74/coinbase-api/internal/kafka"
	"github.com/alejoacosta74/coinbase-api/internal/metrics"
	"github.com/alejoacosta74/coinbase-api/internal/stats"
	"github.com/alejoacosta74/coinbase-api/internal/system"
	"github.com/alejoacosta74/coinbase-api/internal/ui"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// errConnectionLost ends the stream when the venue drops the session.
var errConnectionLost = errors.New("websocket connection lost")

// streamCmd represents the stream command
var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream channels from the websocket feed",
	Long: `Connect to the websocket feed, subscribe the configured products to the
configured channels and print, export or forward every event until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)

	flags := streamCmd.Flags()
	flags.StringSlice("products", nil, "products to subscribe (e.g. BTC-USD,ETH-USD)")
	flags.StringSlice("channels", nil, "channels to subscribe (e.g. ticker,level2)")
	flags.Bool("print", true, "print events to stdout")
	flags.Bool("metrics", false, "serve Prometheus metrics")
	flags.String("metrics-addr", ":2112", "metrics listen address")
	flags.Bool("kafka", false, "forward raw frames to Kafka")
	flags.StringSlice("kafka-brokers", nil, "Kafka brokers")
	flags.String("kafka-topic-prefix", "coinbase", "Kafka topic prefix")
	flags.String("cpuprofile", "", "write cpu profile to file")
	flags.String("memprofile", "", "write memory profile to file")
	flags.Duration("stats-interval", 0, "log runtime stats at this interval (0 disables)")

	bindFlags(flags.Lookup, map[string]string{
		"stream.products":       "products",
		"stream.channels":       "channels",
		"stream.print":          "print",
		"metrics.enabled":       "metrics",
		"metrics.addr":          "metrics-addr",
		"kafka.enabled":         "kafka",
		"kafka.brokers":         "kafka-brokers",
		"kafka.topic_prefix":    "kafka-topic-prefix",
		"system.cpuprofile":     "cpuprofile",
		"system.memprofile":     "memprofile",
		"system.stats_interval": "stats-interval",
	})
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	restore := system.FromConfig(cfg.System).Apply()
	defer restore()

	stopProfiling, err := system.StartProfiling(cfg.System.CPUProfile)
	if err != nil {
		return err
	}
	defer func() {
		if err := stopProfiling(); err != nil {
			log.WithError(err).Error("Failed to stop cpu profile")
		}
		if err := system.WriteHeapProfile(cfg.System.MemProfile); err != nil {
			log.WithError(err).Error("Failed to write memory profile")
		}
	}()

	// Context for graceful shutdown
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := stream(ctx, cfg, cmd.OutOrStdout()); err != nil {
		return err
	}
	log.Info("Client shutdown")
	return nil
}

// stream runs the client and its side services until ctx is done or one of
// them fails. Kafka is checked before any goroutine starts, so a failed
// check leaves nothing running.
func stream(ctx context.Context, cfg *config.Config, out io.Writer) error {
	var (
		signer auth.Signer
		err    error
	)
	if cfg.HasCredentials() {
		if signer, err = auth.NewSigner(cfg.Credentials()); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)
	metrics.NewSystemCollector(reg)

	c := client.New(cfg.WS.URL, signer,
		client.WithShutdownTimeout(cfg.WS.ShutdownTimeout),
		client.WithObserver(recorder),
	)

	if cfg.Kafka.Enabled {
		sink, stop, err := startKafka(ctx, cfg.Kafka, recorder)
		if err != nil {
			return err
		}
		defer stop()
		c.OnRawMessage(func(m client.RawMessage) {
			if m.Type == websocket.TextMessage {
				sink.Publish(m.Payload)
			}
		})
	}

	if cfg.Stream.Print {
		ui.NewPrinter(out).Attach(c)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr, reg)
		g.Go(func() error { return srv.Start(gctx) })
	}

	if cfg.System.StatsInterval > 0 {
		reporter := stats.NewReporter(cfg.System.StatsInterval, stats.WithSource(func() logrus.Fields {
			return logrus.Fields{
				"state":         c.State().String(),
				"subscriptions": len(c.Subscriptions()),
			}
		}))
		g.Go(func() error { return reporter.Start(gctx) })
	}

	g.Go(func() error { return runClient(gctx, c, cfg) })

	return g.Wait()
}

// runClient connects, subscribes and holds the session until ctx is done
// or the venue closes it.
func runClient(ctx context.Context, c *client.Client, cfg *config.Config) error {
	lost := make(chan error, 1)
	handle := c.OnDisconnected(func(err error) {
		select {
		case lost <- err:
		default:
		}
	})
	defer handle.Unsubscribe()

	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.WS.ShutdownTimeout+time.Second)
		defer cancel()
		if err := c.Close(closeCtx); err != nil {
			log.WithError(err).Warn("Failed to close client")
		}
	}()

	for _, channel := range cfg.Stream.Channels {
		if err := c.Subscribe(ctx, cfg.Stream.Products, channel); err != nil {
			return err
		}
	}
	log.Infof("Streaming %v for %v", cfg.Stream.Channels, cfg.Stream.Products)

	select {
	case <-ctx.Done():
		return nil
	case err := <-lost:
		if err == nil {
			return errConnectionLost
		}
		return fmt.Errorf("%w: %v", errConnectionLost, err)
	}
}

// startKafka checks the cluster, starts the producer pool and the frame
// sink. stop shuts both down.
func startKafka(ctx context.Context, cfg config.KafkaConfig, recorder *metrics.Recorder) (*kafka.FrameSink, func(), error) {
	if err := kafka.CheckClusterAvailability(cfg.Brokers, 5*time.Second); err != nil {
		return nil, nil, fmt.Errorf("kafka cluster unavailable: %w", err)
	}

	pool, err := kafka.NewProducerPool(kafka.ProducerConfig{
		BrokerList: cfg.Brokers,
		PoolSize:   cfg.PoolSize,
		ClientID:   cfg.ClientID,
	}, kafka.WithObserver(recorder))
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Start(); err != nil {
		return nil, nil, err
	}

	sink := kafka.NewFrameSink(pool, cfg.TopicPrefix,
		kafka.WithQueueSize(cfg.QueueSize),
		kafka.WithWorkers(cfg.Workers),
		kafka.WithSinkObserver(recorder),
	)
	sink.Start(ctx)

	stop := func() {
		sink.Stop()
		if err := pool.Stop(); err != nil {
			log.WithError(err).Error("Failed to stop producer pool")
		}
	}
	return sink, stop, nil
}
