// Command lumend runs the audio-responsive lighting engine: it analyses a
// demo tone or a raw PCM stream, classifies the content, detects musical
// highlights and drives a pixel/DMX sink at a fixed frame rate, degrading
// safely when the input goes away.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
	"github.com/daesuck/AI-Audio-Responsive-Production/engine/config"
	"github.com/daesuck/AI-Audio-Responsive-Production/logging"
	"github.com/daesuck/AI-Audio-Responsive-Production/observe"
	"github.com/daesuck/AI-Audio-Responsive-Production/sink/netout"
	"github.com/daesuck/AI-Audio-Responsive-Production/sink/sim"
	"github.com/daesuck/AI-Audio-Responsive-Production/source"
)

var version = "0.1.0"

// CLI defines the command-line interface
type CLI struct {
	Version  bool    `short:"v" help:"Show version information"`
	Config   string  `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	Sink     string  `default:"pixel" enum:"pixel,dmx,udp,artnet" help:"Output sink: pixel/dmx simulators or udp/artnet senders"`
	Listen   string  `default:":8090" help:"Status and metrics listen address (empty disables the server)"`
	DemoFreq float64 `default:"440" help:"Demo sine frequency in Hz"`
	PCM      string  `type:"path" help:"Raw PCM file (s16le mono at the configured sample rate) to play instead of the demo tone"`
	Addr     string  `default:"127.0.0.1:9000" help:"Destination address for network sinks"`
	Universe uint16  `default:"0" help:"DMX universe for the artnet sink"`
	Transmit bool    `help:"Actually transmit on network sinks instead of dry-run"`
	Debug    bool    `help:"Enable debug logging"`
}

func main() {
	cli := &CLI{}
	kong.Parse(cli,
		kong.Name("lumend"),
		kong.Description("Audio-responsive lighting engine daemon"),
		kong.UsageOnError(),
	)

	if cli.Version {
		fmt.Println("lumend", version)
		return
	}

	if cli.Debug {
		logging.SetLevel(logging.DebugLevel)
	}
	logger := logging.WithFields(logging.Fields{"component": "lumend"})

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		logger.Fatal(err, "invalid configuration")
	}

	gen, err := buildGenerator(cli, cfg)
	if err != nil {
		logger.Fatal(err, "audio source setup failed")
	}

	out, err := buildSink(cli)
	if err != nil {
		logger.Fatal(err, "sink setup failed")
	}

	queue := source.NewQueue(cfg.Loop.QueueDepth)
	eng, err := engine.New(cfg, queue, out)
	if err != nil {
		logger.Fatal(err, "engine setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, "lumend", version)
	if err != nil {
		logger.Fatal(err, "metrics setup failed")
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logger.Warn("metrics shutdown", logging.Fields{"error": err.Error()})
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		logger.Fatal(err, "metric instruments failed")
	}
	eng.SetMetrics(metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop() // a finished source (PCM end) winds the whole daemon down
		return source.Pump(gctx, gen, queue, cfg.FrameSamples(), cfg.TickPeriod())
	})
	g.Go(func() error {
		defer out.Close()
		return eng.Run(gctx)
	})
	if cli.Listen != "" {
		statusSrv := observe.NewStatusServer(cli.Listen, eng.Status)
		g.Go(func() error {
			return statusSrv.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal(err, "daemon failed")
	}
	logger.Info("daemon stopped", logging.Fields{"frames": eng.Status().FramesRendered})
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func buildGenerator(cli *CLI, cfg *config.Config) (source.Generator, error) {
	if cli.PCM == "" {
		return source.NewSine(cli.DemoFreq, 0.3, cfg.Audio.SampleRate), nil
	}

	raw, err := os.ReadFile(cli.PCM)
	if err != nil {
		return nil, fmt.Errorf("read pcm %q: %w", cli.PCM, err)
	}

	samples := make([]float64, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float64(v) / 32768.0
	}
	return source.NewBuffer(samples, cfg.Audio.SampleRate), nil
}

func buildSink(cli *CLI) (engine.Sink, error) {
	switch cli.Sink {
	case "pixel":
		return sim.NewPixel(), nil
	case "dmx":
		return sim.NewDMX(int(cli.Universe)), nil
	case "udp":
		return netout.NewUDPPixel(netout.UDPPixelOptions{
			Addr:   cli.Addr,
			DryRun: !cli.Transmit,
		})
	case "artnet":
		return netout.NewArtNet(netout.ArtNetOptions{
			Addr:     cli.Addr,
			Universe: cli.Universe,
			DryRun:   !cli.Transmit,
		})
	default:
		return nil, fmt.Errorf("unknown sink %q", cli.Sink)
	}
}
