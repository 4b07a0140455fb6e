// keybridged - global keyboard capture bridge daemon
//
//	keybridged run       Start capture and dispatch
//	keybridged drops     Query a running daemon's drop counter (Linux)
//	keybridged init      Write a default config file
//	keybridged version   Print version
//
// The daemon installs the platform keyboard capture adapter (a low-level
// hook on Windows, an X11 root-window listener on Linux), relays every
// key transition through a bounded non-blocking channel, and forwards the
// events in order to the configured handler.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"keybridge/internal/bridge"
	"keybridge/internal/capture"
	"keybridge/internal/config"
	"keybridge/internal/dropwatch"
	"keybridge/internal/event"
	"keybridge/internal/ipc"
	"keybridge/internal/logging"
	"keybridge/internal/sequence"
)

const version = "0.3.0"

func main() {
	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "run":
		cmdRun(args)
	case "drops":
		cmdDrops()
	case "init":
		cmdInit()
	case "version":
		fmt.Println("keybridged", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`keybridged - global keyboard capture bridge

USAGE:
    keybridged <command> [options]

COMMANDS:
    run        Start capture and dispatch (default)
    drops      Query a running daemon's drop counter (Linux, D-Bus)
    init       Write a default config file
    version    Print version
    help       Show this help message

RUN OPTIONS:
    -config <path>    Config file (default: platform config dir)
    -simulate         Use the simulated capture adapter

Overflow never blocks capture: when the channel is full the event is
dropped and counted. Poll the counter with 'keybridged drops' or watch
the daemon log.`)
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", config.ConfigPath(), "config file path")
	simulate := fs.Bool("simulate", false, "use the simulated capture adapter")
	fs.Parse(args)

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	defer loader.Close()

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	format, _ := logging.ParseFormat(cfg.Logging.Format)
	log, err := logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "keybridged",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}

	// Hot reload: a rewritten config file is picked up without a
	// restart. Capacity and timing are fixed at construction, so a
	// reload only takes effect for values read on demand; the log makes
	// the restart requirement visible.
	loader.OnChange(func(newCfg *config.Config) {
		log.Info("config reloaded",
			"capacity", newCfg.Channel.Capacity,
			"note", "channel and timing changes apply on restart")
	})
	if err := loader.Watch(); err != nil {
		log.Warn("config watch unavailable", "err", err)
	} else {
		go func() {
			for err := range loader.Errors() {
				log.Warn("config reload failed", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The handler stands in for the foreign runtime's deliver-event
	// entry point: one call per event, in order.
	handler := bridge.HandlerFunc(func(ev event.Event) error {
		log.Debug("key event",
			"code", ev.Code, "type", ev.Type.String(),
			"shift", ev.Shift, "ctrl", ev.Ctrl, "alt", ev.Alt)
		return nil
	})

	br, err := bridge.New(handler, bridge.Options{
		Capacity:     cfg.Channel.Capacity,
		PollInterval: cfg.Dispatch.PollInterval(),
		DrainTimeout: cfg.Dispatch.DrainTimeout(),
		StopTimeout:  cfg.Dispatch.StopTimeout(),
		Logger:       log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating bridge: %v\n", err)
		os.Exit(1)
	}

	var adapter capture.Capture
	if *simulate {
		adapter = capture.NewSimulated(br)
	} else {
		adapter = capture.New(br, capture.Options{
			PollInterval: cfg.Capture.PollInterval(),
			Logger:       log,
		})
	}

	if ok, reason := adapter.Available(); !ok {
		fmt.Fprintf(os.Stderr, "Keyboard capture unavailable: %s\n", reason)
		os.Exit(1)
	}

	if err := br.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting dispatch: %v\n", err)
		os.Exit(1)
	}
	if err := adapter.Start(ctx); err != nil {
		// Registration failed: leave nothing running against a channel
		// nobody will feed.
		br.Stop()
		fmt.Fprintf(os.Stderr, "Error starting capture: %v\n", err)
		os.Exit(1)
	}

	log.Info("keybridged started",
		"capacity", br.Capacity(),
		"modifiers", adapter.SupportsModifiers())

	if cfg.Sequence.Enabled {
		startSequence(cfg, br, log)
	}

	watcher := dropwatch.New(br, cfg.DropWatch.Interval(), func(total int64) {
		log.Warn("dropped events", "total", total)
	})
	if cfg.DropWatch.Enabled {
		watcher.Start(ctx)
	}

	var svc *ipc.Service
	if cfg.IPC.DBusEnabled {
		svc, err = ipc.Start(br)
		if err != nil {
			log.Warn("D-Bus export unavailable", "err", err)
		} else {
			log.Info("D-Bus stats exported")
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	cancel()
	if err := adapter.Stop(); err != nil {
		log.Error("capture stop failed", "err", err)
	}
	if cfg.DropWatch.Enabled {
		watcher.Stop()
	}
	if err := br.Stop(); err != nil {
		log.Error("dispatch stop failed", "err", err)
	}
	if svc != nil {
		svc.Close()
	}

	stats := br.Stats()
	log.Info("final stats",
		"pushed", stats.Pushed,
		"delivered", stats.Delivered,
		"dropped", stats.Dropped,
		"handler_errors", stats.HandlerErrors)
}

// platformLayout picks the key code table matching the active capture
// adapter.
func platformLayout() *event.Layout {
	if runtime.GOOS == "windows" {
		return event.WindowsLayout()
	}
	return event.X11Layout()
}

// startSequence wires the sequence manager to a release-only bridge
// subscription.
func startSequence(cfg *config.Config, br *bridge.Bridge, log *slog.Logger) {
	layout := platformLayout()
	mgr, err := sequence.New(sequence.Options{
		Layout:  layout,
		Timeout: cfg.Sequence.Timeout(),
		Rules: []sequence.Rule{
			func(ev event.Event) bool {
				_, ok := layout.Char(ev.Code)
				return ok
			},
		},
		OnComplete: func(seq string) {
			log.Info("sequence completed", "value", seq, "len", len(seq))
		},
	})
	if err != nil {
		log.Warn("sequence manager disabled", "err", err)
		return
	}

	ch := make(chan event.Event, 64)
	if err := br.SubscribeReleased("sequence", ch); err != nil {
		log.Warn("sequence subscription failed", "err", err)
		return
	}
	go mgr.Run(ch)
}

func cmdDrops() {
	dropped, err := ipc.QueryDropped()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying daemon: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(dropped)
}

func cmdInit() {
	path := config.ConfigPath()
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "Config already exists: %s\n", path)
		os.Exit(1)
	}
	if err := config.Save(config.DefaultConfig(), path); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Wrote", path)
}
