package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"hearaid/cmd"
	"hearaid/internal/audio"
	"hearaid/internal/config"
	applog "hearaid/internal/log"
	"hearaid/internal/transport"
	"hearaid/internal/transport/udp"
	"hearaid/internal/tui"
	"hearaid/pkg/build"
)

// main is the entry point for the hearing-aid application.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Initialize PortAudio
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the duplex audio engine
//   - Start recording and metric publishers if enabled
//   - Run the monitor UI or block on signals
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop publishers and recording
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	build.Initialize()

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the audio callback (time-critical)
	// - One thread for UI and I/O operations
	runtime.GOMAXPROCS(2)

	options, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	cfg := options.Config

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	// One-off commands that do not need the audio engine.
	switch options.Command {
	case "presets":
		fmt.Printf("Available presets: %s\n", config.PresetNames())
		return
	case "process":
		if err := audio.ProcessWAV(cfg, options.ProcessInput, options.ProcessOutput); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// Initialize PortAudio subsystem
	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	if options.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	engine, err := audio.NewEngine(cfg)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	// CRITICAL: Start of real-time audio processing
	// The first call to StartStream triggers PortAudio to begin calling
	// the callback function, marking the start of the hot path
	if err := engine.StartStream(); err != nil {
		applog.Fatalf("%v", err)
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			applog.Fatalf("%v", err)
		}
	}

	var closers []interface{ Close() error }

	if cfg.Monitor.WSEnabled {
		wsTransport := transport.NewWebSocketTransport(cfg.Monitor.WSAddr)
		wsPublisher, err := transport.NewPublisher(cfg.Monitor.UDPInterval, wsTransport, engine)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		wsPublisher.Start()
		closers = append(closers, wsPublisher, wsTransport)
	}

	if cfg.Monitor.UDPEnabled {
		sender, err := udp.NewSender(cfg.Monitor.UDPTarget)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		udpPublisher, err := udp.NewPublisher(cfg.Monitor.UDPInterval, sender, engine)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		udpPublisher.Start()
		closers = append(closers, udpPublisher, sender)
	}

	if cfg.Monitor.TUI {
		// The monitor owns the foreground until the user quits.
		if err := tui.StartMonitorUI(engine); err != nil {
			applog.Errorf("monitor failed: %v", err)
		}
	} else {
		fmt.Printf("%s running. Press Ctrl+C to stop.\n", build.GetBuildFlags().Name)
		<-done
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	for _, c := range closers {
		if err := c.Close(); err != nil {
			applog.Errorf("shutdown: %v", err)
		}
	}

	if cfg.Recording.Enabled {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("Error stopping recording: %v", err)
		}
		fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
	}

	if err := engine.Close(); err != nil {
		applog.Errorf("Error closing audio engine: %v", err)
	}
}
