package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"hearaid/internal/config"
	"hearaid/pkg/build"
)

// Options is the parsed invocation: the resolved configuration plus
// the command to run and any positional arguments.
type Options struct {
	Config  *config.Config
	Command string // "run", "list", "presets" or "process"

	// Positional arguments for the process command.
	ProcessInput  string
	ProcessOutput string
}

func ParseArgs() (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{Command: "run"}

	var configPath string

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = "run"
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "List the available compression presets",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "presets"
		},
	}
	rootCmd.AddCommand(presetsCmd)

	processCmd := &cobra.Command{
		Use:   "process <input.wav> <output.wav>",
		Short: "Run the compressor over a WAV file instead of the live stream",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "process"
			options.ProcessInput = args[0]
			options.ProcessOutput = args[1]
		},
	}
	rootCmd.AddCommand(processCmd)

	// Configuration file
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntP("input-device", "i", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().Int("output-device", config.DefaultDeviceID,
		"Output device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().Float64P("sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntP("frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolP("low-latency", "l", false,
		"Use low latency mode for real-time processing")

	// Compression Configuration
	rootCmd.PersistentFlags().StringP("preset", "p", config.DefaultPreset,
		"Compression preset: "+config.PresetNames())
	rootCmd.PersistentFlags().IntP("gain-level", "g", config.DefaultGainLevel,
		"Master volume step (0-4)")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolP("record", "r", false,
		"Record the processed output stream")
	rootCmd.PersistentFlags().StringP("output", "o", "",
		"Recording file name. Default is hearaid-MM-DD-YYYY-HHMMSS.wav")

	// Monitoring Configuration
	rootCmd.PersistentFlags().Bool("monitor", false,
		"Show the live band monitor")
	rootCmd.PersistentFlags().Bool("ws", false,
		"Serve band metrics over WebSocket")
	rootCmd.PersistentFlags().Bool("udp", false,
		"Publish band metrics over UDP")

	// Debug Configuration
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// Command-line flags override both defaults and the file.
	flags := rootCmd.PersistentFlags()
	if flags.Changed("input-device") {
		cfg.Audio.InputDevice, _ = flags.GetInt("input-device")
	}
	if flags.Changed("output-device") {
		cfg.Audio.OutputDevice, _ = flags.GetInt("output-device")
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate, _ = flags.GetFloat64("sample-rate")
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer, _ = flags.GetInt("frames-per-buffer")
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency, _ = flags.GetBool("low-latency")
	}
	if flags.Changed("preset") {
		cfg.Processing.Preset, _ = flags.GetString("preset")
		cfg.Processing.Bands = nil
	}
	if flags.Changed("gain-level") {
		cfg.Processing.GainLevel, _ = flags.GetInt("gain-level")
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled, _ = flags.GetBool("record")
	}
	if flags.Changed("output") {
		cfg.Recording.OutputFile, _ = flags.GetString("output")
	}
	if flags.Changed("monitor") {
		cfg.Monitor.TUI, _ = flags.GetBool("monitor")
	}
	if flags.Changed("ws") {
		cfg.Monitor.WSEnabled, _ = flags.GetBool("ws")
	}
	if flags.Changed("udp") {
		cfg.Monitor.UDPEnabled, _ = flags.GetBool("udp")
	}
	if flags.Changed("verbose") {
		if verbose, _ := flags.GetBool("verbose"); verbose {
			cfg.Debug = true
			cfg.LogLevel = "debug"
		}
	}

	if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = "hearaid-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options.Config = cfg
	return options, nil
}
