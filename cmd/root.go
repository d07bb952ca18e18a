/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	serial "github.com/allbin/go-serialstream"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfgFile string
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialstream",
	Short: "Serial port data and control line tool",
	Long: `serialstream reads and writes serial ports while tracking the modem
control lines (CD, CTS, DSR, DTR, RTS, RI) alongside the data.

Port settings can be given as flags, in a config file ($HOME/.serialstream.yaml)
or as SERIALSTREAM_* environment variables, e.g. SERIALSTREAM_BAUD=115200.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serialstream.yaml)")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Write JSON logs to a rotated file instead of stderr")
	pf.IntP("baud", "b", 115200, "Baud rate")
	pf.Int("data-bits", 8, "Data bits (5-8)")
	pf.Int("stop-bits", 1, "Stop bits (1 or 2)")
	pf.String("parity", "none", "Parity: none, odd, even, mark, space")
	pf.String("flow-control", "none", "Flow control: none, rtscts, xonxoff")
	pf.Int("buffer", serial.DefaultBufferSize, "Receive buffer size in bytes")
	pf.Bool("portable", false, "Use the portable driver instead of the native one")

	for _, name := range []string{"log-level", "log-file", "baud", "data-bits", "stop-bits", "parity", "flow-control", "buffer", "portable"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".serialstream")
	}

	viper.SetEnvPrefix("SERIALSTREAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	configErr := viper.ReadInConfig()

	logger = setupLogging(viper.GetString("log-level"), viper.GetString("log-file"))
	if configErr == nil {
		logger.Debug("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", configErr)
		os.Exit(1)
	}
}

func setupLogging(levelName, logFile string) *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if logFile != "" {
		writer := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10,
			MaxBackups: 3,
			Compress:   true,
		}
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "none", "n", "":
		return serial.ParityNone, nil
	case "odd", "o":
		return serial.ParityOdd, nil
	case "even", "e":
		return serial.ParityEven, nil
	case "mark", "m":
		return serial.ParityMark, nil
	case "space", "s":
		return serial.ParitySpace, nil
	default:
		return serial.ParityNone, fmt.Errorf("invalid parity: %s (valid: none, odd, even, mark, space)", s)
	}
}

func parseFlowControl(s string) (serial.FlowControl, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return serial.FlowControlNone, nil
	case "rtscts", "hardware", "cts":
		return serial.FlowControlHardware, nil
	case "xonxoff", "software":
		return serial.FlowControlSoftware, nil
	default:
		return serial.FlowControlNone, fmt.Errorf("invalid flow control: %s (valid: none, rtscts, xonxoff)", s)
	}
}

// parseLines turns signal names into a mask; an empty list means all lines
func parseLines(names []string) (serial.SignalMask, error) {
	if len(names) == 0 {
		return serial.AllSignals, nil
	}

	var mask serial.SignalMask
	for _, name := range names {
		m, ok := serial.ParseSignal(strings.TrimSpace(name))
		if !ok {
			return 0, fmt.Errorf("unknown signal: %s (valid: cd, cts, dsr, dtr, rts, ri, all, none)", name)
		}
		mask |= m
	}
	return mask, nil
}

// portOptions builds the open options from the bound flags and config
func portOptions(lines serial.SignalMask) ([]serial.Option, error) {
	parity, err := parseParity(viper.GetString("parity"))
	if err != nil {
		return nil, err
	}
	flow, err := parseFlowControl(viper.GetString("flow-control"))
	if err != nil {
		return nil, err
	}

	opts := []serial.Option{
		serial.WithBaudRate(viper.GetInt("baud")),
		serial.WithDataBits(viper.GetInt("data-bits")),
		serial.WithStopBits(viper.GetInt("stop-bits")),
		serial.WithParity(parity),
		serial.WithFlowControl(flow),
		serial.WithControlLines(lines),
		serial.WithBufferSize(viper.GetInt("buffer")),
		serial.WithLogger(logger),
	}
	if viper.GetBool("portable") {
		opts = append(opts, serial.WithPortableDriver())
	}
	return opts, nil
}

func openPort(portPath string, lines serial.SignalMask, extra ...serial.Option) (serial.Port, error) {
	opts, err := portOptions(lines)
	if err != nil {
		return nil, err
	}
	return serial.Open(portPath, append(opts, extra...)...)
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}
