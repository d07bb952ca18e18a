/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	serial "github.com/allbin/go-serialstream"
	"github.com/spf13/cobra"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <port> <state>",
	Short: "Control DTR (Data Terminal Ready) signal",
	Long: `Manually set the DTR (Data Terminal Ready) signal state.

The DTR signal indicates that the terminal is ready for communication.
The other output line (RTS) is left as it is.

Examples:
  serialstream dtr /dev/ttyUSB0 high
  serialstream dtr /dev/ttyUSB0 low
  serialstream dtr /dev/ttyUSB0 on
  serialstream dtr /dev/ttyUSB0 off

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSetLine(args[0], args[1], serial.SignalDTR); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(dtrCmd)
}

// runSetLine drives one output line and reports the level read back
func runSetLine(portPath, stateArg string, line serial.SignalMask) error {
	state, err := parseSignalState(stateArg)
	if err != nil {
		return err
	}

	port, err := openPort(portPath, serial.NoSignals, serial.WithKeepSettings())
	if err != nil {
		return fmt.Errorf("opening port: %w", err)
	}
	defer port.Close()

	switch line {
	case serial.SignalDTR:
		err = port.SetDTR(state)
	case serial.SignalRTS:
		err = port.SetRTS(state)
	default:
		return fmt.Errorf("%s is not an output line", line)
	}
	if err != nil {
		return fmt.Errorf("setting %s: %w", line, err)
	}

	// Verify the state was set
	current, err := port.LineState()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not verify %s state: %v\n", line, err)
		current = port.LastLineState()
	}

	fmt.Printf("%s set to %s on %s\n", line, formatSignalState(current.Has(line)), portPath)
	return nil
}
