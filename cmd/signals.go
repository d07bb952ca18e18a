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

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display current control line states",
	Long: `Display the current state of all modem control lines.

The lines are queried directly from the driver; no reader is started.

Examples:
  serialstream signals /dev/ttyUSB0
  serialstream signals /dev/ttyACM0 --keep

Line meanings:
  CD  - Carrier Detect (input)
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  DTR - Data Terminal Ready (output)
  RTS - Request To Send (output)
  RI  - Ring Indicator (input)`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		keep, _ := cmd.Flags().GetBool("keep")

		var extra []serial.Option
		if keep {
			extra = append(extra, serial.WithKeepSettings())
		}

		port, err := openPort(portPath, serial.NoSignals, extra...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()

		state, err := port.LineState()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading control lines: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Control lines for %s:\n\n", portPath)
		fmt.Printf("  CD  (Carrier Detect):      %s\n", formatSignalState(state.CarrierDetect))
		fmt.Printf("  CTS (Clear To Send):       %s\n", formatSignalState(state.ClearToSend))
		fmt.Printf("  DSR (Data Set Ready):      %s\n", formatSignalState(state.DataSetReady))
		fmt.Printf("  DTR (Data Terminal Ready): %s\n", formatSignalState(state.DataTerminalReady))
		fmt.Printf("  RTS (Request To Send):     %s\n", formatSignalState(state.RequestToSend))
		fmt.Printf("  RI  (Ring Indicator):      %s\n", formatSignalState(state.RingIndicator))
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().BoolP("keep", "k", false, "Open without changing the port settings")
}
