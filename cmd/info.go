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

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display information about a serial port",
	Long: `Display what is known about a serial port without opening it.

Examples:
  serialstream info /dev/ttyUSB0
  serialstream info /dev/ttyACM0 --probe

With --probe the port is opened and the current control line levels and
settings are shown as well.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		probe, _ := cmd.Flags().GetBool("probe")

		info, err := serial.GetPortInfo(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Port Information: %s\n\n", info.Path)
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Type:        %s\n", getPortType(info.Name))
		fmt.Printf("  Description: %s\n", info.Description)
		if info.Driver != "" {
			fmt.Printf("  Driver:      %s\n", info.Driver)
		}
		fmt.Printf("  In use:      %s\n", holdersText(info))

		if !probe {
			return
		}

		port, err := openPort(portPath, serial.NoSignals, serial.WithKeepSettings())
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError opening port: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()

		state, err := port.LineState()
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError reading control lines: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nControl lines: %s\n", state)
		fmt.Printf("Asserted:      %s\n", state.Asserted())
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolP("probe", "p", false, "Open the port and show the control line levels")
}
