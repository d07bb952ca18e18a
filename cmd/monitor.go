/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	serial "github.com/allbin/go-serialstream"
	"github.com/spf13/cobra"
)

var (
	monitorSignals []string
	monitorTimeout time.Duration
	monitorData    bool
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Monitor control line changes",
	Long: `Monitor modem control line changes in real-time.

A change listener reports every change on the selected lines. Changes that
happen faster than they can be printed are coalesced into the latest state.
Press Ctrl+C to stop.

Examples:
  serialstream monitor /dev/ttyUSB0
  serialstream monitor /dev/ttyUSB0 --signals cts,dsr
  serialstream monitor /dev/ttyUSB0 --signals cd --timeout 30s
  serialstream monitor /dev/ttyUSB0 --data

Available signals: cd, cts, dsr, dtr, rts, ri, all`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMonitor(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cd", "cts", "dsr", "ri"},
		"Signals to monitor (comma-separated: cd,cts,dsr,dtr,rts,ri)")
	monitorCmd.Flags().DurationVarP(&monitorTimeout, "timeout", "t", 0,
		"Report when no change was seen for this long (0 = never)")
	monitorCmd.Flags().BoolVarP(&monitorData, "data", "d", false,
		"Also report how many data bytes arrive between changes")
}

func runMonitor(portPath string) error {
	mask, err := parseLines(monitorSignals)
	if err != nil {
		return err
	}
	if mask == serial.NoSignals {
		return fmt.Errorf("no signals selected")
	}

	port, err := openPort(portPath, mask, serial.WithInterruptCausesError(true))
	if err != nil {
		return fmt.Errorf("opening port: %w", err)
	}
	defer port.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan serial.LineState, 1)
	port.SetChangeListener(func(state serial.LineState) {
		select {
		case events <- state:
		case <-ctx.Done():
		}
	})

	readErr := make(chan error, 1)
	dataCount := make(chan int, 16)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := port.ReadContext(ctx, buf)
			if err != nil {
				readErr <- err
				return
			}
			if monitorData {
				dataCount <- n
			}
		}
	}()

	fmt.Printf("Monitoring %s on %s\n", mask, portPath)
	fmt.Println("Press Ctrl+C to stop")

	last := port.LastLineState()
	printLineState("Initial", last, mask)

	var timeout <-chan time.Time
	var timer *time.Timer
	if monitorTimeout > 0 {
		timer = time.NewTimer(monitorTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	received := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopping monitor...")
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				fmt.Println("\nStopping monitor...")
				return nil
			}
			return fmt.Errorf("port failed: %w", err)
		case n := <-dataCount:
			received += n
		case <-timeout:
			fmt.Printf("[%s] Timeout - no signal changes\n", time.Now().Format("15:04:05"))
			timer.Reset(monitorTimeout)
		case state := <-events:
			changed := last.Changed(state) & mask
			last = state
			if changed == serial.NoSignals {
				continue
			}
			printLineChange(state, changed, received)
			received = 0
			if timer != nil {
				timer.Reset(monitorTimeout)
			}
		}
	}
}

func printLineState(prefix string, state serial.LineState, mask serial.SignalMask) {
	fmt.Printf("[%s] %s state:\n", time.Now().Format("15:04:05"), prefix)
	printLines(state, mask)
	fmt.Println()
}

func printLineChange(state serial.LineState, changed serial.SignalMask, received int) {
	fmt.Printf("[%s] Signal change detected:\n", time.Now().Format("15:04:05"))
	printLines(state, changed)
	if monitorData {
		fmt.Printf("  (%d data bytes since last change)\n", received)
	}
	fmt.Println()
}

func printLines(state serial.LineState, mask serial.SignalMask) {
	for _, line := range []serial.SignalMask{
		serial.SignalDCD, serial.SignalCTS, serial.SignalDSR,
		serial.SignalDTR, serial.SignalRTS, serial.SignalRI,
	} {
		if mask&line != 0 {
			fmt.Printf("  %-4s %s\n", line.String()+":", formatSignalState(state.Has(line)))
		}
	}
}
