/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	serial "github.com/allbin/go-serialstream"
	"github.com/spf13/cobra"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Reads data from the specified serial port and writes it directly to the
output file. Runs continuously until interrupted (Ctrl+C).

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data. Control line changes can be logged to
stderr with --lines.

Example usage:
  serialstream capture /dev/ttyUSB0 data.log
  serialstream capture /dev/ttyUSB0 output.txt --baud 9600
  serialstream capture /dev/ttyUSB0 capture.log --console
  serialstream capture /dev/ttyUSB0 capture.log --lines cts,dsr --initial-rts`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		outputPath := args[1]

		lineNames, _ := cmd.Flags().GetStringSlice("lines")
		initialRTS, _ := cmd.Flags().GetBool("initial-rts")
		initialDTR, _ := cmd.Flags().GetBool("initial-dtr")
		showConsole, _ := cmd.Flags().GetBool("console")

		// An empty list disables line tracking and reads unbuffered
		lines := serial.NoSignals
		if len(lineNames) > 0 {
			var err error
			lines, err = parseLines(lineNames)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		var extra []serial.Option
		if cmd.Flags().Changed("initial-rts") {
			extra = append(extra, serial.WithInitialRTS(initialRTS))
		}
		if cmd.Flags().Changed("initial-dtr") {
			extra = append(extra, serial.WithInitialDTR(initialDTR))
		}

		if err := runCapture(portPath, outputPath, lines, showConsole, extra...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringSliceP("lines", "l", nil, "Log changes of these control lines (comma-separated: cd,cts,dsr,dtr,rts,ri,all)")
	captureCmd.Flags().Bool("initial-rts", false, "Set RTS on port open")
	captureCmd.Flags().Bool("initial-dtr", false, "Set DTR on port open")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

func runCapture(portPath, outputPath string, lines serial.SignalMask, showConsole bool, extra ...serial.Option) error {
	extra = append(extra, serial.WithInterruptCausesError(true))
	port, err := openPort(portPath, lines, extra...)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	// Open output file in append mode
	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if lines != serial.NoSignals {
		last := port.LastLineState()
		port.SetChangeListener(func(state serial.LineState) {
			changed := last.Changed(state) & lines
			last = state
			if changed != serial.NoSignals {
				fmt.Fprintf(os.Stderr, "[%s] lines %s changed: %s\n",
					time.Now().Format("15:04:05.000"), changed, state)
			}
		})
	}

	fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", portPath, outputPath)
	if showConsole {
		fmt.Fprintf(os.Stderr, "Console display enabled\n")
	}
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	// Unbuffered ports ignore the context, closing the port unblocks the read
	go func() {
		<-ctx.Done()
		fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down...\n")
		if lines == serial.NoSignals {
			port.Close()
		}
	}()

	buffer := make([]byte, 4096)
	bytesWritten := int64(0)
	startTime := time.Now()

	for {
		n, err := port.ReadContext(ctx, buffer)
		if n > 0 {
			written, werr := file.Write(buffer[:n])
			if werr != nil {
				return fmt.Errorf("write error: %w", werr)
			}
			bytesWritten += int64(written)

			if showConsole {
				os.Stdout.Write(buffer[:n])
			}
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, serial.ErrInterrupted) || errors.Is(err, serial.ErrPortClosed) {
				break
			}
			return fmt.Errorf("read error: %w", err)
		}
	}

	stats := port.Stats()
	duration := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", bytesWritten, duration.Round(time.Millisecond))
	if stats.BytesDropped > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d bytes were dropped because the buffer was full\n", stats.BytesDropped)
	}
	return nil
}
