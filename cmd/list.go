/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	serial "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports on the system and whether they are in use.

Ports are found by scanning /dev for serial device names (ttyUSB*, ttyACM*,
ttyS*, ttyAMA* and other platform UARTs). Virtual terminals and
pseudo-terminals are not listed.

A port counts as in use when some process has it open. Processes of other
users are only seen when run as root.

Examples:
  serialstream list
  serialstream list --table
  serialstream list --filter usb --free`,
	Run: func(cmd *cobra.Command, args []string) {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		freeOnly, _ := cmd.Flags().GetBool("free")

		prefixes, ok := portFilters[strings.ToLower(filterType)]
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown filter %q (valid: usb, standard, arm, all)\n", filterType)
			os.Exit(1)
		}

		paths, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		ports := collectPorts(paths, prefixes, freeOnly)
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return
		}

		if tableFormat {
			fmt.Println(renderPortTable(ports))
		} else {
			renderSimple(ports)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "all", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output as a table")
	listCmd.Flags().Bool("free", false, "Only list ports no process has open")
}

// portFilters maps a --filter value to device name prefixes; nil matches all
var portFilters = map[string][]string{
	"":         nil,
	"all":      nil,
	"usb":      {"ttyusb", "ttyacm"},
	"standard": {"ttys"},
	"arm":      {"ttyama"},
}

func collectPorts(paths []string, prefixes []string, freeOnly bool) []*serial.PortInfo {
	var ports []*serial.PortInfo
	for _, path := range paths {
		info, err := serial.GetPortInfo(path)
		if err != nil {
			logger.Debug("skipping port", "path", path, "error", err)
			continue
		}
		if !matchesPrefix(info.Name, prefixes) {
			continue
		}
		if freeOnly && info.InUse() {
			continue
		}
		ports = append(ports, info)
	}
	return ports
}

func matchesPrefix(name string, prefixes []string) bool {
	if prefixes == nil {
		return true
	}
	name = strings.ToLower(name)
	for _, prefix := range prefixes {
		// ttyS must not match ttySAC
		if prefix == "ttys" && strings.HasPrefix(name, "ttysac") {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func holdersText(info *serial.PortInfo) string {
	if !info.InUse() {
		return "-"
	}
	pids := make([]string, len(info.HeldBy))
	for i, pid := range info.HeldBy {
		pids[i] = strconv.Itoa(pid)
	}
	return "pid " + strings.Join(pids, ",")
}

func renderPortTable(ports []*serial.PortInfo) string {
	columns := []table.Column{
		table.NewColumn("port", "Port", 14),
		table.NewColumn("type", "Type", 16),
		table.NewColumn("driver", "Driver", 14),
		table.NewColumn("use", "In use", 16),
		table.NewColumn("desc", "Description", 24),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, info := range ports {
		driver := info.Driver
		if driver == "" {
			driver = "-"
		}
		use := table.NewStyledCell(holdersText(info), styles.LevelLowStyle)
		if info.InUse() {
			use = table.NewStyledCell(holdersText(info), styles.StatusConnectingStyle)
		}
		rows = append(rows, table.NewRow(table.RowData{
			"port":   info.Name,
			"type":   getPortType(info.Name),
			"driver": driver,
			"use":    use,
			"desc":   info.Description,
		}))
	}

	title := styles.TitleStyle.Render(fmt.Sprintf("%d serial port(s)", len(ports)))
	body := table.New(columns).
		WithRows(rows).
		BorderRounded().
		WithBaseStyle(lipgloss.NewStyle().Align(lipgloss.Left)).
		View()
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func renderSimple(ports []*serial.PortInfo) {
	for _, info := range ports {
		if info.InUse() {
			fmt.Printf("%s\t(in use, %s)\n", info.Path, holdersText(info))
			continue
		}
		fmt.Println(info.Path)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
