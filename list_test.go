package serial

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Errorf("ListPorts failed: %v", err)
	}

	for _, port := range ports {
		if !strings.HasPrefix(port, "/dev/") {
			t.Errorf("Port path doesn't start with /dev/: %s", port)
		}
		if !isCharacterDevice(port) {
			t.Errorf("Port is not a character device: %s", port)
		}
	}

	for i := 1; i < len(ports); i++ {
		if ports[i-1] > ports[i] {
			t.Errorf("Ports are not sorted: %s > %s", ports[i-1], ports[i])
		}
	}
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/dev/null", true},
		{"/dev/zero", true},
		{"/tmp", false},
		{"/nonexistent", false},
	}

	for _, test := range tests {
		result := isCharacterDevice(test.path)
		if result != test.expected {
			t.Errorf("isCharacterDevice(%s) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestGetPortDescription(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM0", "USB CDC/ACM Device"},
		{"ttyS0", "Standard Serial Port"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttymxc0", "i.MX Serial Port"},
		{"ttyO0", "OMAP Serial Port"},
		{"ttySAC0", "Samsung Serial Port"},
		{"ttyTHS0", "Tegra Serial Port"},
		{"unknown", "Serial Port"},
	}

	for _, test := range tests {
		result := getPortDescription(test.name)
		if result != test.expected {
			t.Errorf("getPortDescription(%s) = %s, expected %s", test.name, result, test.expected)
		}
	}
}

func TestGetPortInfo(t *testing.T) {
	info, err := GetPortInfo("/dev/null")
	if err != nil {
		t.Fatalf("GetPortInfo failed for /dev/null: %v", err)
	}
	if info.Name != "null" {
		t.Errorf("Expected name 'null', got '%s'", info.Name)
	}
	if info.Path != "/dev/null" {
		t.Errorf("Expected path '/dev/null', got '%s'", info.Path)
	}
	if info.Description == "" {
		t.Error("Description should not be empty")
	}

	_, err = GetPortInfo("/dev/nonexistent")
	if !errors.Is(err, ErrNoSuchPort) {
		t.Errorf("Expected ErrNoSuchPort, got %v", err)
	}
}

func TestIsSerialName(t *testing.T) {
	tests := []struct {
		name        string
		shouldMatch bool
	}{
		{"ttyUSB0", true},
		{"ttyUSB1", true},
		{"ttyACM0", true},
		{"ttyS0", true},
		{"ttyAMA0", true},
		{"ttyTHS2", true},
		{"tty1", false},
		{"tty2", false},
		{"console", false},
		{"ptmx", false},
		{"ptyp0", false},
		{"random", false},
		{"ttyUSB", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSerialName(tt.name); got != tt.shouldMatch {
				t.Errorf("isSerialName(%q) = %v, want %v", tt.name, got, tt.shouldMatch)
			}
		})
	}
}

func TestKernelDriver(t *testing.T) {
	root := t.TempDir()
	saved := sysClassTTY
	sysClassTTY = root
	t.Cleanup(func() { sysClassTTY = saved })

	dev := filepath.Join(root, "ttyUSB0", "device")
	if err := os.MkdirAll(dev, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("../../../bus/usb-serial/drivers/ftdi_sio", filepath.Join(dev, "driver")); err != nil {
		t.Fatal(err)
	}

	if got := kernelDriver("ttyUSB0"); got != "ftdi_sio" {
		t.Errorf("kernelDriver(ttyUSB0) = %q, want ftdi_sio", got)
	}
	if got := kernelDriver("ttyUSB9"); got != "" {
		t.Errorf("kernelDriver(ttyUSB9) = %q, want empty", got)
	}
}

func TestPortHolders(t *testing.T) {
	root := t.TempDir()
	saved := procDir
	procDir = root
	t.Cleanup(func() { procDir = saved })

	link := func(pid, fd, target string) {
		dir := filepath.Join(root, pid, "fd")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink(target, filepath.Join(dir, fd)); err != nil {
			t.Fatal(err)
		}
	}
	link("412", "0", "/dev/pts/1")
	link("412", "5", "/dev/ttyUSB0")
	link("88", "3", "/dev/ttyUSB0")
	link("88", "4", "/dev/ttyUSB0")
	link("977", "3", "/dev/ttyUSB1")
	if err := os.MkdirAll(filepath.Join(root, "self"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := portHolders("/dev/ttyUSB0")
	if len(got) != 2 || got[0] != 88 || got[1] != 412 {
		t.Errorf("portHolders(/dev/ttyUSB0) = %v, want [88 412]", got)
	}
	if got := portHolders("/dev/ttyACM0"); len(got) != 0 {
		t.Errorf("portHolders(/dev/ttyACM0) = %v, want none", got)
	}

	info := PortInfo{HeldBy: portHolders("/dev/ttyUSB1")}
	if !info.InUse() {
		t.Error("expected /dev/ttyUSB1 to be in use")
	}
}

// BenchmarkListPorts benchmarks the ListPorts function
func BenchmarkListPorts(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := ListPorts(); err != nil {
			b.Errorf("ListPorts failed: %v", err)
		}
	}
}
