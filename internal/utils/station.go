package utils

import (
	"errors"
	"os"
	"runtime"
	"strings"
)

// StationID identifies the scanning desk in logs and journal entries. It
// prefers the hardware/machine UUID and falls back to the hostname.
func StationID() string {
	if id, err := machineID(); err == nil {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown-station"
}

func machineID() (string, error) {
	var paths []string
	switch runtime.GOOS {
	case "linux":
		paths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id", "/sys/class/dmi/id/product_uuid"}
	case "freebsd":
		paths = []string{"/etc/hostid"}
	default:
		return "", errors.New("unsupported platform: " + runtime.GOOS)
	}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	}
	return "", errors.New("no machine id found")
}
