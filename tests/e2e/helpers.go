package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// findChartviewBinary finds the chartview binary under test.
// It relies on PATH including the directory the binary was built into.
func findChartviewBinary() (string, error) {
	path, err := exec.LookPath("chartview")
	if err != nil {
		return "", fmt.Errorf("could not find 'chartview' binary in PATH. Build it with 'go build -o bin/ ./cmd/chartview' and add bin/ to PATH")
	}
	return path, nil
}

// writeTempConfig writes a chartview.yml into a fresh temporary directory.
func writeTempConfig(content string) (string, error) {
	dir, err := os.MkdirTemp("", "chartview-e2e-")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "chartview.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}
