package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		logFile string
	}{
		{name: "debug level, no file", level: "debug"},
		{name: "info level, no file", level: "info"},
		{name: "warn level, no file", level: "warn"},
		{name: "error level, no file", level: "error"},
		{name: "unknown level defaults to info", level: "verbose"},
		{name: "with log file", level: "info", logFile: filepath.Join(t.TempDir(), "tracker.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Log = nil

			if err := Init(tt.level, tt.logFile); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			if Log == nil {
				t.Fatal("Init() left Log nil")
			}

			Log.Info("test entry")

			if tt.logFile != "" {
				if _, err := os.Stat(tt.logFile); err != nil {
					t.Errorf("log file not created: %v", err)
				}
			}
		})
	}
}

func TestSyncWithNilLogger(t *testing.T) {
	Log = nil
	if err := Sync(); err != nil {
		t.Errorf("Sync() with nil logger error = %v", err)
	}
}
