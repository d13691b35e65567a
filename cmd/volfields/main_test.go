package main

import (
	"flag"
	"io"
	"testing"

	"volfields/pkg/config"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("volfields", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Bool("compress", false, "")
	fs.Bool("preview", false, "")
	fs.Bool("skip-background", false, "")
	return fs
}

func TestApplyBoolFlags(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		configValue  bool
		wantCompress bool
		wantPreview  bool
		wantSkip     bool
	}{
		{"unset keeps config true", nil, true, true, true, true},
		{"unset keeps config false", nil, false, false, false, false},
		{"set enables", []string{"-compress", "-preview", "-skip-background"}, false, true, true, true},
		{"explicit false disables", []string{"-compress=false", "-preview=false", "-skip-background=false"}, true, false, false, false},
		{"only one set", []string{"-compress=false"}, true, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFlagSet()
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Failed to parse %v: %v", tt.args, err)
			}
			cfg := config.DefaultConfig()
			cfg.Output.Compress = tt.configValue
			cfg.Output.Preview = tt.configValue
			cfg.Processing.SkipBackground = tt.configValue

			applyBoolFlags(fs, cfg)

			if cfg.Output.Compress != tt.wantCompress {
				t.Errorf("Compress = %t, want %t", cfg.Output.Compress, tt.wantCompress)
			}
			if cfg.Output.Preview != tt.wantPreview {
				t.Errorf("Preview = %t, want %t", cfg.Output.Preview, tt.wantPreview)
			}
			if cfg.Processing.SkipBackground != tt.wantSkip {
				t.Errorf("SkipBackground = %t, want %t", cfg.Processing.SkipBackground, tt.wantSkip)
			}
		})
	}
}
