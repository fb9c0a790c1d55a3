package util

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
	"testing"
	"time"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}
	if WrapString("") != "" {
		t.Error("Expected an empty string to stay empty")
	}
}

func TestGetSocketOptions(t *testing.T) {
	viper.Reset()
	cmd := &cobra.Command{Use: "test"}
	SetupSocketFlags(cmd)
	if err := cmd.PersistentFlags().Parse([]string{"--timeout=5s", "--max-frame-size=1", "--reconnect-interval-factor=2"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatalf("BindPFlags failed: %v", err)
	}

	opts, err := GetSocketOptions()
	if err != nil {
		t.Fatalf("GetSocketOptions failed: %v", err)
	}
	if opts.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %s", opts.Timeout)
	}
	if opts.MaxFrameSize != 1024 {
		t.Errorf("Expected frame size 1024, got %d", opts.MaxFrameSize)
	}
	if opts.ReconnectIntervalFactor != 2 {
		t.Errorf("Expected factor 2, got %v", opts.ReconnectIntervalFactor)
	}
	if opts.TLS != nil {
		t.Error("Expected TLS to be disabled without certificate")
	}

	viper.Set("endpoint", "no-port")
	if _, err := GetSocket(); err == nil {
		t.Error("Expected an error for an endpoint without port")
	}
	viper.Set("endpoint", "127.0.0.1:4000")
	viper.Set("transport", "udp")
	if _, err := GetSocket(); err == nil {
		t.Error("Expected an error for an unknown transport")
	}
	viper.Reset()
}
