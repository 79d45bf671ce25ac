package integration

import (
	"testing"
)

func TestEnabled(t *testing.T) {
	t.Setenv(EnvEnabled, "")
	if Enabled() {
		t.Error("Enabled() should be false without the switch")
	}

	t.Setenv(EnvEnabled, "1")
	if !Enabled() {
		t.Error("Enabled() should be true with the switch")
	}
}

func TestImage(t *testing.T) {
	t.Setenv(EnvImage, "")
	if got := Image(); got != "alpine:3.20" {
		t.Errorf("Image() = %q", got)
	}

	t.Setenv(EnvImage, "debian:12")
	if got := Image(); got != "debian:12" {
		t.Errorf("Image() = %q", got)
	}
}

func TestNewHarness_SkipsWhenDisabled(t *testing.T) {
	t.Setenv(EnvEnabled, "")

	var skipped bool
	t.Run("harness", func(t *testing.T) {
		defer func() { skipped = t.Skipped() }()
		NewHarness(t)
	})
	if !skipped {
		t.Error("NewHarness should skip when integration tests are disabled")
	}
}
