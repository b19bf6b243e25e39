package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUnitContents(t *testing.T) {
	got := UnitContents("/usr/local/bin/livefeedd", "/srv/app/livefeed.yaml")

	for _, want := range []string{
		"ExecStart=/usr/local/bin/livefeedd --config /srv/app/livefeed.yaml",
		"Type=simple",
		"Restart=on-failure",
		"Environment=LOG_FORMAT=json",
		"[Install]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("unit file missing %q", want)
		}
	}
}

func TestUnitContentsDefaultConfig(t *testing.T) {
	got := UnitContents("/usr/local/bin/livefeedd", "")
	if !strings.Contains(got, "ExecStart=/usr/local/bin/livefeedd\n") {
		t.Errorf("unexpected ExecStart:\n%s", got)
	}
}

func TestUnitPath(t *testing.T) {
	path, err := UnitPath()
	if err != nil {
		t.Fatalf("UnitPath() error: %v", err)
	}
	if !strings.HasSuffix(path, "systemd/user/livefeedd.service") {
		t.Errorf("UnitPath() = %q, want suffix systemd/user/livefeedd.service", path)
	}
}

func TestStatusNoSocket(t *testing.T) {
	got := Status(filepath.Join(t.TempDir(), "missing.sock"))
	if !strings.Contains(got, "socket: inactive") {
		t.Errorf("Status() should report inactive socket, got: %s", got)
	}
}

func TestStatusWithSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "livefeed.sock")
	if err := os.WriteFile(sock, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	got := Status(sock)
	if !strings.Contains(got, "socket: active") {
		t.Errorf("Status() should report active socket, got: %s", got)
	}
}

func TestStatusInstalledUnit(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	unitPath, err := UnitPath()
	if err != nil {
		t.Fatal(err)
	}
	os.MkdirAll(filepath.Dir(unitPath), 0o755)
	os.WriteFile(unitPath, []byte(UnitContents("/bin/livefeedd", "")), 0o644)

	orig := activeState
	t.Cleanup(func() { activeState = orig })

	activeState = func(context.Context) (string, error) { return "active", nil }
	if got := Status("/nonexistent"); !strings.Contains(got, "systemd user service: active") {
		t.Errorf("Status() = %s", got)
	}

	activeState = func(context.Context) (string, error) { return "", errors.New("no bus") }
	if got := Status("/nonexistent"); !strings.Contains(got, "systemd user service: unknown") {
		t.Errorf("Status() = %s", got)
	}
}
