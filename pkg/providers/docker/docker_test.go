package docker

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
)

const composeYAML = `
services:
  redis:
    image: redis:7
    ports:
      - "6379:6379"
  mailpit:
    image: axllent/mailpit
    container_name: mailpit
    ports:
      - "8025:8025"
      - "1025:1025"
  mysql:
    image: mysql:8
    ports:
      - "3306:3306"
`

func writeCompose(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "compose.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseComposeFile(t *testing.T) {
	path := writeCompose(t, t.TempDir(), composeYAML)

	cf, err := ParseComposeFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(cf.Services) != 3 {
		t.Errorf("services: got %d, want 3", len(cf.Services))
	}

	if cf.Services["mailpit"].ContainerName != "mailpit" {
		t.Errorf("mailpit container_name: got %q", cf.Services["mailpit"].ContainerName)
	}

	names := cf.ServiceNames()
	if len(names) != 3 || names[0] != "mailpit" {
		t.Errorf("service names: got %v", names)
	}
}

func TestParseComposeFile_Invalid(t *testing.T) {
	path := writeCompose(t, t.TempDir(), "services: [unclosed")
	if _, err := ParseComposeFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestAutoImport(t *testing.T) {
	cf := &ComposeFile{
		Services: map[string]ComposeService{
			"redis":   {Image: "redis:7"},
			"mailpit": {Image: "axllent/mailpit", ContainerName: "mailpit"},
			"mysql":   {Image: "mysql:8"},
		},
	}

	defs := AutoImport(cf, map[string]bool{"redis": true}, "myapp")
	if len(defs) != 2 {
		t.Fatalf("expected 2 auto-imports, got %d", len(defs))
	}

	for _, d := range defs {
		switch d.Name {
		case "redis":
			t.Error("redis should have been skipped")
		case "mailpit":
			if d.Container != "mailpit" {
				t.Errorf("mailpit container: got %q, want 'mailpit'", d.Container)
			}
		case "mysql":
			if d.Container != "myapp-mysql-1" {
				t.Errorf("mysql container: got %q, want 'myapp-mysql-1'", d.Container)
			}
		}
	}
}

func TestAutoImport_NoProject(t *testing.T) {
	cf := &ComposeFile{
		Services: map[string]ComposeService{
			"app": {Image: "myapp:latest"},
		},
	}
	defs := AutoImport(cf, nil, "")
	if len(defs) != 1 {
		t.Fatalf("expected 1, got %d", len(defs))
	}
	if defs[0].Container != "" {
		t.Errorf("expected empty container name, got %q", defs[0].Container)
	}
}

func TestProvider_Snapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shop")
	os.MkdirAll(dir, 0755)
	path := writeCompose(t, dir, composeYAML)

	p := New(path, "", nil, slog.Default())
	got := make(chan any, 1)
	p.Listen(core.SignalData, func(v any) { got <- v })
	p.TurnON()
	defer p.TurnOFF()
	p.RequestData(nil)

	select {
	case v := <-got:
		snap := v.(map[string]any)
		if snap["project"] != "shop" {
			t.Errorf("project = %v", snap["project"])
		}
		services := snap["services"].([]core.Item)
		if len(services) != 3 {
			t.Fatalf("services = %d", len(services))
		}
		if services[1].Source["container"] != "shop-mysql-1" {
			t.Errorf("mysql container = %q", services[1].Source["container"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
	}
}

func TestProvider_MissingFile(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "missing.yml"), "x", nil, slog.Default())
	errs := make(chan any, 1)
	p.Listen(core.SignalError, func(v any) { errs <- v })
	p.TurnON()
	defer p.TurnOFF()
	p.RequestData(nil)

	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatal("no error")
	}
}
