package presets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modoterra/livefeed/pkg/config"
)

func laravelDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "artisan"), []byte("#!/usr/bin/env php"), 0755)
	os.MkdirAll(filepath.Join(dir, "storage", "logs"), 0755)
	return dir
}

func TestGenerateLaravel_MinimalProject(t *testing.T) {
	c, err := GenerateLaravel(laravelDir(t))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if c.Version != 1 {
		t.Errorf("version: got %d", c.Version)
	}

	for _, name := range []string{"queue-worker", "scheduler", "procs", "app-log"} {
		if _, ok := c.Feeds[name]; !ok {
			t.Errorf("missing required feed: %s", name)
		}
	}

	if errs := config.Validate(c); len(errs) != 0 {
		t.Errorf("validation errors: %v", errs)
	}
}

func TestGenerateLaravel_WithPackageJson(t *testing.T) {
	dir := laravelDir(t)
	os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"test"}`), 0644)

	c, err := GenerateLaravel(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Feeds["vite"]; !ok {
		t.Error("expected vite feed when package.json exists")
	}
}

func TestGenerateLaravel_WithCompose(t *testing.T) {
	dir := laravelDir(t)
	os.WriteFile(filepath.Join(dir, "compose.yml"), []byte("services:\n  redis:\n    image: redis\n"), 0644)

	c, err := GenerateLaravel(dir)
	if err != nil {
		t.Fatal(err)
	}
	stack, ok := c.Feeds["stack"]
	if !ok || stack.Kind != config.KindCompose {
		t.Errorf("expected compose feed, got %+v", stack)
	}
}

func TestGenerateLaravel_NotLaravel(t *testing.T) {
	if _, err := GenerateLaravel(t.TempDir()); err == nil {
		t.Error("expected error for non-Laravel directory")
	}
}

func TestGenerate(t *testing.T) {
	c, err := Generate("example", "")
	if err != nil {
		t.Fatal(err)
	}
	if errs := config.Validate(c); len(errs) != 0 {
		t.Errorf("example is invalid: %v", errs)
	}
	if _, err := Generate("rails", "."); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestExampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livefeed.yaml")
	if err := config.Save(Example(), path); err != nil {
		t.Fatal(err)
	}
	c, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	hello := c.Feeds["hello"]
	if hello.Value != "Hello world!" || !hello.RunImmediately || hello.Delay.Seconds() != 1 {
		t.Errorf("hello = %+v", hello)
	}
}
