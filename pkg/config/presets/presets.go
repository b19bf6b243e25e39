// Package presets generates starter livefeed.yaml files.
package presets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/modoterra/livefeed/pkg/config"
)

// Names lists the available presets.
var Names = []string{"example", "laravel"}

// Generate builds the named preset for root.
func Generate(name, root string) (*config.Config, error) {
	switch name {
	case "example":
		return Example(), nil
	case "laravel":
		return GenerateLaravel(root)
	default:
		return nil, fmt.Errorf("unknown preset: %s (available: %s)", name, strings.Join(Names, ", "))
	}
}

// Example returns a minimal config with a static feed and a process feed.
func Example() *config.Config {
	return &config.Config{
		Version: 1,
		Socket:  config.DefaultSocket,
		Feeds: map[string]config.Feed{
			"hello": {
				Kind:           config.KindStatic,
				Value:          "Hello world!",
				Delay:          config.D(time.Second),
				RunImmediately: true,
			},
			"procs": {
				Kind:    config.KindProcfs,
				Delay:   config.D(2 * time.Second),
				Require: []string{"count"},
				Fields:  []string{"count"},
			},
		},
	}
}

// GenerateLaravel creates a config for a Laravel project at the given root.
func GenerateLaravel(root string) (*config.Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	if _, err := os.Stat(filepath.Join(absRoot, "artisan")); err != nil {
		return nil, fmt.Errorf("%s does not appear to be a Laravel project (no artisan file)", absRoot)
	}

	c := &config.Config{
		Version: 1,
		Root:    absRoot,
		Socket:  config.DefaultSocket,
		Feeds:   make(map[string]config.Feed),
	}

	c.Feeds["queue-worker"] = config.Feed{
		Kind:    config.KindExec,
		Command: "php artisan queue:work",
		Dir:     absRoot,
		Restart: "on-failure",
	}
	c.Feeds["scheduler"] = config.Feed{
		Kind:    config.KindExec,
		Command: "php artisan schedule:work",
		Dir:     absRoot,
		Restart: "always",
	}

	if _, err := os.Stat(filepath.Join(absRoot, "package.json")); err == nil {
		c.Feeds["vite"] = config.Feed{
			Kind:    config.KindExec,
			Command: "npm run dev",
			Dir:     absRoot,
			Restart: "always",
		}
	}

	composerLock := filepath.Join(absRoot, "composer.lock")
	if data, err := os.ReadFile(composerLock); err == nil && strings.Contains(string(data), "laravel/reverb") {
		c.Feeds["reverb"] = config.Feed{
			Kind:    config.KindExec,
			Command: "php artisan reverb:start",
			Dir:     absRoot,
			Restart: "on-failure",
		}
	}

	c.Feeds["procs"] = config.Feed{
		Kind:    config.KindProcfs,
		Delay:   config.D(2 * time.Second),
		Match:   []string{"php", "artisan", "node", "nginx"},
		Require: []string{"count", "processes"},
		Fields:  []string{"count"},
	}

	var units []string
	for _, candidates := range [][]string{
		{"nginx.service"},
		{"redis.service", "redis-server.service"},
		{"mysql.service", "mysqld.service", "mariadb.service"},
	} {
		for _, unit := range candidates {
			if unitExists(unit) {
				units = append(units, unit)
				break
			}
		}
	}
	for _, ver := range []string{"8.4", "8.3", "8.2", "8.1", "8.0", "7.4"} {
		unit := fmt.Sprintf("php%s-fpm.service", ver)
		if unitExists(unit) {
			units = append(units, unit)
			break
		}
	}
	if len(units) > 0 {
		sort.Strings(units)
		c.Feeds["units"] = config.Feed{
			Kind:  config.KindSystemd,
			Units: units,
			Delay: config.D(5 * time.Second),
		}
	}

	c.Feeds["app-log"] = config.Feed{
		Kind: config.KindFiletail,
		File: filepath.Join(absRoot, "storage", "logs", "laravel.log"),
	}

	for _, name := range []string{"compose.yml", "compose.yaml", "docker-compose.yml", "docker-compose.yaml"} {
		if _, err := os.Stat(filepath.Join(absRoot, name)); err == nil {
			c.Feeds["stack"] = config.Feed{
				Kind:  config.KindCompose,
				File:  filepath.Join(absRoot, name),
				Delay: config.D(10 * time.Second),
			}
			break
		}
	}

	return c, nil
}

// unitExists checks if a systemd unit file is installed.
func unitExists(unit string) bool {
	for _, dir := range []string{"/etc/systemd/system/", "/lib/systemd/system/", "/usr/lib/systemd/system/"} {
		if _, err := os.Stat(dir + unit); err == nil {
			return true
		}
	}
	return false
}
