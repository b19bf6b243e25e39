package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Validate checks the config for structural correctness.
func Validate(c *Config) []error {
	var errs []error

	if c.Version != 1 {
		errs = append(errs, fmt.Errorf("version must be 1, got %d", c.Version))
	}

	if len(c.Feeds) == 0 {
		errs = append(errs, fmt.Errorf("config must define at least one feed"))
	}

	publishing := c.Publish != nil && c.Publish.NATS != nil

	names := make([]string, 0, len(c.Feeds))
	for name := range c.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := c.Feeds[name]
		if strings.ContainsAny(name, " \t\n") {
			errs = append(errs, fmt.Errorf("feed %q: name must not contain whitespace", name))
		}
		if f.Delay.Duration < 0 {
			errs = append(errs, fmt.Errorf("feed %q: delay must not be negative", name))
		}
		if f.Publish && !publishing {
			errs = append(errs, fmt.Errorf("feed %q: publish requires publish.nats", name))
		}
		for _, field := range append(append([]string{}, f.Require...), f.Fields...) {
			if strings.TrimSpace(field) == "" {
				errs = append(errs, fmt.Errorf("feed %q: empty field name", name))
				break
			}
		}

		switch f.Kind {
		case KindStatic:
			if f.Value == nil {
				errs = append(errs, fmt.Errorf("feed %q (static): value is required", name))
			}
		case KindProcfs:
		case KindSystemd:
			if len(f.Units) == 0 {
				errs = append(errs, fmt.Errorf("feed %q (systemd): units is required", name))
			}
		case KindJournald:
			if f.Unit == "" {
				errs = append(errs, fmt.Errorf("feed %q (journald): unit is required", name))
			}
		case KindFiletail:
			if f.File == "" {
				errs = append(errs, fmt.Errorf("feed %q (filetail): file is required", name))
			}
		case KindCompose:
			if f.File == "" {
				errs = append(errs, fmt.Errorf("feed %q (compose): file is required", name))
			}
		case KindExec:
			if f.Command == "" {
				errs = append(errs, fmt.Errorf("feed %q (exec): command is required", name))
			}
			if f.Restart != "" && f.Restart != "always" && f.Restart != "on-failure" && f.Restart != "never" {
				errs = append(errs, fmt.Errorf("feed %q (exec): restart must be always, on-failure, or never; got %q", name, f.Restart))
			}
		case KindHTTP:
			errs = append(errs, checkURL(name, f, "http", "https")...)
		case KindWebsocket:
			errs = append(errs, checkURL(name, f, "ws", "wss")...)
		case "":
			errs = append(errs, fmt.Errorf("feed %q: kind is required", name))
		default:
			errs = append(errs, fmt.Errorf("feed %q: unknown kind %q", name, f.Kind))
		}
	}

	return errs
}

func checkURL(name string, f Feed, schemes ...string) []error {
	if f.URL == "" {
		return []error{fmt.Errorf("feed %q (%s): url is required", name, f.Kind)}
	}
	u, err := url.Parse(f.URL)
	if err != nil {
		return []error{fmt.Errorf("feed %q (%s): invalid url: %w", name, f.Kind, err)}
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return []error{fmt.Errorf("feed %q (%s): url scheme must be %s", name, f.Kind, strings.Join(schemes, " or "))}
}
