// Package config loads and validates livefeed.yaml.
package config

import "time"

const (
	DefaultPath   = "livefeed.yaml"
	DefaultSocket = "/tmp/livefeed.sock"
)

// Feed kinds.
const (
	KindStatic    = "static"
	KindProcfs    = "procfs"
	KindSystemd   = "systemd"
	KindFiletail  = "filetail"
	KindJournald  = "journald"
	KindExec      = "exec"
	KindCompose   = "compose"
	KindHTTP      = "http"
	KindWebsocket = "websocket"
)

// Kinds lists every supported feed kind.
var Kinds = []string{
	KindStatic, KindProcfs, KindSystemd, KindFiletail, KindJournald,
	KindExec, KindCompose, KindHTTP, KindWebsocket,
}

// Config represents a livefeed.yaml configuration file.
type Config struct {
	Version int             `yaml:"version"           json:"version"`
	Root    string          `yaml:"root,omitempty"    json:"root,omitempty"`
	Socket  string          `yaml:"socket,omitempty"  json:"socket,omitempty"`
	Metrics *Metrics        `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Publish *Publish        `yaml:"publish,omitempty" json:"publish,omitempty"`
	Feeds   map[string]Feed `yaml:"feeds"             json:"feeds"`

	// FilePath is where the config was loaded from.
	FilePath string `yaml:"-" json:"-"`
}

// Metrics configures the Prometheus endpoint of the daemon.
type Metrics struct {
	Listen string `yaml:"listen" json:"listen"`
}

// Publish configures where feeds flagged with publish are forwarded.
type Publish struct {
	NATS *NATS `yaml:"nats,omitempty" json:"nats,omitempty"`
}

type NATS struct {
	URL    string `yaml:"url"              json:"url"`
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
}

// Feed is one emitter definition. Common fields apply to every kind; the
// rest are read by the kind that needs them.
type Feed struct {
	Kind           string   `yaml:"kind"                      json:"kind"`
	Delay          Duration `yaml:"delay,omitempty"           json:"delay,omitempty"`
	RunImmediately bool     `yaml:"run_immediately,omitempty" json:"run_immediately,omitempty"`
	AutoRequest    *bool    `yaml:"auto_request,omitempty"    json:"auto_request,omitempty"`
	Require        []string `yaml:"require,omitempty"         json:"require,omitempty"`
	Fields         []string `yaml:"fields,omitempty"          json:"fields,omitempty"`
	Publish        bool     `yaml:"publish,omitempty"         json:"publish,omitempty"`

	Value   any               `yaml:"value,omitempty"   json:"value,omitempty"`   // static
	Match   []string          `yaml:"match,omitempty"   json:"match,omitempty"`   // procfs
	Units   []string          `yaml:"units,omitempty"   json:"units,omitempty"`   // systemd
	Unit    string            `yaml:"unit,omitempty"    json:"unit,omitempty"`    // journald
	Backlog int               `yaml:"backlog,omitempty" json:"backlog,omitempty"` // journald
	File    string            `yaml:"file,omitempty"    json:"file,omitempty"`    // filetail, compose
	Project string            `yaml:"project,omitempty" json:"project,omitempty"` // compose
	Skip    []string          `yaml:"skip,omitempty"    json:"skip,omitempty"`    // compose
	Command string            `yaml:"command,omitempty" json:"command,omitempty"` // exec
	Dir     string            `yaml:"dir,omitempty"     json:"dir,omitempty"`     // exec
	Env     map[string]string `yaml:"env,omitempty"     json:"env,omitempty"`     // exec
	Restart string            `yaml:"restart,omitempty" json:"restart,omitempty"` // exec: always|on-failure|never
	URL     string            `yaml:"url,omitempty"     json:"url,omitempty"`     // http, websocket
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"` // http
	Timeout Duration          `yaml:"timeout,omitempty" json:"timeout,omitempty"` // http
	Hello   string            `yaml:"hello,omitempty"   json:"hello,omitempty"`   // websocket
}

// AutoRequestEnabled reports whether ticks should ask the provider for data.
// Unset means true.
func (f Feed) AutoRequestEnabled() bool {
	return f.AutoRequest == nil || *f.AutoRequest
}

// SocketPath returns the configured socket or DefaultSocket.
func (c *Config) SocketPath() string {
	if c.Socket != "" {
		return c.Socket
	}
	return DefaultSocket
}

// Duration is a time.Duration written as "500ms" or "2s" in YAML. A bare
// integer is read as milliseconds.
type Duration struct {
	time.Duration
}

// D is shorthand for building a Duration.
func D(d time.Duration) Duration { return Duration{d} }

func (d Duration) IsZero() bool { return d.Duration == 0 }
