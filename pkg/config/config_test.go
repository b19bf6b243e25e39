package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseValidConfig(t *testing.T) {
	yaml := `
version: 1
root: /var/www/my-app
socket: /tmp/test.sock
metrics:
  listen: ":9464"
publish:
  nats:
    url: nats://127.0.0.1:4222
    prefix: livefeed
feeds:
  hello:
    kind: static
    value: "Hello world!"
    delay: 500ms
    run_immediately: true
  procs:
    kind: procfs
    delay: 2000
    match: [nginx, php]
    require: [count]
    fields: [count]
    publish: true
  worker:
    kind: exec
    command: "php ${root}/artisan queue:work"
    dir: "${root}"
    restart: on-failure
    auto_request: false
  app-log:
    kind: filetail
    file: "${root}/storage/logs/laravel.log"
`
	c, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if c.Version != 1 {
		t.Errorf("version: got %d, want 1", c.Version)
	}
	if c.SocketPath() != "/tmp/test.sock" {
		t.Errorf("socket: got %q", c.SocketPath())
	}
	if len(c.Feeds) != 4 {
		t.Errorf("feeds count: got %d, want 4", len(c.Feeds))
	}

	hello := c.Feeds["hello"]
	if hello.Delay.Duration != 500*time.Millisecond || !hello.RunImmediately {
		t.Errorf("hello: %+v", hello)
	}
	if !hello.AutoRequestEnabled() {
		t.Error("auto_request should default to true")
	}

	procs := c.Feeds["procs"]
	if procs.Delay.Duration != 2*time.Second {
		t.Errorf("bare integer delay: got %v", procs.Delay)
	}

	worker := c.Feeds["worker"]
	if worker.Dir != "/var/www/my-app" || worker.Command != "php /var/www/my-app/artisan queue:work" {
		t.Errorf("exec interpolation: %+v", worker)
	}
	if worker.AutoRequestEnabled() {
		t.Error("auto_request: false was ignored")
	}
	if c.Feeds["app-log"].File != "/var/www/my-app/storage/logs/laravel.log" {
		t.Errorf("file interpolation: got %q", c.Feeds["app-log"].File)
	}

	if errs := Validate(c); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestParseInvalidDuration(t *testing.T) {
	_, err := Parse([]byte("version: 1\nfeeds:\n  x:\n    kind: procfs\n    delay: soon\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("err = %v", err)
	}
}

func TestDefaultSocket(t *testing.T) {
	c := &Config{}
	if c.SocketPath() != DefaultSocket {
		t.Errorf("got %q", c.SocketPath())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		feeds map[string]Feed
		want  string
	}{
		{"no feeds", map[string]Feed{}, "at least one feed"},
		{"missing kind", map[string]Feed{"x": {}}, "kind is required"},
		{"unknown kind", map[string]Feed{"x": {Kind: "foobar"}}, "unknown kind"},
		{"static value", map[string]Feed{"x": {Kind: KindStatic}}, "value is required"},
		{"systemd units", map[string]Feed{"x": {Kind: KindSystemd}}, "units is required"},
		{"journald unit", map[string]Feed{"x": {Kind: KindJournald}}, "unit is required"},
		{"filetail file", map[string]Feed{"x": {Kind: KindFiletail}}, "file is required"},
		{"compose file", map[string]Feed{"x": {Kind: KindCompose}}, "file is required"},
		{"exec command", map[string]Feed{"x": {Kind: KindExec}}, "command is required"},
		{"exec restart", map[string]Feed{"x": {Kind: KindExec, Command: "foo", Restart: "bogus"}}, "restart must be"},
		{"http url", map[string]Feed{"x": {Kind: KindHTTP}}, "url is required"},
		{"http scheme", map[string]Feed{"x": {Kind: KindHTTP, URL: "ws://h"}}, "scheme must be http or https"},
		{"websocket scheme", map[string]Feed{"x": {Kind: KindWebsocket, URL: "https://h"}}, "scheme must be ws or wss"},
		{"negative delay", map[string]Feed{"x": {Kind: KindProcfs, Delay: D(-time.Second)}}, "must not be negative"},
		{"publish without nats", map[string]Feed{"x": {Kind: KindProcfs, Publish: true}}, "publish requires"},
		{"empty field", map[string]Feed{"x": {Kind: KindProcfs, Require: []string{""}}}, "empty field"},
		{"name with space", map[string]Feed{"a b": {Kind: KindProcfs}}, "whitespace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&Config{Version: 1, Feeds: tt.feeds})
			assertHasError(t, errs, tt.want)
		})
	}
}

func TestValidateVersionMustBe1(t *testing.T) {
	c := &Config{Version: 2, Feeds: map[string]Feed{"x": {Kind: KindProcfs}}}
	assertHasError(t, Validate(c), "version must be 1")
}

func TestValidateExecValidRestartPolicies(t *testing.T) {
	for _, policy := range []string{"always", "on-failure", "never", ""} {
		c := &Config{Version: 1, Feeds: map[string]Feed{"s": {Kind: KindExec, Command: "foo", Restart: policy}}}
		if errs := Validate(c); len(errs) != 0 {
			t.Errorf("restart=%q: unexpected errors: %v", policy, errs)
		}
	}
}

func assertHasError(t *testing.T, errs []error, substr string) {
	t.Helper()
	for _, e := range errs {
		if strings.Contains(e.Error(), substr) {
			return
		}
	}
	t.Errorf("expected error containing %q, got: %v", substr, errs)
}
