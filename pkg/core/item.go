package core

import "fmt"

// Kind identifies the type of host item reported by a provider snapshot.
type Kind string

const (
	KindSystemd Kind = "systemd"
	KindProcess Kind = "process"
	KindDocker  Kind = "docker"
)

// State is the observed state of a host item.
type State string

const (
	StateRunning    State = "running"
	StateStopped    State = "stopped"
	StateFailed     State = "failed"
	StateUnknown    State = "unknown"
	StateRestarting State = "restarting"
)

// RestartPolicy defines how a supervised command is restarted.
type RestartPolicy string

const (
	RestartAlways    RestartPolicy = "always"
	RestartOnFailure RestartPolicy = "on-failure"
	RestartNever     RestartPolicy = "never"
)

// Item is one service, process or container inside a provider snapshot.
type Item struct {
	ID       string            `json:"id"`
	Kind     Kind              `json:"kind"`
	Name     string            `json:"name"`
	State    State             `json:"state"`
	PIDs     []int             `json:"pids,omitempty"`
	MemBytes uint64            `json:"mem_bytes,omitempty"`
	Source   map[string]string `json:"source,omitempty"`
}

// ItemID constructs an item ID from its components.
// Format: kind:provider:native_id
func ItemID(kind Kind, provider, nativeID string) string {
	return fmt.Sprintf("%s:%s:%s", kind, provider, nativeID)
}
