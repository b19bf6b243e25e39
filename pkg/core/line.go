package core

// Line is a single line of output produced by a push provider
// (file tail, journal, supervised command).
type Line struct {
	Source   string `json:"source"`
	TsUnixMs int64  `json:"ts_unix_ms"`
	Stream   string `json:"stream"` // "stdout", "stderr", "journal", "file"
	Line     string `json:"line"`
}
