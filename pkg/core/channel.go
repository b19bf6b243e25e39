package core

import "fmt"

// Channel names a subscriber-facing emitter channel.
type Channel string

const (
	ChannelData  Channel = "data"
	ChannelError Channel = "error"
)

// Channels lists the supported channels in dispatch order.
var Channels = []Channel{ChannelData, ChannelError}

// Valid reports whether c is a supported channel.
func (c Channel) Valid() bool {
	return c == ChannelData || c == ChannelError
}

// ParseChannel converts a channel name received from a caller.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedChannel, s)
	}
	return c, nil
}
