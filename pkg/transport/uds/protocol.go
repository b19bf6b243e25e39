package uds

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

var reqCounter atomic.Uint64

// MsgType identifies the kind of message.
type MsgType string

const (
	MsgTypeReq MsgType = "req"
	MsgTypeRes MsgType = "res"
	MsgTypeEvt MsgType = "evt"
)

// Message is the NDJSON envelope for all communication.
type Message struct {
	Type   MsgType         `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// UnmarshalData decodes the message payload into v. An empty payload
// leaves v untouched.
func (m Message) UnmarshalData(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Method, err)
	}
	return nil
}

func marshalData(data any) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}

// NewRequest creates a new request message with a unique ID.
func NewRequest(method string, data any) (Message, error) {
	raw, err := marshalData(data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Type:   MsgTypeReq,
		ID:     fmt.Sprintf("req-%d", reqCounter.Add(1)),
		Method: method,
		Data:   raw,
	}, nil
}

// NewResponse creates a response to a request.
func NewResponse(reqID, method string, data any) (Message, error) {
	raw, err := marshalData(data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Type:   MsgTypeRes,
		ID:     reqID,
		Method: method,
		Data:   raw,
	}, nil
}

// NewErrorResponse creates an error response.
func NewErrorResponse(reqID, method, errMsg string) Message {
	return Message{
		Type:   MsgTypeRes,
		ID:     reqID,
		Method: method,
		Error:  errMsg,
	}
}

// NewEvent creates a server-pushed event.
func NewEvent(method string, data any) (Message, error) {
	raw, err := marshalData(data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Type:   MsgTypeEvt,
		ID:     fmt.Sprintf("evt-%d", reqCounter.Add(1)),
		Method: method,
		Data:   raw,
	}, nil
}

// Methods
const (
	MethodPing        = "Ping"
	MethodListFeeds   = "ListFeeds"
	MethodSubscribe   = "Subscribe"
	MethodUnsubscribe = "Unsubscribe"
	MethodGetCurrent  = "GetCurrent"

	EventFeedData  = "feed.data"
	EventFeedError = "feed.error"
)

// PingResponse is the response to a Ping request.
type PingResponse struct {
	Pong    bool   `json:"pong"`
	Version string `json:"version,omitempty"`
}

// FeedInfo describes one configured feed.
type FeedInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Delay       string `json:"delay"`
	Active      bool   `json:"active"`
	Provider    string `json:"provider"`
	DataSubs    int    `json:"data_subs"`
	ErrorSubs   int    `json:"error_subs"`
	HasSnapshot bool   `json:"has_snapshot"`
	State       string `json:"state,omitempty"`
	PID         int    `json:"pid,omitempty"`
}

// ListFeedsResponse is the response to a ListFeeds request.
type ListFeedsResponse struct {
	Feeds []FeedInfo `json:"feeds"`
}

// SubscribeRequest asks the daemon to forward a feed's channels to the
// calling connection. An empty channel list means data only. Fields
// projects every data event.
type SubscribeRequest struct {
	Feed     string   `json:"feed"`
	Channels []string `json:"channels,omitempty"`
	Fields   []string `json:"fields,omitempty"`
}

// SubscriptionInfo identifies one daemon-side subscription.
type SubscriptionInfo struct {
	ID      string `json:"id"`
	Feed    string `json:"feed"`
	Channel string `json:"channel"`
}

// SubscribeResponse is the response to a Subscribe request.
type SubscribeResponse struct {
	Subscriptions []SubscriptionInfo `json:"subscriptions"`
}

// UnsubscribeRequest cancels subscriptions by id. An empty list cancels
// every subscription held by the connection.
type UnsubscribeRequest struct {
	IDs []string `json:"ids,omitempty"`
}

// UnsubscribeResponse reports how many subscriptions were removed.
type UnsubscribeResponse struct {
	Removed int `json:"removed"`
}

// GetCurrentRequest asks for the last accepted snapshot of a feed. With
// Fresh set and no snapshot held, the daemon waits for the next one.
type GetCurrentRequest struct {
	Feed   string   `json:"feed"`
	Fields []string `json:"fields,omitempty"`
	Fresh  bool     `json:"fresh,omitempty"`
}

// GetCurrentResponse carries the snapshot, or null if none is held.
type GetCurrentResponse struct {
	Feed string          `json:"feed"`
	Data json.RawMessage `json:"data"`
}

// FeedEvent is the payload of feed.data and feed.error events.
type FeedEvent struct {
	Feed     string          `json:"feed"`
	Channel  string          `json:"channel"`
	TsUnixMs int64           `json:"ts_unix_ms"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
}
