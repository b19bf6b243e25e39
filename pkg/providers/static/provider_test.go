package static

import (
	"testing"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/emitter"
)

func TestStatic_WithEmitter(t *testing.T) {
	e := emitter.New(emitter.WithDelay(10*time.Millisecond), emitter.WithName("static-test"))
	if err := e.RegisterProvider(New("Hello world!")); err != nil {
		t.Fatal(err)
	}

	got := make(chan any, 4)
	sub, err := e.Subscribe(core.ChannelData, func(v any) {
		select {
		case got <- v:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Unsubscribe(sub)

	select {
	case v := <-got:
		if v != "Hello world!" {
			t.Errorf("value = %v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no value")
	}
}

func TestStatic_OFFIgnoresRequests(t *testing.T) {
	p := New(1)
	p.RequestData(nil)
	if p.Data() != nil {
		t.Errorf("OFF provider produced %v", p.Data())
	}
}
