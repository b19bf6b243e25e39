package provider

import (
	"errors"
	"sync"
	"testing"

	"github.com/modoterra/livefeed/pkg/core"
)

func TestBase_StartsOFF(t *testing.T) {
	b := NewBase()
	if b.IsTurnedON() {
		t.Fatal("new provider should be OFF")
	}
	if b.Status() != core.StatusOFF {
		t.Errorf("status = %q, want OFF", b.Status())
	}
	if err := b.TurnON(); err != nil {
		t.Fatal(err)
	}
	if !b.IsTurnedON() {
		t.Error("expected ON after TurnON")
	}
	if err := b.TurnOFF(); err != nil {
		t.Fatal(err)
	}
	if b.IsTurnedON() {
		t.Error("expected OFF after TurnOFF")
	}
}

func TestBase_Bind(t *testing.T) {
	b := NewBase()
	if err := b.Bind(); err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	if err := b.Bind(); !errors.Is(err, core.ErrProviderInUse) {
		t.Errorf("second Bind = %v, want ErrProviderInUse", err)
	}
}

func TestBase_RequestDataIsSynchronous(t *testing.T) {
	b := NewBase()
	var got any
	b.Listen(core.SignalWantsData, func(opts any) { got = opts })
	b.RequestData("x")
	if got != "x" {
		t.Errorf("wantsData payload = %v, want x", got)
	}
}

func TestBase_SetDataDeliversInOrder(t *testing.T) {
	b := NewBase()
	var mu sync.Mutex
	var got []any
	b.Listen(core.SignalData, func(v any) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})

	for i := 0; i < 100; i++ {
		b.SetData(i)
	}
	b.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 100 {
		t.Fatalf("delivered %d, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %v, out of order", i, v)
		}
	}
	if b.Data() != 99 {
		t.Errorf("Data() = %v, want 99", b.Data())
	}
}

func TestBase_SetErrorWithoutListenersIsDropped(t *testing.T) {
	b := NewBase()
	b.SetError(errors.New("boom"))
	b.Flush()

	var got error
	b.Listen(core.SignalError, func(v any) { got = v.(error) })
	b.Flush()
	if got != nil {
		t.Errorf("late listener saw %v", got)
	}
}

func TestBase_CancelListener(t *testing.T) {
	b := NewBase()
	calls := 0
	cancel := b.Listen(core.SignalWantsData, func(any) { calls++ })
	other := b.Listen(core.SignalWantsData, func(any) {})

	b.RequestData(nil)
	cancel()
	cancel()
	b.RequestData(nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if n := b.ListenerCount(core.SignalWantsData); n != 1 {
		t.Errorf("ListenerCount = %d, want 1", n)
	}
	other()
	if n := b.ListenerCount(core.SignalWantsData); n != 0 {
		t.Errorf("ListenerCount = %d, want 0", n)
	}
}

func TestBase_RemoveAllListeners(t *testing.T) {
	b := NewBase()
	for _, sig := range []core.Signal{core.SignalData, core.SignalError, core.SignalWantsData} {
		b.Listen(sig, func(any) {})
	}
	b.RemoveAllListeners()
	for _, sig := range []core.Signal{core.SignalData, core.SignalError, core.SignalWantsData} {
		if n := b.ListenerCount(sig); n != 0 {
			t.Errorf("%s listeners = %d, want 0", sig, n)
		}
	}
}

func TestBase_DetachedBeforeDelivery(t *testing.T) {
	b := NewBase()
	block := make(chan struct{})
	first := make(chan struct{})
	var late []any

	b.Listen(core.SignalData, func(v any) {
		if v == "first" {
			close(first)
			<-block
		}
	})
	cancel := b.Listen(core.SignalData, func(v any) { late = append(late, v) })

	b.SetData("first")
	<-first
	b.SetData("second")
	cancel()
	close(block)
	b.Flush()

	if len(late) != 1 || late[0] != "first" {
		t.Errorf("detached listener saw %v, want [first]", late)
	}
}

func TestBase_ImplementsProvider(t *testing.T) {
	var _ core.Provider = NewBase()
	var _ core.Provider = NewPoll(nil)
}

func TestBase_RemoveAllListenersDropsQueued(t *testing.T) {
	b := NewBase()
	block := make(chan struct{})
	first := make(chan struct{})
	b.Listen(core.SignalData, func(v any) {
		if v == "first" {
			close(first)
			<-block
		}
	})

	b.SetData("first")
	<-first
	b.SetData("queued")
	b.RemoveAllListeners()

	var got []any
	b.Listen(core.SignalData, func(v any) { got = append(got, v) })
	close(block)
	b.Flush()

	if len(got) != 0 {
		t.Errorf("listener attached after RemoveAllListeners saw %v", got)
	}
}

func TestBase_LateListenerMissesQueued(t *testing.T) {
	b := NewBase()
	block := make(chan struct{})
	first := make(chan struct{})
	b.Listen(core.SignalData, func(v any) {
		if v == "first" {
			close(first)
			<-block
		}
	})

	b.SetData("first")
	<-first
	b.SetData("second")

	var got []any
	b.Listen(core.SignalData, func(v any) { got = append(got, v) })
	b.SetData("third")
	close(block)
	b.Flush()

	if len(got) != 1 || got[0] != "third" {
		t.Errorf("late listener saw %v, want [third]", got)
	}
}
