package emitter

import (
	"math/rand"
	"testing"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
)

// blockOn returns a listener that parks the provider's dispatcher on the
// first value until release is closed.
func blockOn(entered chan<- struct{}, release <-chan struct{}) Listener {
	first := true
	return func(any) {
		if first {
			first = false
			close(entered)
			<-release
		}
	}
}

func TestQueuedValueDoesNotReachNextActivation(t *testing.T) {
	p := newTestProvider(nil)
	e := newTestEmitter(t, p, WithDelay(time.Hour))

	entered, release := make(chan struct{}), make(chan struct{})
	a, err := e.Subscribe(core.ChannelData, blockOn(entered, release))
	if err != nil {
		t.Fatal(err)
	}
	p.SetData("v1")
	<-entered
	p.SetData("stale")

	e.Unsubscribe(a)
	if p.IsTurnedON() {
		t.Fatal("provider ON after the last subscriber left")
	}

	fn, got := collect()
	if _, err := e.Subscribe(core.ChannelData, fn); err != nil {
		t.Fatal(err)
	}
	close(release)
	p.Flush()

	select {
	case v := <-got:
		t.Errorf("reactivated subscriber received %v queued before deactivation", v)
	default:
	}
	if v := e.CurrentData(); v != nil {
		t.Errorf("CurrentData = %v, want nil", v)
	}
	e.UnsubscribeAll()
}

func TestQueuedValueDoesNotReachNextDataBridge(t *testing.T) {
	p := newTestProvider(nil)
	e := newTestEmitter(t, p, WithDelay(time.Hour))

	if _, err := e.Subscribe(core.ChannelError, func(any) {}); err != nil {
		t.Fatal(err)
	}
	entered, release := make(chan struct{}), make(chan struct{})
	a, _ := e.Subscribe(core.ChannelData, blockOn(entered, release))
	p.SetData("v1")
	<-entered
	p.SetData("stale")

	e.Unsubscribe(a)
	if !p.IsTurnedON() {
		t.Fatal("provider OFF while an error subscriber remains")
	}

	fn, got := collect()
	e.Subscribe(core.ChannelData, fn)
	close(release)
	p.Flush()

	select {
	case v := <-got:
		t.Errorf("new data subscriber received %v queued before it attached", v)
	default:
	}

	p.SetData("fresh")
	if v := wait(t, got); v != "fresh" {
		t.Errorf("value = %v, want fresh", v)
	}
	e.UnsubscribeAll()
}

func TestRandomSubscriptionSequences(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		p := newTestProvider("v")
		e := newTestEmitter(t, p, WithDelay(time.Millisecond), WithRunImmediately(rng.Intn(2) == 0))

		var data, errs []*Subscription
		for step := 0; step < 200; step++ {
			switch op := rng.Intn(4); {
			case op == 0:
				sub, err := e.Subscribe(core.ChannelData, func(any) {})
				if err != nil {
					t.Fatalf("seed %d step %d: %v", seed, step, err)
				}
				data = append(data, sub)
			case op == 1:
				sub, err := e.Subscribe(core.ChannelError, func(any) {})
				if err != nil {
					t.Fatalf("seed %d step %d: %v", seed, step, err)
				}
				errs = append(errs, sub)
			case op == 2 && len(data) > 0:
				i := rng.Intn(len(data))
				if !e.Unsubscribe(data[i]) {
					t.Fatalf("seed %d step %d: data unsubscribe returned false", seed, step)
				}
				data = append(data[:i], data[i+1:]...)
			case op == 3 && len(errs) > 0:
				i := rng.Intn(len(errs))
				if !e.Unsubscribe(errs[i]) {
					t.Fatalf("seed %d step %d: error unsubscribe returned false", seed, step)
				}
				errs = append(errs[:i], errs[i+1:]...)
			}

			if got, want := e.Active(), len(data) > 0; got != want {
				t.Fatalf("seed %d step %d: Active = %v with %d data subscribers", seed, step, got, len(data))
			}
			if got, want := p.IsTurnedON(), len(data)+len(errs) > 0; got != want {
				t.Fatalf("seed %d step %d: IsTurnedON = %v with %d subscribers", seed, step, got, len(data)+len(errs))
			}
			if len(data)+len(errs) == 0 && e.CurrentData() != nil {
				t.Fatalf("seed %d step %d: CurrentData = %v with no subscribers", seed, step, e.CurrentData())
			}
		}
		e.UnsubscribeAll()
		p.Flush()
		if e.CurrentData() != nil {
			t.Fatalf("seed %d: CurrentData = %v after UnsubscribeAll", seed, e.CurrentData())
		}
	}
}
