package emitter_test

import (
	"fmt"
	"log"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/emitter"
	"github.com/modoterra/livefeed/pkg/provider"
)

type hello struct{ *provider.Base }

func (h *hello) TurnON() error {
	if h.IsTurnedON() {
		return nil
	}
	h.Listen(core.SignalWantsData, func(any) { h.SetData("Hello world!") })
	return h.Base.TurnON()
}

func Example() {
	e := emitter.New(
		emitter.WithDelay(100*time.Millisecond),
		emitter.WithRunImmediately(true),
	)
	if err := e.RegisterProvider(&hello{provider.NewBase()}); err != nil {
		log.Fatal(err)
	}

	got := make(chan any, 1)
	if _, err := e.Once(core.ChannelData, func(v any) { got <- v }); err != nil {
		log.Fatal(err)
	}
	fmt.Println(<-got)
	fmt.Println(e.Provider().IsTurnedON())
	// Output:
	// Hello world!
	// false
}
