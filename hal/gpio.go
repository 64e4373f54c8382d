package hal

/*-------------------------------------------------------------
 *
 * Purpose:	GPIO bind-button input, bridged to the single active
 *		air.Link the way an embedded ISR would: a package-level
 *		slot set at startup, read (never allocated into) from the
 *		edge-watcher goroutine.
 *
 * spec.md's scheduling model (Design Notes) describes the GPIO ISR as
 * one of two interrupt contexts alongside the radio DIO interrupt, each
 * task owning its state exclusively. go-gpiocdev's line watcher plays
 * that role here; RegisterActiveLink/UnregisterActiveLink stand in for
 * hal_gpio_set_isr's single registered callback slot.
 *
 *--------------------------------------------------------------*/

import (
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// buttonEdgeHandler is the narrow interface HandleButtonEdge needs;
// air.Link satisfies it without hal importing air.
type buttonEdgeHandler interface {
	HandleButtonEdge()
}

var activeLink atomic.Pointer[buttonEdgeHandlerBox]

// buttonEdgeHandlerBox lets us store an interface value in an
// atomic.Pointer, which requires a concrete pointee type.
type buttonEdgeHandlerBox struct {
	h buttonEdgeHandler
}

// RegisterActiveLink installs l as the target of button edge events.
// Only one link may be registered at a time; a later call replaces the
// earlier registration.
func RegisterActiveLink(l buttonEdgeHandler) {
	activeLink.Store(&buttonEdgeHandlerBox{h: l})
}

// UnregisterActiveLink clears the registration installed by
// RegisterActiveLink.
func UnregisterActiveLink() {
	activeLink.Store(nil)
}

// GPIOButton watches one GPIO line for falling edges (button press,
// active-low) and dispatches them to the registered active link.
type GPIOButton struct {
	line *gpiocdev.Line
}

// OpenGPIOButton requests offset on chip (e.g. "gpiochip0") as an
// input with a falling-edge watcher. The debounce argument is not
// applied; every falling edge is delivered.
func OpenGPIOButton(chip string, offset int, debounce int) (*GPIOButton, error) {
	b := &GPIOButton{}

	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(b.handleEvent),
	)
	if err != nil {
		return nil, err
	}

	b.line = line
	return b, nil
}

func (b *GPIOButton) handleEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}

	box := activeLink.Load()
	if box == nil || box.h == nil {
		return
	}

	box.h.HandleButtonEdge()
}

// Close releases the underlying GPIO line request.
func (b *GPIOButton) Close() error {
	return b.line.Close()
}
