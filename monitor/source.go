package monitor

import "sync"

// Signal is a user-activity event kind. The set mirrors the interaction
// events the web client listened for.
type Signal string

const (
	SignalMouseDown  Signal = "mousedown"
	SignalMouseMove  Signal = "mousemove"
	SignalKeyPress   Signal = "keypress"
	SignalKeyDown    Signal = "keydown"
	SignalScroll     Signal = "scroll"
	SignalTouchStart Signal = "touchstart"
	SignalClick      Signal = "click"
)

// ActivitySignals returns the fixed set of signals that count as user
// activity.
func ActivitySignals() []Signal {
	return []Signal{
		SignalMouseDown, SignalMouseMove, SignalKeyPress,
		SignalScroll, SignalTouchStart, SignalClick, SignalKeyDown,
	}
}

// Source is an abstract user-activity event source. Hosts bridge their UI
// event loop into one of these. AddListener returns a remove function;
// teardown is the listener owner's responsibility, so no listeners survive a
// monitor stop.
type Source interface {
	AddListener(kind Signal, fn func(Signal)) (remove func())
}

// FanSource is a Source fed programmatically via Emit. It is the bridge for
// hosts without a native event bus, and the test double for the monitor.
type FanSource struct {
	lock      sync.RWMutex
	nextID    int
	listeners map[Signal]map[int]func(Signal)
}

var _ Source = (*FanSource)(nil)

// NewFanSource creates an empty FanSource.
func NewFanSource() *FanSource {
	return &FanSource{listeners: make(map[Signal]map[int]func(Signal))}
}

// AddListener registers fn for a signal kind and returns its remover.
func (f *FanSource) AddListener(kind Signal, fn func(Signal)) func() {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.listeners[kind] == nil {
		f.listeners[kind] = make(map[int]func(Signal))
	}
	id := f.nextID
	f.nextID++
	f.listeners[kind][id] = fn

	return func() {
		f.lock.Lock()
		defer f.lock.Unlock()
		delete(f.listeners[kind], id)
	}
}

// Emit dispatches a signal to its listeners, synchronously.
func (f *FanSource) Emit(kind Signal) {
	f.lock.RLock()
	fns := make([]func(Signal), 0, len(f.listeners[kind]))
	for _, fn := range f.listeners[kind] {
		fns = append(fns, fn)
	}
	f.lock.RUnlock()

	for _, fn := range fns {
		fn(kind)
	}
}

// ListenerCount reports how many listeners are registered across all kinds.
func (f *FanSource) ListenerCount() int {
	f.lock.RLock()
	defer f.lock.RUnlock()

	count := 0
	for _, m := range f.listeners {
		count += len(m)
	}
	return count
}
