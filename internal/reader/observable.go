package reader

import "sync"

// Value is an observable value holder: current value plus conflated
// change notification. Subscribers that lag only see the latest value.
type Value[T any] struct {
	mu   sync.Mutex
	v    T
	subs map[int]chan T
	next int
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[int]chan T)}
}

func (o *Value[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	o.v = v
	for _, ch := range o.subs {
		conflatedSend(ch, v)
	}
	o.mu.Unlock()
}

// Update applies fn to the current value under the lock and publishes
// the result.
func (o *Value[T]) Update(fn func(T) T) T {
	o.mu.Lock()
	o.v = fn(o.v)
	v := o.v
	for _, ch := range o.subs {
		conflatedSend(ch, v)
	}
	o.mu.Unlock()
	return v
}

// Subscribe returns a channel receiving value changes and a cancel
// function. The channel has a single slot; stale values are dropped.
func (o *Value[T]) Subscribe() (<-chan T, func()) {
	o.mu.Lock()
	id := o.next
	o.next++
	ch := make(chan T, 1)
	o.subs[id] = ch
	o.mu.Unlock()

	cancel := func() {
		o.mu.Lock()
		if _, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(ch)
		}
		o.mu.Unlock()
	}
	return ch, cancel
}

func conflatedSend[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		// Slot occupied by a stale value, replace it.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
