package transport

import (
	"context"
	"sort"
	"sync"
)

const localPendingSize = 64

type localLink struct {
	out    chan<- []byte
	in     <-chan []byte
	done   chan struct{}
	closer *sync.Once
}

func (l *localLink) send(ctx context.Context, data []byte) error {
	select {
	case l.out <- data:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *localLink) recv(ctx context.Context) ([]byte, error) {
	select {
	case data := <-l.in:
		return data, nil
	case <-l.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *localLink) close() error {
	l.closer.Do(func() { close(l.done) })
	return nil
}

// LocalHub connects in-process workers to a coordinator over Go channels.
type LocalHub struct {
	mu      sync.Mutex
	nextID  int
	pending chan Channel
	done    chan struct{}
	once    sync.Once
}

// NewLocalHub lets up to capacity workers connect before the coordinator accepts.
func NewLocalHub(capacity int) *LocalHub {
	if capacity < 1 {
		capacity = localPendingSize
	}
	return &LocalHub{
		nextID:  1,
		pending: make(chan Channel, capacity),
		done:    make(chan struct{}),
	}
}

// Connect registers a worker and returns its end of the link. Ids are handed out from 1 in
// connection order.
func (h *LocalHub) Connect(ctx context.Context) (Channel, error) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.mu.Unlock()

	up := make(chan []byte, 1)
	down := make(chan []byte, 1)
	done := make(chan struct{})
	once := &sync.Once{}
	worker := &codecChannel{id: id, link: &localLink{out: up, in: down, done: done, closer: once}}
	coordinator := &codecChannel{id: id, link: &localLink{out: down, in: up, done: done, closer: once}}

	select {
	case h.pending <- coordinator:
		return worker, nil
	case <-h.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *LocalHub) Accept(ctx context.Context, n int) ([]Channel, error) {
	channels := make([]Channel, 0, n)
	for len(channels) < n {
		select {
		case ch := <-h.pending:
			channels = append(channels, ch)
		case <-h.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID() < channels[j].ID() })
	return channels, nil
}

func (h *LocalHub) Close() error {
	h.once.Do(func() { close(h.done) })
	return nil
}
