package kv

import (
	"context"
	"sync"
)

// LocalPubSub delivers messages within one process. It stands in for Redis
// pub/sub when the service runs on the SQLite backend, where there is only
// ever one process.
type LocalPubSub struct {
	mu       sync.RWMutex
	handlers map[string][]func(message []byte)
}

func NewLocalPubSub() *LocalPubSub {
	return &LocalPubSub{handlers: make(map[string][]func(message []byte))}
}

func (p *LocalPubSub) Publish(ctx context.Context, channel string, message []byte) error {
	p.mu.RLock()
	handlers := append([]func([]byte){}, p.handlers[channel]...)
	p.mu.RUnlock()

	for _, h := range handlers {
		h(message)
	}
	return nil
}

// Subscribe registers handler until ctx is cancelled.
func (p *LocalPubSub) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	p.mu.Lock()
	p.handlers[channel] = append(p.handlers[channel], handler)
	idx := len(p.handlers[channel]) - 1
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		hs := p.handlers[channel]
		if idx < len(hs) {
			hs[idx] = func([]byte) {}
		}
	}()
	return nil
}
