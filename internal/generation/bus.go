package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrBusClosed 总线已关闭
var ErrBusClosed = errors.New("event bus is closed")

// Bus 进程内事件总线，CLI 通过它把进度事件分发给终端输出等订阅方。
// 不持久化；Publish 阻塞直到每个订阅方都收到事件或 ctx 取消。
type Bus struct {
	mu        sync.RWMutex
	subs      map[uint64]chan Event
	nextID    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan Event)}
}

// Subscribe 订阅事件，返回接收通道与取消订阅函数。
// 总线关闭后通道被关闭；订阅方在取消订阅前需持续读取通道。
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID.Add(1)
	b.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, unsubscribe
}

// subscriberCount 当前订阅方数量
func (b *Bus) subscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish 把事件投递给所有订阅方
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		case <-ctx.Done():
			return fmt.Errorf("event publish canceled: %w", ctx.Err())
		}
	}
	return nil
}

// Notify 实现 Notifier
func (b *Bus) Notify(ctx context.Context, evt Event) error {
	return b.Publish(ctx, evt)
}

// Close 关闭总线及所有订阅通道
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.closed.Store(true)

		b.mu.Lock()
		defer b.mu.Unlock()
		for id, ch := range b.subs {
			close(ch)
			delete(b.subs, id)
		}
	})
}
