package service

import (
	"context"
	"sync"
	"time"
)

// taskDispatcher 在后台投递后置任务，回调应答不等待队列
// 在途数量受 slots 限制，满载或关闭后直接拒绝，由调用方计数。
type taskDispatcher struct {
	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	slots   chan struct{}
	timeout time.Duration
}

func newTaskDispatcher(limit int, timeout time.Duration) *taskDispatcher {
	if limit <= 0 {
		limit = 64
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &taskDispatcher{
		slots:   make(chan struct{}, limit),
		timeout: timeout,
	}
}

// dispatch 占用一个槽位后异步执行 fn，fn 收到独立于请求的限时上下文
func (d *taskDispatcher) dispatch(fn func(ctx context.Context)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.slots <- struct{}{}:
	default:
		return false
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		fn(ctx)
	}()
	return true
}

// drain 停止接收新任务并等待在途任务，ctx 到期时提前返回
func (d *taskDispatcher) drain(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
