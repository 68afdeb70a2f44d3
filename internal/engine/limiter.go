package engine

import "context"

// Limiter 通过带缓冲的通道实现并发上限控制。缓冲大小即上限值，
// Acquire 取得一个空位后必须由同一轮次的 Release 归还。
type Limiter struct {
	slots chan struct{}
}

func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	return &Limiter{slots: make(chan struct{}, capacity)}
}

// Acquire 阻塞直到拿到一个空位，或 ctx 结束。
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 归还一个空位。未经 Acquire 就调用属于使用错误。
func (l *Limiter) Release() {
	<-l.slots
}

// InFlight 返回当前被占用的空位数。
func (l *Limiter) InFlight() int {
	return len(l.slots)
}

// Capacity 返回上限值。
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}
