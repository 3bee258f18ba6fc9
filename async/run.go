package async

import (
	"context"

	"github.com/alanbriolat/youtube-to-go/generic"
)

// Run will run a function in a goroutine, returning its result via a channel. The channel is buffered, so the
// goroutine finishes even if nobody receives the result, and closed after the result is sent.
func Run[T any](f func() T) <-chan T {
	c := make(chan T, 1)
	go func() {
		c <- f()
		close(c)
	}()
	return c
}

// RunResult is like Run, but for functions returning (T, error).
func RunResult[T any](f func() (T, error)) <-chan generic.Result[T] {
	return Run(func() generic.Result[T] {
		return generic.NewResult(f())
	})
}

// Await waits for the result of RunResult, or for ctx to be done. In the latter case ctx.Err() is returned without
// waiting for f, which is expected to notice the same cancellation itself; receive from c again to wait for it.
func Await[T any](ctx context.Context, c <-chan generic.Result[T]) (T, error) {
	select {
	case result := <-c:
		if result.IsErr() {
			var zero T
			return zero, result.Error
		}
		return result.Value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
