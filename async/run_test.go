package async

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert := assert.New(t)
	a := <-Run(func() int {
		return 123
	})
	assert.Equal(123, a)
}

func TestRunResult(t *testing.T) {
	assert := assert.New(t)
	a := <-RunResult(func() (int, error) {
		return 123, nil
	})
	assert.Equal(123, a.Value)
	assert.False(a.IsErr())
	b := <-RunResult(func() (int, error) {
		return 0, fmt.Errorf("error")
	})
	assert.True(b.IsErr())
}

func TestRunClosesAfterResult(t *testing.T) {
	assert := assert.New(t)
	c := Run(func() int { return 1 })
	assert.Equal(1, <-c)
	v, ok := <-c
	assert.False(ok)
	assert.Equal(0, v)
}

func TestAwait(t *testing.T) {
	assert := assert.New(t)
	v, err := Await(context.Background(), RunResult(func() (string, error) {
		return "done", nil
	}))
	assert.NoError(err)
	assert.Equal("done", v)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)
	result := RunResult(func() (string, error) {
		<-release
		return "late", nil
	})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	v, err = Await(ctx, result)
	assert.ErrorIs(err, context.Canceled)
	assert.Equal("", v)

	v, err = Await(context.Background(), RunResult(func() (string, error) {
		return "partial", fmt.Errorf("failed")
	}))
	assert.EqualError(err, "failed")
	assert.Equal("", v)
}
