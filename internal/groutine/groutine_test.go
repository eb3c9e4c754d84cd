package groutine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGo_NamesContext(t *testing.T) {
	names := make(chan string, 1)
	Go(nil, "worker-1", func(ctx context.Context) {
		names <- GetName(ctx)
	})
	assert.Equal(t, "worker-1", <-names)
	assert.Equal(t, "", GetName(context.Background()))
}

func TestGroup_Wait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGroup(ctx)

	var finished atomic.Int32
	for i := 0; i < 5; i++ {
		g.Go("waiter", func(ctx context.Context) {
			<-ctx.Done()
			finished.Add(1)
		})
	}
	cancel()
	g.Wait()
	assert.Equal(t, int32(5), finished.Load())
}
