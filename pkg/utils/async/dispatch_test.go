package async_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/utils/async"
)

func waitAll(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	gt.NoError(t, async.Wait(ctx))
}

func TestDispatch(t *testing.T) {
	t.Run("runs every handler", func(t *testing.T) {
		var counter atomic.Int32
		for i := 0; i < 10; i++ {
			async.Dispatch(context.Background(), func(ctx context.Context) error {
				counter.Add(1)
				return nil
			})
		}
		waitAll(t)
		gt.Equal(t, counter.Load(), int32(10))
	})

	t.Run("errors and panics do not escape", func(t *testing.T) {
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			return goerr.New("webhook failed")
		})
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
		waitAll(t)
	})

	t.Run("outlives the caller's cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var ctxErr error
		async.Dispatch(ctx, func(ctx context.Context) error {
			ctxErr = ctx.Err()
			return nil
		})
		waitAll(t)
		gt.NoError(t, ctxErr)
	})
}

func TestDispatchKeepsAuthContext(t *testing.T) {
	var (
		mu      sync.Mutex
		results = map[string]string{}
	)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("user-%d", i)
		ctx := model.WithAuthContext(context.Background(), &model.AuthContext{UserID: "u", Email: id + "@example.com"})

		async.Dispatch(ctx, func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			authCtx, ok := model.GetAuthContext(ctx)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				results[id] = authCtx.Email
			}
			return nil
		})
	}
	waitAll(t)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("user-%d", i)
		gt.Equal(t, results[id], id+"@example.com")
	}
}

func TestWaitHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	async.Dispatch(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	gt.Error(t, async.Wait(ctx))

	close(release)
	waitAll(t)
}
