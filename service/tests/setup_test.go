package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/heartfolio/kv"
	kvmocks "github.com/zlnvch/heartfolio/kv/mocks"
	mqmocks "github.com/zlnvch/heartfolio/mq/mocks"
	objmocks "github.com/zlnvch/heartfolio/objects/mocks"
	"github.com/zlnvch/heartfolio/repository"
	"github.com/zlnvch/heartfolio/service"
	storemocks "github.com/zlnvch/heartfolio/store/mocks"
	"github.com/zlnvch/heartfolio/worker"
)

type fixture struct {
	svc       *service.Service
	store     *storemocks.MemoryStore
	backend   *kvmocks.MemoryBackend
	mq        *mqmocks.MockMQ
	pubsub    *kvmocks.MockPubSub
	images    *objmocks.MockImageStore
	persister *worker.Persister
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, false)
}

// setupLocalService keeps entity records in the key-value workspace, the
// device-mode layout.
func setupLocalService(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, true)
}

func newFixture(t *testing.T, local bool) *fixture {
	t.Helper()
	f := &fixture{
		store:     storemocks.NewMemoryStore(),
		backend:   kvmocks.NewMemoryBackend(),
		mq:        new(mqmocks.MockMQ),
		pubsub:    new(kvmocks.MockPubSub),
		images:    new(objmocks.MockImageStore),
		persister: worker.NewPersister(64, time.Second),
	}

	workspace := kv.NewScopedStore(f.backend)
	repos := repository.NewRemote(f.store)
	if local {
		repos = repository.NewLocal(workspace)
	}

	svc, err := service.NewService(
		f.store,
		repos,
		workspace,
		f.pubsub,
		f.images,
		f.mq,
		f.persister,
		nil,
		[]byte("secret"),
	)
	assert.NoError(t, err)
	// Midpoint of every random range: no jitter, middle of every palette
	svc.Random = func() float64 { return 0.5 }
	f.svc = svc
	return f
}

// drain runs the persister until every queued write has executed.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.persister.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("persister did not stop")
	}
}

// Helper that creates a channel and wraps a mock call to signal when it's called
func wrapMockWithSignal(call *mock.Call) chan struct{} {
	done := make(chan struct{})
	call.Run(func(args mock.Arguments) {
		close(done)
	})
	return done
}

func waitFor(t *testing.T, done chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		assert.Fail(t, "timed out waiting for "+what)
	}
}
