package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"rssreceptor/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu       sync.Mutex
	carriers []domain.Carrier
}

func (r *recorder) handle(_ context.Context, c domain.Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carriers = append(r.carriers, c)
}

func (r *recorder) signals() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, 0, len(r.carriers))
	for _, c := range r.carriers {
		out = append(out, c.Signal)
	}
	return out
}

func waitIdle(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.WaitIdle(ctx))
}

func TestBus_DeliversInPublishOrderAcrossProtocols(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	rec := &recorder{}
	_, err := b.Subscribe("storage", []domain.Protocol{domain.ProtocolRequireTable, domain.ProtocolDatabaseRecord}, rec.handle)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, domain.ProtocolRequireTable, "t1"))
	require.NoError(t, b.Publish(ctx, domain.ProtocolDatabaseRecord, "w1"))
	require.NoError(t, b.Publish(ctx, domain.ProtocolRequireTable, "t2"))
	require.NoError(t, b.Publish(ctx, domain.ProtocolDatabaseRecord, "w2"))

	waitIdle(t, b)
	assert.Equal(t, []any{"t1", "w1", "t2", "w2"}, rec.signals())
}

func TestBus_FansOutToEveryInterestedReceptor(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	a, c, other := &recorder{}, &recorder{}, &recorder{}
	_, err := b.Subscribe("a", []domain.Protocol{domain.ProtocolGetIDRecordset}, a.handle)
	require.NoError(t, err)
	_, err = b.Subscribe("c", []domain.Protocol{domain.ProtocolGetIDRecordset}, c.handle)
	require.NoError(t, err)
	_, err = b.Subscribe("other", []domain.Protocol{domain.ProtocolStorageFault}, other.handle)
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), domain.ProtocolGetIDRecordset, 1))
	waitIdle(t, b)

	assert.Equal(t, []any{1}, a.signals())
	assert.Equal(t, []any{1}, c.signals())
	assert.Empty(t, other.signals())
}

func TestBus_StampsCarriers(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	rec := &recorder{}
	_, err := b.Subscribe("r", []domain.Protocol{domain.ProtocolRequireTable}, rec.handle)
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), domain.ProtocolRequireTable, "x"))
	waitIdle(t, b)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.carriers, 1)
	assert.NotEmpty(t, rec.carriers[0].ID)
	assert.Equal(t, domain.ProtocolRequireTable, rec.carriers[0].Protocol)
	assert.Equal(t, fixed, rec.carriers[0].EmittedAt)
}

func TestBus_DropsCarrierWithoutReceptor(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	require.NoError(t, b.Publish(context.Background(), domain.ProtocolStorageFault, "nobody"))
	waitIdle(t, b)
}

func TestBus_HandlerMayPublish(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	replies := &recorder{}
	_, err := b.Subscribe("responder", []domain.Protocol{domain.ProtocolDatabaseRecord}, func(ctx context.Context, c domain.Carrier) {
		_ = b.Publish(ctx, domain.ProtocolGetIDRecordset, c.Signal)
	})
	require.NoError(t, err)
	_, err = b.Subscribe("requester", []domain.Protocol{domain.ProtocolGetIDRecordset}, replies.handle)
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), domain.ProtocolDatabaseRecord, "q"))
	waitIdle(t, b)
	assert.Equal(t, []any{"q"}, replies.signals())
}

func TestBus_RecoversFromHandlerPanic(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	rec := &recorder{}
	_, err := b.Subscribe("flaky", []domain.Protocol{domain.ProtocolDatabaseRecord}, func(ctx context.Context, c domain.Carrier) {
		if c.Signal == "boom" {
			panic("boom")
		}
		rec.handle(ctx, c)
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, domain.ProtocolDatabaseRecord, "boom"))
	require.NoError(t, b.Publish(ctx, domain.ProtocolDatabaseRecord, "ok"))
	waitIdle(t, b)
	assert.Equal(t, []any{"ok"}, rec.signals())
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	rec := &recorder{}
	sub, err := b.Subscribe("r", []domain.Protocol{domain.ProtocolRequireTable}, rec.handle)
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), domain.ProtocolRequireTable, 1))
	waitIdle(t, b)
	sub.Unsubscribe()
	sub.Unsubscribe()

	require.NoError(t, b.Publish(context.Background(), domain.ProtocolRequireTable, 2))
	waitIdle(t, b)
	assert.Equal(t, []any{1}, rec.signals())
}

func TestBus_Close(t *testing.T) {
	b := New(zap.NewNop())
	_, err := b.Subscribe("r", []domain.Protocol{domain.ProtocolRequireTable}, func(context.Context, domain.Carrier) {})
	require.NoError(t, err)

	b.Close()
	b.Close()

	assert.ErrorIs(t, b.Publish(context.Background(), domain.ProtocolRequireTable, 1), ErrClosed)
	_, err = b.Subscribe("late", []domain.Protocol{domain.ProtocolRequireTable}, func(context.Context, domain.Carrier) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBus_SubscribeValidates(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	_, err := b.Subscribe("nil", []domain.Protocol{domain.ProtocolRequireTable}, nil)
	assert.Error(t, err)
	_, err = b.Subscribe("none", nil, func(context.Context, domain.Carrier) {})
	assert.Error(t, err)
}

func TestBus_PublishHonorsContext(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Publish(ctx, domain.ProtocolRequireTable, 1), context.Canceled)
}
