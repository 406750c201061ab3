package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/perfwatch/internal/entity"
	"go.uber.org/zap"
)

func sequentialID(i int) uuid.UUID {
	var id uuid.UUID
	id[14] = byte(i >> 8)
	id[15] = byte(i)
	return id
}

func TestRecurringPlan_Patterns(t *testing.T) {
	plan := RecurringPlan{ReferencePattern: "*/30 * * * *", ChunkSize: 150}

	var channels []*entity.Channel
	// Reverse insertion order; the plan sorts by id.
	for i := 151; i >= 0; i-- {
		channels = append(channels, &entity.Channel{ID: sequentialID(i + 1)})
	}
	ref := &entity.Channel{ID: uuid.New(), IsReference: true}
	channels = append(channels, ref)

	patterns := plan.Patterns(channels)
	require.Len(t, patterns, 153)

	assert.Equal(t, "*/30 * * * *", patterns[ref.ID])
	assert.Equal(t, "0 0-23/3 * * *", patterns[sequentialID(1)])
	assert.Equal(t, "1 0-23/3 * * *", patterns[sequentialID(4)])
	assert.Equal(t, "59 0-23/3 * * *", patterns[sequentialID(150)])
	assert.Equal(t, "0 1-23/3 * * *", patterns[sequentialID(151)])
	assert.Equal(t, "0 1-23/3 * * *", patterns[sequentialID(152)])
}

func TestRecurringPlan_ChunksCycleEveryThreeHours(t *testing.T) {
	plan := RecurringPlan{ChunkSize: 1}
	var channels []*entity.Channel
	for i := 1; i <= 4; i++ {
		channels = append(channels, &entity.Channel{ID: sequentialID(i)})
	}

	patterns := plan.Patterns(channels)
	for i, hour := range []int{0, 1, 2, 0} {
		assert.Equal(t, fmt.Sprintf("0 %d-23/3 * * *", hour), patterns[sequentialID(i+1)])
	}
}

type recurringFixture struct {
	channels  *fakeChannelRepo
	pages     *fakePageRepo
	reference *fakeQueue
	client    *fakeQueue
	uc        RecurringUseCase
}

func newRecurringFixture() *recurringFixture {
	pages := newFakePageRepo()
	f := &recurringFixture{
		channels:  newFakeChannelRepo(pages),
		pages:     pages,
		reference: newFakeQueue(entity.QueueReference),
		client:    newFakeQueue(entity.QueueClient),
	}
	plan := RecurringPlan{ReferencePattern: "*/30 * * * *", ChunkSize: 150}
	f.uc = NewRecurringUseCase(f.channels, NewQueueSet(f.reference, f.client), plan, zap.NewNop())
	return f
}

func (f *recurringFixture) channelWithHome(ch entity.Channel) *entity.Channel {
	saved := f.channels.add(ch)
	f.pages.add(entity.Page{Name: "home", Path: entity.HomePath, ChannelID: saved.ID})
	return saved
}

func TestRecurringSync_RegistersCollectableChannels(t *testing.T) {
	f := newRecurringFixture()
	ctx := context.Background()

	ref := f.channelWithHome(entity.Channel{Name: "bench", InternalLink: "https://bench.example", Active: true, IsReference: true})
	client := f.channelWithHome(entity.Channel{Name: "acme", InternalLink: "https://acme.example/", Active: true})
	f.channelWithHome(entity.Channel{Name: "paused", InternalLink: "https://paused.example", Active: false})
	f.channels.add(entity.Channel{Name: "nohome", InternalLink: "https://nohome.example", Active: true})

	require.NoError(t, f.uc.Sync(ctx))

	require.Len(t, f.reference.repeat, 1)
	require.Len(t, f.client.repeat, 1)

	refDef := f.reference.repeat[RepeatKey(ref.ID)]
	require.NotNil(t, refDef)
	assert.Equal(t, "*/30 * * * *", refDef.Pattern)
	assert.Equal(t, "https://bench.example/", refDef.Payload.PageURL)

	clientDef := f.client.repeat[RepeatKey(client.ID)]
	require.NotNil(t, clientDef)
	assert.Equal(t, "0 0-23/3 * * *", clientDef.Pattern)
	assert.Equal(t, "https://acme.example/", clientDef.Payload.PageURL)
	assert.Equal(t, client.ID.String(), clientDef.Payload.ChannelID)
}

func TestRecurringSync_IsIdempotent(t *testing.T) {
	f := newRecurringFixture()
	ctx := context.Background()
	f.channelWithHome(entity.Channel{Name: "acme", InternalLink: "https://acme.example", Active: true})

	require.NoError(t, f.uc.Sync(ctx))
	require.NoError(t, f.uc.Sync(ctx))

	assert.Equal(t, 1, f.client.addRepeat)
	assert.Len(t, f.client.repeat, 1)
}

func TestRecurringSync_RemovesDeactivatedChannels(t *testing.T) {
	f := newRecurringFixture()
	ctx := context.Background()
	ch := f.channelWithHome(entity.Channel{Name: "acme", InternalLink: "https://acme.example", Active: true})
	require.NoError(t, f.uc.Sync(ctx))

	ch.Active = false
	require.NoError(t, f.channels.Update(ctx, ch))
	require.NoError(t, f.uc.Sync(ctx))

	assert.Empty(t, f.client.repeat)
}

func TestRecurringSyncChannel_MovesBetweenQueues(t *testing.T) {
	f := newRecurringFixture()
	ctx := context.Background()
	ch := f.channelWithHome(entity.Channel{Name: "acme", InternalLink: "https://acme.example", Active: true})
	require.NoError(t, f.uc.SyncChannel(ctx, ch.ID))
	require.Contains(t, f.client.repeat, RepeatKey(ch.ID))

	ch.IsReference = true
	require.NoError(t, f.channels.Update(ctx, ch))
	require.NoError(t, f.uc.SyncChannel(ctx, ch.ID))

	assert.Empty(t, f.client.repeat)
	require.Contains(t, f.reference.repeat, RepeatKey(ch.ID))
	assert.Equal(t, "*/30 * * * *", f.reference.repeat[RepeatKey(ch.ID)].Pattern)
}

func TestRecurringRemoveChannel_MissingIsNoop(t *testing.T) {
	f := newRecurringFixture()
	assert.NoError(t, f.uc.RemoveChannel(context.Background(), uuid.New()))
}
