package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskflow/contracts/event"
	"taskflow/internal/model"
	"taskflow/pkg/config"
)

type fakeStore struct {
	tasks   []model.Task
	listErr error
	markErr error
	marked  [][]string
}

func (f *fakeStore) ListPendingReminders(ctx context.Context) ([]model.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	// Tasks already marked sent fall out of the next scan.
	var pending []model.Task
	for _, t := range f.tasks {
		if !t.ReminderSent {
			pending = append(pending, t)
		}
	}
	return pending, nil
}

func (f *fakeStore) MarkRemindersSent(ctx context.Context, taskIDs []string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, taskIDs)
	for _, id := range taskIDs {
		for i := range f.tasks {
			if f.tasks[i].ID == id {
				f.tasks[i].ReminderSent = true
			}
		}
	}
	return nil
}

type fakePublisher struct {
	failFor   map[string]bool
	published []event.Envelope
}

func (f *fakePublisher) Publish(routingKey string, payload any) error {
	env, ok := payload.(event.Envelope)
	if !ok {
		return errors.New("unexpected payload type")
	}
	var reminder event.ReminderEvent
	if err := json.Unmarshal(env.Data, &reminder); err != nil {
		return err
	}
	if f.failFor[reminder.TaskID] {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, env)
	return nil
}

func newTestScheduler(store *fakeStore, pub *fakePublisher) *Scheduler {
	cfg := config.SchedulerConfig{PollIntervalSeconds: 1}
	return New(cfg, store, pub, zap.NewNop())
}

func dueTask(id string) model.Task {
	remindAt := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	return model.Task{ID: id, UserID: "u1", Title: "task " + id, RemindAt: &remindAt}
}

func TestPollOncePublishesAndMarks(t *testing.T) {
	store := &fakeStore{tasks: []model.Task{dueTask("t1"), dueTask("t2")}}
	pub := &fakePublisher{}
	s := newTestScheduler(store, pub)

	require.NoError(t, s.PollOnce(context.Background()))

	require.Len(t, pub.published, 2)
	assert.Equal(t, event.TypeReminderTriggered, pub.published[0].Type)
	assert.Equal(t, "scheduler", pub.published[0].Source)
	assert.NotEmpty(t, pub.published[0].ID)
	require.Len(t, store.marked, 1)
	assert.ElementsMatch(t, []string{"t1", "t2"}, store.marked[0])
}

func TestPollOnceIsIdempotentAcrossScans(t *testing.T) {
	store := &fakeStore{tasks: []model.Task{dueTask("t1")}}
	pub := &fakePublisher{}
	s := newTestScheduler(store, pub)

	require.NoError(t, s.PollOnce(context.Background()))
	require.NoError(t, s.PollOnce(context.Background()))

	assert.Len(t, pub.published, 1, "a marked task must not be republished")
}

func TestPollOncePublishFailureLeavesTaskEligible(t *testing.T) {
	store := &fakeStore{tasks: []model.Task{dueTask("t1"), dueTask("t2")}}
	pub := &fakePublisher{failFor: map[string]bool{"t1": true}}
	s := newTestScheduler(store, pub)

	require.NoError(t, s.PollOnce(context.Background()))

	// t2 still went out and was marked; t1 stays eligible.
	require.Len(t, pub.published, 1)
	require.Len(t, store.marked, 1)
	assert.Equal(t, []string{"t2"}, store.marked[0])

	pub.failFor = nil
	require.NoError(t, s.PollOnce(context.Background()))
	assert.Len(t, pub.published, 2, "t1 is retried on the next scan")
}

func TestPollOnceListError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	s := newTestScheduler(store, &fakePublisher{})

	assert.Error(t, s.PollOnce(context.Background()))
}

func TestStartStopLifecycle(t *testing.T) {
	store := &fakeStore{}
	s := newTestScheduler(store, &fakePublisher{})

	assert.False(t, s.IsRunning())
	s.Start()
	assert.True(t, s.IsRunning())
	s.Start() // second Start is a no-op
	assert.True(t, s.IsRunning())

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop() // Stop when stopped is a no-op
}

type blockingStore struct {
	started chan struct{}
	release chan struct{}
	polls   int32
}

func (b *blockingStore) ListPendingReminders(ctx context.Context) ([]model.Task, error) {
	atomic.AddInt32(&b.polls, 1)
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return nil, nil
}

func (b *blockingStore) MarkRemindersSent(ctx context.Context, taskIDs []string) error {
	return nil
}

func TestStopTimeoutKeepsRunningState(t *testing.T) {
	store := &blockingStore{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cfg := config.SchedulerConfig{PollIntervalSeconds: 3600}
	s := New(cfg, store, &fakePublisher{}, zap.NewNop())
	s.stopGrace = 20 * time.Millisecond

	s.Start()
	select {
	case <-store.started:
	case <-time.After(time.Second):
		t.Fatal("poll loop never started")
	}

	s.Stop()
	assert.True(t, s.IsRunning(), "a loop that outlived the grace period is still running")

	// Start must not put a second loop beside the stuck one.
	s.Start()

	close(store.release)
	s.stopGrace = time.Second
	s.Stop()
	assert.False(t, s.IsRunning())
	assert.EqualValues(t, 1, atomic.LoadInt32(&store.polls))
}

func TestDisabledSchedulerDoesNotStart(t *testing.T) {
	enabled := false
	cfg := config.SchedulerConfig{PollIntervalSeconds: 1, Enabled: &enabled}
	s := New(cfg, &fakeStore{}, &fakePublisher{}, zap.NewNop())

	s.Start()
	assert.False(t, s.IsRunning())
}
