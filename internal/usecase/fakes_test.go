package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
)

type fakeChannelRepo struct {
	mu       sync.Mutex
	channels map[uuid.UUID]*entity.Channel
	pages    *fakePageRepo
}

func newFakeChannelRepo(pages *fakePageRepo) *fakeChannelRepo {
	return &fakeChannelRepo{channels: map[uuid.UUID]*entity.Channel{}, pages: pages}
}

func (r *fakeChannelRepo) add(ch entity.Channel) *entity.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	r.channels[ch.ID] = &ch
	return &ch
}

func (r *fakeChannelRepo) Create(_ context.Context, ch *entity.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.channels {
		if ch.InternalLink != "" && existing.InternalLink == ch.InternalLink {
			return repository.ErrDuplicate
		}
	}
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	cp := *ch
	r.channels[ch.ID] = &cp
	return nil
}

func (r *fakeChannelRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (r *fakeChannelRepo) List(_ context.Context, f entity.ChannelFilter) ([]*entity.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Channel
	for _, ch := range r.channels {
		if f.Active != nil && ch.Active != *f.Active {
			continue
		}
		if f.IsReference != nil && ch.IsReference != *f.IsReference {
			continue
		}
		if f.Theme != nil && ch.Theme != *f.Theme {
			continue
		}
		cp := *ch
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeChannelRepo) ListActiveWithHome(ctx context.Context) ([]*entity.ChannelWithHome, error) {
	active := true
	channels, _ := r.List(ctx, entity.ChannelFilter{Active: &active})
	sort.Slice(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })

	var out []*entity.ChannelWithHome
	for _, ch := range channels {
		item := &entity.ChannelWithHome{Channel: *ch}
		pages, _ := r.pages.ListByChannel(ctx, ch.ID)
		for _, p := range pages {
			if p.Path == entity.HomePath {
				item.HomePage = p
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeChannelRepo) Update(_ context.Context, ch *entity.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[ch.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.channels {
		if id != ch.ID && ch.InternalLink != "" && existing.InternalLink == ch.InternalLink {
			return repository.ErrDuplicate
		}
	}
	cp := *ch
	r.channels[ch.ID] = &cp
	return nil
}

func (r *fakeChannelRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.channels, id)
	r.pages.deleteChannel(id)
	return nil
}

type fakePageRepo struct {
	mu    sync.Mutex
	pages map[uuid.UUID]*entity.Page
}

func newFakePageRepo() *fakePageRepo {
	return &fakePageRepo{pages: map[uuid.UUID]*entity.Page{}}
}

func (r *fakePageRepo) add(p entity.Page) *entity.Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.pages[p.ID] = &p
	return &p
}

func (r *fakePageRepo) Create(_ context.Context, p *entity.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.pages {
		if existing.ChannelID == p.ChannelID && existing.Path == p.Path {
			return repository.ErrDuplicate
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.pages[p.ID] = &cp
	return nil
}

func (r *fakePageRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePageRepo) ListByChannel(_ context.Context, channelID uuid.UUID) ([]*entity.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Page
	for _, p := range r.pages {
		if p.ChannelID == channelID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (r *fakePageRepo) Update(_ context.Context, p *entity.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pages[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	r.pages[p.ID] = &cp
	return nil
}

func (r *fakePageRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pages[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.pages, id)
	return nil
}

func (r *fakePageRepo) deleteChannel(channelID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.pages {
		if p.ChannelID == channelID {
			delete(r.pages, id)
		}
	}
}

// fakeQueue is an in-memory QueueRepository.
type fakeQueue struct {
	mu        sync.Mutex
	name      entity.QueueName
	addErr    func(*entity.Job) error
	waiting   []*entity.Job
	added     []*entity.Job
	completed []*entity.Job
	failed    []*entity.Job
	reasons   []error
	repeat    map[string]*entity.RepeatDefinition
	addRepeat int
}

func newFakeQueue(name entity.QueueName) *fakeQueue {
	return &fakeQueue{name: name, repeat: map[string]*entity.RepeatDefinition{}}
}

func (q *fakeQueue) Name() entity.QueueName { return q.name }

func (q *fakeQueue) Add(_ context.Context, job *entity.Job) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.addErr != nil {
		if err := q.addErr(job); err != nil {
			return false, err
		}
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Queue = q.name
	q.added = append(q.added, job)
	q.waiting = append(q.waiting, job)
	return true, nil
}

func (q *fakeQueue) AddRepeatable(_ context.Context, def *entity.RepeatDefinition) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := *def
	q.repeat[def.Key] = &cp
	q.addRepeat++
	return nil
}

func (q *fakeQueue) RemoveRepeatable(_ context.Context, key string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.repeat[key]; !ok {
		return false, nil
	}
	delete(q.repeat, key)
	return true, nil
}

func (q *fakeQueue) Repeatables(_ context.Context) ([]*entity.RepeatDefinition, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*entity.RepeatDefinition, 0, len(q.repeat))
	for _, def := range q.repeat {
		cp := *def
		out = append(out, &cp)
	}
	return out, nil
}

func (q *fakeQueue) Promote(context.Context) (int, error) { return 0, nil }

func (q *fakeQueue) Take(context.Context) (*entity.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.waiting) == 0 {
		return nil, nil
	}
	job := q.waiting[0]
	q.waiting = q.waiting[1:]
	return job, nil
}

func (q *fakeQueue) ExtendLock(context.Context, *entity.Job) error { return nil }

func (q *fakeQueue) Complete(_ context.Context, job *entity.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completed = append(q.completed, job)
	return nil
}

func (q *fakeQueue) Fail(_ context.Context, job *entity.Job, reason error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed = append(q.failed, job)
	q.reasons = append(q.reasons, reason)
	return nil
}

func (q *fakeQueue) RecoverStalled(context.Context) (int, error) { return 0, nil }

func (q *fakeQueue) Jobs(context.Context, ...entity.JobState) ([]*entity.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*entity.Job(nil), q.waiting...), nil
}

func (q *fakeQueue) Counts(context.Context) (map[entity.JobState]int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return map[entity.JobState]int64{
		entity.JobWaiting:   int64(len(q.waiting)),
		entity.JobCompleted: int64(len(q.completed)),
		entity.JobFailed:    int64(len(q.failed)),
	}, nil
}

func (q *fakeQueue) snapshot() (completed, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.completed), len(q.failed)
}

type fakeAudit struct {
	mu     sync.Mutex
	report []byte
	err    error
	calls  []string
}

func (a *fakeAudit) Run(_ context.Context, pageURL string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, pageURL)
	return a.report, a.err
}

func (a *fakeAudit) urls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

type fakeMetricRepo struct {
	mu        sync.Mutex
	created   []*entity.Metric
	createErr error
	rows      []*entity.Metric
	points    []*entity.AggregatePoint

	lastRange  entity.TimeRange
	lastPeriod entity.Period
	lastScope  entity.AggregateScope
}

func (r *fakeMetricRepo) Create(_ context.Context, m *entity.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, m)
	return nil
}

func (r *fakeMetricRepo) ListByPage(_ context.Context, pageID uuid.UUID, tr entity.TimeRange) ([]*entity.Metric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRange = tr
	var out []*entity.Metric
	for _, m := range r.rows {
		if m.PageID == pageID && !m.Time.Before(tr.Start) && !m.Time.After(tr.End) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMetricRepo) Average(_ context.Context, period entity.Period, scope entity.AggregateScope, tr entity.TimeRange) ([]*entity.AggregatePoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastPeriod, r.lastScope, r.lastRange = period, scope, tr
	return r.points, nil
}

func (r *fakeMetricRepo) stored() []*entity.Metric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.Metric(nil), r.created...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
