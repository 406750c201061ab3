package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/user/perfwatch/internal/entity"
)

// DefaultJobName is used for jobs enqueued without a name.
const DefaultJobName = "collect-metrics"

// ErrLockLost is returned when an active job's lock expired before it was renewed.
var ErrLockLost = errors.New("job lock lost")

// QueueOptions tunes retries, locking and retention. Zero fields take defaults.
type QueueOptions struct {
	Attempts      int
	Backoff       time.Duration
	LockTTL       time.Duration
	MaxStalled    int
	KeepCompleted int64
	CompletedAge  time.Duration
	FailedAge     time.Duration
}

func (o QueueOptions) withDefaults() QueueOptions {
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.Backoff <= 0 {
		o.Backoff = 5 * time.Second
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 60 * time.Second
	}
	if o.MaxStalled <= 0 {
		o.MaxStalled = 1
	}
	if o.KeepCompleted <= 0 {
		o.KeepCompleted = 1000
	}
	if o.CompletedAge <= 0 {
		o.CompletedAge = time.Hour
	}
	if o.FailedAge <= 0 {
		o.FailedAge = 24 * time.Hour
	}
	return o
}

// Queue is a named durable job queue stored in Redis.
type Queue struct {
	client *redis.Client
	name   entity.QueueName
	keys   queueKeys
	opts   QueueOptions
	now    func() time.Time
}

// NewQueue creates the queue called name on the given client.
func NewQueue(client *redis.Client, name entity.QueueName, opts QueueOptions) *Queue {
	return &Queue{
		client: client,
		name:   name,
		keys:   newQueueKeys(name),
		opts:   opts.withDefaults(),
		now:    time.Now,
	}
}

func (q *Queue) Name() entity.QueueName { return q.name }

// LockTTL is how long a taken job stays locked without renewal.
func (q *Queue) LockTTL() time.Duration { return q.opts.LockTTL }

// Add enqueues a one-shot job. A job whose ID is already stored is left untouched.
func (q *Queue) Add(ctx context.Context, job *entity.Job) (bool, error) {
	q.prepare(job)
	job.State = entity.JobWaiting

	data, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("encode job: %w", err)
	}
	created, err := q.client.HSetNX(ctx, q.keys.jobs, job.ID, data).Result()
	if err != nil {
		return false, fmt.Errorf("store job %s: %w", job.ID, err)
	}
	if !created {
		return false, nil
	}
	if err := q.client.LPush(ctx, q.keys.wait, job.ID).Err(); err != nil {
		q.client.HDel(ctx, q.keys.jobs, job.ID)
		return false, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return true, nil
}

func (q *Queue) prepare(job *entity.Job) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Name == "" {
		job.Name = DefaultJobName
	}
	if job.Attempts <= 0 {
		job.Attempts = q.opts.Attempts
	}
	job.Queue = q.name
	job.CreatedAt = q.now()
}

// AddRepeatable registers def under def.Key, replacing any previous
// registration and its pending instance.
func (q *Queue) AddRepeatable(ctx context.Context, def *entity.RepeatDefinition) error {
	if def.Key == "" {
		return errors.New("repeatable job needs a key")
	}
	schedule, err := cron.ParseStandard(def.Pattern)
	if err != nil {
		return fmt.Errorf("parse pattern %q: %w", def.Pattern, err)
	}

	prev, err := q.repeatable(ctx, def.Key)
	if err != nil {
		return err
	}
	if prev != nil {
		if _, err := q.dropPending(ctx, prev.NextJobID); err != nil {
			return err
		}
	}
	if def.Name == "" {
		def.Name = DefaultJobName
	}
	return q.scheduleInstance(ctx, def, schedule.Next(q.now()))
}

// RemoveRepeatable deletes the registration and its pending instance.
func (q *Queue) RemoveRepeatable(ctx context.Context, key string) (bool, error) {
	def, err := q.repeatable(ctx, key)
	if err != nil || def == nil {
		return false, err
	}
	if _, err := q.dropPending(ctx, def.NextJobID); err != nil {
		return false, err
	}
	if err := q.client.HDel(ctx, q.keys.repeat, key).Err(); err != nil {
		return false, fmt.Errorf("remove repeatable %s: %w", key, err)
	}
	return true, nil
}

// Repeatables returns the registered definitions ordered by key.
func (q *Queue) Repeatables(ctx context.Context) ([]*entity.RepeatDefinition, error) {
	values, err := q.client.HVals(ctx, q.keys.repeat).Result()
	if err != nil {
		return nil, fmt.Errorf("list repeatables: %w", err)
	}
	defs := make([]*entity.RepeatDefinition, 0, len(values))
	for _, v := range values {
		var def entity.RepeatDefinition
		if err := json.Unmarshal([]byte(v), &def); err != nil {
			return nil, fmt.Errorf("decode repeatable: %w", err)
		}
		defs = append(defs, &def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Key < defs[j].Key })
	return defs, nil
}

func (q *Queue) repeatable(ctx context.Context, key string) (*entity.RepeatDefinition, error) {
	raw, err := q.client.HGet(ctx, q.keys.repeat, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load repeatable %s: %w", key, err)
	}
	var def entity.RepeatDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode repeatable %s: %w", key, err)
	}
	return &def, nil
}

// scheduleInstance stores the delayed instance due at `at` and points def at it.
func (q *Queue) scheduleInstance(ctx context.Context, def *entity.RepeatDefinition, at time.Time) error {
	job := &entity.Job{
		ID:        repeatJobID(def.Key, at.UnixMilli()),
		Name:      def.Name,
		Payload:   def.Payload,
		RepeatKey: def.Key,
	}
	q.prepare(job)
	job.State = entity.JobDelayed

	def.NextJobID = job.ID
	def.NextRunAt = at

	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	defData, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode repeatable: %w", err)
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.keys.jobs, job.ID, jobData)
		pipe.ZAdd(ctx, q.keys.delayed, redis.Z{Score: float64(at.UnixMilli()), Member: job.ID})
		pipe.HSet(ctx, q.keys.repeat, def.Key, defData)
		return nil
	})
	if err != nil {
		return fmt.Errorf("schedule repeatable %s: %w", def.Key, err)
	}
	return nil
}

// dropPending removes a job that has not started yet. Active jobs are left alone.
func (q *Queue) dropPending(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	var zrem, lrem *redis.IntCmd
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		zrem = pipe.ZRem(ctx, q.keys.delayed, id)
		lrem = pipe.LRem(ctx, q.keys.wait, 0, id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("drop job %s: %w", id, err)
	}
	if zrem.Val()+lrem.Val() == 0 {
		return false, nil
	}
	if err := q.client.HDel(ctx, q.keys.jobs, id).Err(); err != nil {
		return false, fmt.Errorf("drop job %s: %w", id, err)
	}
	return true, nil
}

// Promote moves delayed jobs that are due onto the wait list. Promoting a
// repeat instance schedules its successor.
func (q *Queue) Promote(ctx context.Context) (int, error) {
	now := q.now()
	ids, err := q.client.ZRangeByScore(ctx, q.keys.delayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan delayed jobs: %w", err)
	}

	moved := 0
	for _, id := range ids {
		// ZREM is the claim; another promoter may have taken it.
		claimed, err := q.client.ZRem(ctx, q.keys.delayed, id).Result()
		if err != nil {
			return moved, fmt.Errorf("claim delayed job %s: %w", id, err)
		}
		if claimed == 0 {
			continue
		}
		job, err := q.load(ctx, id)
		if err != nil {
			return moved, err
		}
		if job == nil {
			continue
		}
		job.State = entity.JobWaiting
		if err := q.save(ctx, job); err != nil {
			return moved, err
		}
		if err := q.client.LPush(ctx, q.keys.wait, id).Err(); err != nil {
			return moved, fmt.Errorf("enqueue job %s: %w", id, err)
		}
		moved++

		if job.RepeatKey != "" {
			if err := q.scheduleSuccessor(ctx, job, now); err != nil {
				return moved, err
			}
		}
	}
	return moved, nil
}

func (q *Queue) scheduleSuccessor(ctx context.Context, job *entity.Job, now time.Time) error {
	def, err := q.repeatable(ctx, job.RepeatKey)
	if err != nil {
		return err
	}
	// Removed or re-registered since this instance was scheduled.
	if def == nil || def.NextJobID != job.ID {
		return nil
	}
	schedule, err := cron.ParseStandard(def.Pattern)
	if err != nil {
		return fmt.Errorf("parse pattern %q: %w", def.Pattern, err)
	}
	return q.scheduleInstance(ctx, def, schedule.Next(now))
}

// takeScript moves the oldest waiting id to active and locks it in one step,
// so the stalled checker never sees an active id without a lock.
//
// KEYS: wait, active. ARGV: lock prefix, lock TTL in ms.
var takeScript = redis.NewScript(`
local id = redis.call('RPOPLPUSH', KEYS[1], KEYS[2])
if not id then
  return false
end
redis.call('SET', ARGV[1] .. id, '1', 'PX', ARGV[2])
return id
`)

// Take moves the oldest waiting job to active and locks it.
// It returns nil, nil when nothing is waiting.
func (q *Queue) Take(ctx context.Context) (*entity.Job, error) {
	for {
		id, err := takeScript.Run(ctx, q.client,
			[]string{q.keys.wait, q.keys.active},
			q.keys.lock, q.opts.LockTTL.Milliseconds(),
		).Text()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("take job: %w", err)
		}
		job, err := q.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if job == nil {
			// Orphaned id whose payload was pruned.
			q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.LRem(ctx, q.keys.active, 1, id)
				pipe.Del(ctx, q.keys.lockKey(id))
				return nil
			})
			continue
		}

		processed := q.now()
		job.State = entity.JobActive
		job.ProcessedAt = &processed
		if err := q.save(ctx, job); err != nil {
			return nil, err
		}
		return job, nil
	}
}

// ExtendLock renews the lock of an active job.
func (q *Queue) ExtendLock(ctx context.Context, job *entity.Job) error {
	ok, err := q.client.Expire(ctx, q.keys.lockKey(job.ID), q.opts.LockTTL).Result()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", job.ID, err)
	}
	if !ok {
		return fmt.Errorf("job %s: %w", job.ID, ErrLockLost)
	}
	return nil
}

// Complete marks an active job done and prunes old completed jobs.
func (q *Queue) Complete(ctx context.Context, job *entity.Job) error {
	finished := q.now()
	job.State = entity.JobCompleted
	job.FinishedAt = &finished
	if err := q.finish(ctx, job, q.keys.completed); err != nil {
		return err
	}
	return q.prune(ctx, q.keys.completed, q.opts.KeepCompleted, q.opts.CompletedAge)
}

// Fail records the failure. The job is retried after the backoff while it has
// attempts left, otherwise it moves to the failed set.
func (q *Queue) Fail(ctx context.Context, job *entity.Job, reason error) error {
	job.AttemptsMade++
	if reason != nil {
		job.FailedReason = reason.Error()
	}

	if job.AttemptsMade < job.Attempts {
		job.State = entity.JobDelayed
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}
		due := q.now().Add(q.opts.Backoff)
		_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, q.keys.active, 1, job.ID)
			pipe.Del(ctx, q.keys.lockKey(job.ID))
			pipe.HSet(ctx, q.keys.jobs, job.ID, data)
			pipe.ZAdd(ctx, q.keys.delayed, redis.Z{Score: float64(due.UnixMilli()), Member: job.ID})
			return nil
		})
		if err != nil {
			return fmt.Errorf("retry job %s: %w", job.ID, err)
		}
		return nil
	}

	finished := q.now()
	job.State = entity.JobFailed
	job.FinishedAt = &finished
	if err := q.finish(ctx, job, q.keys.failed); err != nil {
		return err
	}
	return q.prune(ctx, q.keys.failed, 0, q.opts.FailedAge)
}

func (q *Queue) finish(ctx context.Context, job *entity.Job, set string) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.keys.active, 1, job.ID)
		pipe.Del(ctx, q.keys.lockKey(job.ID))
		pipe.HSet(ctx, q.keys.jobs, job.ID, data)
		pipe.ZAdd(ctx, set, redis.Z{Score: float64(job.FinishedAt.UnixMilli()), Member: job.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("finish job %s: %w", job.ID, err)
	}
	return nil
}

// prune drops entries older than maxAge, then the oldest beyond keep (0 keeps all).
func (q *Queue) prune(ctx context.Context, set string, keep int64, maxAge time.Duration) error {
	cutoff := q.now().Add(-maxAge).UnixMilli()
	stale, err := q.client.ZRangeByScore(ctx, set, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("prune %s: %w", set, err)
	}

	if keep > 0 {
		total, err := q.client.ZCard(ctx, set).Result()
		if err != nil {
			return fmt.Errorf("prune %s: %w", set, err)
		}
		if excess := total - int64(len(stale)) - keep; excess > 0 {
			start := int64(len(stale))
			extra, err := q.client.ZRange(ctx, set, start, start+excess-1).Result()
			if err != nil {
				return fmt.Errorf("prune %s: %w", set, err)
			}
			stale = append(stale, extra...)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	members := make([]any, len(stale))
	for i, id := range stale {
		members[i] = id
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, set, members...)
		pipe.HDel(ctx, q.keys.jobs, stale...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("prune %s: %w", set, err)
	}
	return nil
}

// releaseScript removes id from active only while it holds no lock.
//
// KEYS: active, lock key. ARGV: id.
var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
return redis.call('LREM', KEYS[1], 1, ARGV[1])
`)

// RecoverStalled returns active jobs whose lock expired to the front of the
// wait list. A job that stalls more than MaxStalled times is failed instead.
func (q *Queue) RecoverStalled(ctx context.Context) (int, error) {
	ids, err := q.client.LRange(ctx, q.keys.active, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("scan active jobs: %w", err)
	}

	recovered := 0
	for _, id := range ids {
		released, err := releaseScript.Run(ctx, q.client,
			[]string{q.keys.active, q.keys.lockKey(id)}, id,
		).Int()
		if err != nil {
			return recovered, fmt.Errorf("release job %s: %w", id, err)
		}
		if released == 0 {
			// Locked, or finished since the scan.
			continue
		}
		job, err := q.load(ctx, id)
		if err != nil {
			return recovered, err
		}
		if job == nil {
			continue
		}

		job.StalledCount++
		if job.StalledCount > q.opts.MaxStalled {
			finished := q.now()
			job.State = entity.JobFailed
			job.FinishedAt = &finished
			job.FailedReason = "job stalled more than allowable limit"
			if err := q.finish(ctx, job, q.keys.failed); err != nil {
				return recovered, err
			}
		} else {
			job.State = entity.JobWaiting
			if err := q.save(ctx, job); err != nil {
				return recovered, err
			}
			if err := q.client.RPush(ctx, q.keys.wait, id).Err(); err != nil {
				return recovered, fmt.Errorf("requeue job %s: %w", id, err)
			}
		}
		recovered++
	}
	return recovered, nil
}

// Jobs lists the jobs in the given states, or in every state when none is given.
func (q *Queue) Jobs(ctx context.Context, states ...entity.JobState) ([]*entity.Job, error) {
	if len(states) == 0 {
		states = []entity.JobState{
			entity.JobWaiting, entity.JobDelayed, entity.JobActive, entity.JobCompleted, entity.JobFailed,
		}
	}

	var ids []string
	for _, state := range states {
		var (
			stateIDs []string
			err      error
		)
		switch state {
		case entity.JobWaiting:
			stateIDs, err = q.client.LRange(ctx, q.keys.wait, 0, -1).Result()
		case entity.JobActive:
			stateIDs, err = q.client.LRange(ctx, q.keys.active, 0, -1).Result()
		case entity.JobDelayed:
			stateIDs, err = q.client.ZRange(ctx, q.keys.delayed, 0, -1).Result()
		case entity.JobCompleted:
			stateIDs, err = q.client.ZRange(ctx, q.keys.completed, 0, -1).Result()
		case entity.JobFailed:
			stateIDs, err = q.client.ZRange(ctx, q.keys.failed, 0, -1).Result()
		default:
			return nil, fmt.Errorf("unknown job state %q", state)
		}
		if err != nil {
			return nil, fmt.Errorf("list %s jobs: %w", state, err)
		}
		ids = append(ids, stateIDs...)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := q.client.HMGet(ctx, q.keys.jobs, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	jobs := make([]*entity.Job, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var job entity.Job
		if err := json.Unmarshal([]byte(s), &job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

// Counts returns the number of jobs per state.
func (q *Queue) Counts(ctx context.Context) (map[entity.JobState]int64, error) {
	cmds := map[entity.JobState]*redis.IntCmd{}
	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		cmds[entity.JobWaiting] = pipe.LLen(ctx, q.keys.wait)
		cmds[entity.JobActive] = pipe.LLen(ctx, q.keys.active)
		cmds[entity.JobDelayed] = pipe.ZCard(ctx, q.keys.delayed)
		cmds[entity.JobCompleted] = pipe.ZCard(ctx, q.keys.completed)
		cmds[entity.JobFailed] = pipe.ZCard(ctx, q.keys.failed)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	counts := make(map[entity.JobState]int64, len(cmds))
	for state, cmd := range cmds {
		counts[state] = cmd.Val()
	}
	return counts, nil
}

func (q *Queue) load(ctx context.Context, id string) (*entity.Job, error) {
	raw, err := q.client.HGet(ctx, q.keys.jobs, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var job entity.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (q *Queue) save(ctx context.Context, job *entity.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.HSet(ctx, q.keys.jobs, job.ID, data).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}
