package redis

import (
	"fmt"

	"github.com/user/perfwatch/internal/entity"
)

const keyPrefix = "perfwatch:queue:"

// queueKeys names every Redis key a single queue owns.
type queueKeys struct {
	jobs      string // hash id -> job JSON
	wait      string // list, pushed left and taken right
	active    string // list
	delayed   string // zset scored by due time in ms
	completed string // zset scored by finish time in ms
	failed    string // zset scored by finish time in ms
	repeat    string // hash repeat key -> definition JSON
	lock      string // prefix for per-job lock keys
}

func newQueueKeys(name entity.QueueName) queueKeys {
	base := keyPrefix + string(name) + ":"
	return queueKeys{
		jobs:      base + "jobs",
		wait:      base + "wait",
		active:    base + "active",
		delayed:   base + "delayed",
		completed: base + "completed",
		failed:    base + "failed",
		repeat:    base + "repeat",
		lock:      base + "lock:",
	}
}

func (k queueKeys) lockKey(jobID string) string {
	return k.lock + jobID
}

func repeatJobID(key string, at int64) string {
	return fmt.Sprintf("repeat:%s:%d", key, at)
}
