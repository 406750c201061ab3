package usecase

import (
	"fmt"

	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
)

// QueueSet holds the producer of each named queue.
type QueueSet map[entity.QueueName]repository.JobProducer

// NewQueueSet indexes producers by their queue name.
func NewQueueSet(producers ...repository.JobProducer) QueueSet {
	set := make(QueueSet, len(producers))
	for _, p := range producers {
		set[p.Name()] = p
	}
	return set
}

// For returns the queue serving the channel.
func (s QueueSet) For(ch *entity.Channel) (repository.JobProducer, error) {
	q, ok := s[ch.QueueName()]
	if !ok {
		return nil, fmt.Errorf("no %s queue configured", ch.QueueName())
	}
	return q, nil
}
