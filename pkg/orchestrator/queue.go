package orchestrator

import (
	"sync"

	"github.com/aretw0/studio/pkg/domain"
)

// txQueue is an unbounded multi-producer, single-consumer FIFO.
// Producers never block on the consumer.
type txQueue struct {
	mu    sync.Mutex
	items []domain.Transaction
}

func (q *txQueue) push(tx domain.Transaction) {
	q.mu.Lock()
	q.items = append(q.items, tx)
	q.mu.Unlock()
}

// takeAll detaches the current contents. Items pushed afterwards belong to the next batch.
func (q *txQueue) takeAll() []domain.Transaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.items
	q.items = nil
	return batch
}

func (q *txQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
