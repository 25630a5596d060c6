package pipeline

import (
	"sort"
	"sync"

	"github.com/amizuno/winscope/internal/types"
)

// RetryQueue carries scored opportunities whose store writes failed into the
// next cycle, keyed by identity. A fresh score for the same identity from a
// later cycle supersedes the stale entry.
type RetryQueue struct {
	mu      sync.Mutex
	pending map[string]types.ScoredOpportunity
}

// NewRetryQueue returns an empty queue.
func NewRetryQueue() *RetryQueue {
	return &RetryQueue{pending: make(map[string]types.ScoredOpportunity)}
}

// Add queues one failed write for the next cycle.
func (q *RetryQueue) Add(s types.ScoredOpportunity) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[s.Opportunity.ID] = s
}

// Drain removes and returns everything pending in stable identity order.
func (q *RetryQueue) Drain() []types.ScoredOpportunity {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]types.ScoredOpportunity, 0, len(q.pending))
	for _, s := range q.pending {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Opportunity.ID < out[j].Opportunity.ID
	})
	q.pending = make(map[string]types.ScoredOpportunity)
	return out
}

// Len reports how many identities await retry.
func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// withRetries prepends previously failed writes to the cycle's scored set,
// except identities the current cycle re-scored, which carry newer data.
func withRetries(retries, scored []types.ScoredOpportunity) []types.ScoredOpportunity {
	if len(retries) == 0 {
		return scored
	}
	fresh := make(map[string]bool, len(scored))
	for _, s := range scored {
		fresh[s.Opportunity.ID] = true
	}
	merged := make([]types.ScoredOpportunity, 0, len(retries)+len(scored))
	for _, s := range retries {
		if !fresh[s.Opportunity.ID] {
			merged = append(merged, s)
		}
	}
	return append(merged, scored...)
}
