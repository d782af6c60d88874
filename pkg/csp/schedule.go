package csp

import (
	"container/heap"
	"time"

	"github.com/aretw0/studio/pkg/domain"
)

type scheduled struct {
	due   time.Time
	seq   uint64
	delay time.Duration
	msg   domain.Message
}

// schedule is a min-heap of delayed events ordered by due time, then by insertion.
type schedule []scheduled

func (s schedule) Len() int { return len(s) }

func (s schedule) Less(i, j int) bool {
	if s[i].due.Equal(s[j].due) {
		return s[i].seq < s[j].seq
	}
	return s[i].due.Before(s[j].due)
}

func (s schedule) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s *schedule) Push(x any) { *s = append(*s, x.(scheduled)) }

func (s *schedule) Pop() any {
	old := *s
	n := len(old)
	item := old[n-1]
	*s = old[:n-1]
	return item
}

func (s *schedule) push(item scheduled) { heap.Push(s, item) }

func (s schedule) peek() (scheduled, bool) {
	if len(s) == 0 {
		return scheduled{}, false
	}
	return s[0], true
}

// popDue removes and returns every entry due at or before now, earliest first.
func (s *schedule) popDue(now time.Time) []scheduled {
	var out []scheduled
	for s.Len() > 0 && !(*s)[0].due.After(now) {
		out = append(out, heap.Pop(s).(scheduled))
	}
	return out
}
