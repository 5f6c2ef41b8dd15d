package monitoring

import (
	"encoding/json"
	"sync"
	"time"
)

// A ProgressBar counts the accesses a run has issued and completed.
type ProgressBar struct {
	mu sync.Mutex

	ID        string
	Name      string
	StartTime time.Time
	Total     uint64

	finished   uint64
	inProgress uint64
}

type progressSnapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
	Percent    float64   `json:"percent"`
}

// IncrementInProgress records accesses that have been issued.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inProgress += amount
}

// IncrementFinished records accesses that completed without being tracked as
// in progress.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.finished += amount
}

// MoveInProgressToFinished marks issued accesses as completed.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if amount > b.inProgress {
		amount = b.inProgress
	}

	b.inProgress -= amount
	b.finished += amount
}

// Finished returns the number of completed accesses.
func (b *ProgressBar) Finished() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.finished
}

// Percent returns the completed share of Total, from 0 to 100.
func (b *ProgressBar) Percent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.percent()
}

func (b *ProgressBar) percent() float64 {
	if b.Total == 0 {
		return 0
	}

	p := float64(b.finished) * 100 / float64(b.Total)
	if p > 100 {
		p = 100
	}

	return p
}

// MarshalJSON encodes a consistent snapshot of the bar.
func (b *ProgressBar) MarshalJSON() ([]byte, error) {
	b.mu.Lock()
	s := progressSnapshot{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.finished,
		InProgress: b.inProgress,
		Percent:    b.percent(),
	}
	b.mu.Unlock()

	return json.Marshal(s)
}
