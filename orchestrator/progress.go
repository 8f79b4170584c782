package orchestrator

import (
	"sync"
	"time"
)

// ProgressUpdate is one observable transition of a job: a stage starting or
// finishing, or the job reaching a terminal status.
type ProgressUpdate struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// progressHub fans job transitions out to subscribers. Slow subscribers
// drop updates rather than stall the worker; the job record in the store
// remains the source of truth.
type progressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan ProgressUpdate]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{subs: make(map[string]map[chan ProgressUpdate]struct{})}
}

// subscriberBuffer absorbs bursts of stage transitions.
const subscriberBuffer = 16

// Subscribe registers interest in one job's transitions. The returned
// cancel function must be called to release the subscription.
func (h *progressHub) Subscribe(jobID string) (<-chan ProgressUpdate, func()) {
	ch := make(chan ProgressUpdate, subscriberBuffer)

	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan ProgressUpdate]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[jobID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(h.subs, jobID)
				}
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an update to every subscriber of the job.
func (h *progressHub) Publish(update ProgressUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[update.JobID] {
		select {
		case ch <- update:
		default:
			// Full buffer means a stalled consumer; drop.
		}
	}
}

// CloseJob ends every subscription of one finished job.
func (h *progressHub) CloseJob(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[jobID] {
		close(ch)
	}
	delete(h.subs, jobID)
}
