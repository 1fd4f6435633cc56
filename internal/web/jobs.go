package web

import (
	"sync"

	"github.com/v0xg/registrycheck/internal/batch"
	"github.com/v0xg/registrycheck/internal/progress"
)

const subscriberBuffer = 256

// job is one batch started from the UI. It records every progress event so
// late websocket clients can replay the log.
type job struct {
	id string

	mu     sync.Mutex
	events []progress.Event
	// lastPreview indexes the only event in events still holding an image.
	lastPreview int
	subs   map[chan progress.Event]struct{}
	done   bool
	result *batch.Result
	err    error
}

func newJob(id string) *job {
	return &job{id: id, lastPreview: -1, subs: make(map[chan progress.Event]struct{})}
}

// Report implements progress.Reporter
func (j *job) Report(e progress.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if e.Level == progress.LevelPreview {
		if j.lastPreview >= 0 {
			j.events[j.lastPreview].Image = nil
		}
		j.lastPreview = len(j.events)
	}
	j.events = append(j.events, e)
	for ch := range j.subs {
		select {
		case ch <- e:
		default:
			// Slow client; it can reload the page to replay.
		}
	}
}

// isDone reports whether the batch has finished
func (j *job) isDone() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done
}

// subscribe returns the events so far and a channel of later ones. The
// channel is closed when the job finishes.
func (j *job) subscribe() ([]progress.Event, <-chan progress.Event, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	history := make([]progress.Event, len(j.events))
	copy(history, j.events)

	ch := make(chan progress.Event, subscriberBuffer)
	if j.done {
		close(ch)
		return history, ch, func() {}
	}
	j.subs[ch] = struct{}{}

	cancel := func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if _, ok := j.subs[ch]; ok {
			delete(j.subs, ch)
			close(ch)
		}
	}
	return history, ch, cancel
}

func (j *job) finish(res *batch.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.done = true
	j.result = res
	j.err = err
	for ch := range j.subs {
		close(ch)
	}
	j.subs = make(map[chan progress.Event]struct{})
}

type jobStatus struct {
	ID      string        `json:"id"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
	Summary string        `json:"summary,omitempty"`
	Result  *batch.Result `json:"result,omitempty"`
}

func (j *job) status() jobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := jobStatus{ID: j.id, Done: j.done, Result: j.result}
	if j.err != nil {
		st.Error = j.err.Error()
	}
	if j.result != nil {
		st.Summary = j.result.Summary()
	}
	return st
}
