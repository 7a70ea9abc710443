package schedule

import (
	"container/heap"
	"context"
	"time"

	"github.com/adhocore/gronx"

	"github.com/fleetops/shiftd/core/logger"
)

// maxSleepCap bounds how long the runner sleeps between wake-ups so a
// wall-clock jump is noticed within a minute.
const maxSleepCap = 60 * time.Second

// Trigger is one recurring timer bound to a cron expression. Fire runs
// in its own goroutine so one slow firing never delays another trigger.
type Trigger struct {
	ID   string
	Expr string
	Fire func()
}

// NextAfter returns the next time the expression fires strictly after t.
func NextAfter(expr string, t time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, t, false)
}

type triggerEntry struct {
	at      time.Time
	trigger Trigger
	gen     uint64
}

type triggerHeap []triggerEntry

func (h triggerHeap) Len() int           { return len(h) }
func (h triggerHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h triggerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *triggerHeap) Push(x any)        { *h = append(*h, x.(triggerEntry)) }
func (h *triggerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Runner owns the armed trigger set and fires each trigger at the next
// occurrence of its cron expression. It is an active object: a single
// goroutine maintains a min-heap of upcoming occurrences and sleeps
// until the earliest one. Replacing the armed set is atomic with
// respect to firing; entries from a superseded generation are discarded
// before their Fire callback runs, so a refresh can never produce a
// duplicate firing.
type Runner struct {
	replaceChan chan []Trigger
	armedChan   chan chan []string
	ctx         context.Context
	log         logger.Logger
}

// NewRunner starts a Runner. The goroutine exits when ctx is cancelled.
func NewRunner(ctx context.Context, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NopLogger{}
	}
	r := &Runner{
		replaceChan: make(chan []Trigger),
		armedChan:   make(chan chan []string),
		ctx:         ctx,
		log:         log,
	}
	go r.run()
	return r
}

// ReplaceAll atomically swaps the armed trigger set. Triggers with an
// invalid expression are logged and skipped rather than aborting the
// whole replacement.
func (r *Runner) ReplaceAll(triggers []Trigger) {
	select {
	case r.replaceChan <- triggers:
	case <-r.ctx.Done():
	}
}

// Armed returns the IDs of the currently armed triggers.
func (r *Runner) Armed() []string {
	reply := make(chan []string, 1)
	select {
	case r.armedChan <- reply:
		return <-reply
	case <-r.ctx.Done():
		return nil
	}
}

func (r *Runner) run() {
	h := &triggerHeap{}
	heap.Init(h)
	var gen uint64

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			return nil
		}
		dur := time.Until((*h)[0].at)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-r.ctx.Done():
			return

		case triggers := <-r.replaceChan:
			gen++
			*h = (*h)[:0]
			now := time.Now()
			for _, t := range triggers {
				next, err := NextAfter(t.Expr, now)
				if err != nil {
					r.log.Errorf("trigger %s: invalid expression %q: %v", t.ID, t.Expr, err)
					continue
				}
				heap.Push(h, triggerEntry{at: next, trigger: t, gen: gen})
			}
			timerCh = resetTimer()

		case reply := <-r.armedChan:
			ids := make([]string, 0, h.Len())
			for _, e := range *h {
				ids = append(ids, e.trigger.ID)
			}
			reply <- ids

		case <-timerCh:
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].at.After(now) {
				e := heap.Pop(h).(triggerEntry)
				if e.gen != gen {
					continue
				}
				go e.trigger.Fire()
				next, err := NextAfter(e.trigger.Expr, now)
				if err == nil {
					heap.Push(h, triggerEntry{at: next, trigger: e.trigger, gen: gen})
				}
			}
			timerCh = resetTimer()
		}
	}
}
