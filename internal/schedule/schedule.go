// Cancellable delayed and periodic tasks behind one interface, so room logic
// can run against a virtual clock in tests instead of racing real timers.
package schedule

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled task. Safe to call more than once; a task
// already fired (or firing) is not interrupted.
type CancelFunc func()

// Scheduler arms one-shot and periodic tasks and tells the time.
type Scheduler interface {
	Now() time.Time
	After(d time.Duration, fn func()) CancelFunc
	Every(d time.Duration, fn func()) CancelFunc
}

// Wall is the production scheduler over real timers. Callbacks run on timer
// goroutines; callers that need single-threaded execution must hand them off
// themselves (the room hub does).
type Wall struct{}

func (Wall) Now() time.Time {
	return time.Now()
}

func (Wall) After(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

func (Wall) Every(d time.Duration, fn func()) CancelFunc {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// Manual is a test scheduler driven by Advance. Tasks fire synchronously, in
// due-time order, on the goroutine calling Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	due       time.Time
	interval  time.Duration // 0 for one-shot
	fn        func()
	seq       int
	cancelled bool
}

// NewManual starts the virtual clock at a fixed, arbitrary instant.
func NewManual() *Manual {
	return &Manual{now: time.Unix(1_700_000_000, 0)}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) After(d time.Duration, fn func()) CancelFunc {
	return m.add(d, 0, fn)
}

func (m *Manual) Every(d time.Duration, fn func()) CancelFunc {
	return m.add(d, d, fn)
}

func (m *Manual) add(d, interval time.Duration, fn func()) CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	task := &manualTask{
		due:      m.now.Add(d),
		interval: interval,
		fn:       fn,
		seq:      m.seq,
	}
	m.tasks = append(m.tasks, task)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		task.cancelled = true
	}
}

// Advance moves the clock forward, firing every due task in order. Callbacks
// may arm new tasks; those fire too if they fall within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		task := m.nextDue(target)
		if task == nil {
			break
		}
		task.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// nextDue pops the earliest task due at or before target, advancing the
// clock to its due time. Periodic tasks are re-armed before firing.
func (m *Manual) nextDue(target time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *manualTask
	bestIndex := -1
	for i, task := range m.tasks {
		if task.cancelled || task.due.After(target) {
			continue
		}
		if best == nil || task.due.Before(best.due) ||
			(task.due.Equal(best.due) && task.seq < best.seq) {
			best = task
			bestIndex = i
		}
	}
	if best == nil {
		return nil
	}

	m.now = best.due
	if best.interval > 0 {
		m.seq++
		m.tasks[bestIndex] = &manualTask{
			due:      best.due.Add(best.interval),
			interval: best.interval,
			fn:       best.fn,
			seq:      m.seq,
		}
	} else {
		m.tasks = append(m.tasks[:bestIndex], m.tasks[bestIndex+1:]...)
	}
	return best
}
