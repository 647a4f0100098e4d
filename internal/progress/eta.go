// Estimates the remaining time of long loops.
package progress

import (
	"fmt"
	"time"
)

// Tracks how many of a known number of steps are done.
type ETA struct {
	name string
	total int
	done int
	started time.Time
	now func() time.Time
}

// Creates an ETA for total steps. The clock starts now.
func NewETA(total int, name string) *ETA {
	return newETA(total, name, time.Now)
}

func newETA(total int, name string, now func() time.Time) *ETA {
	return &ETA{name: name, total: total, started: now(), now: now}
}

// Marks one step as done.
func (e *ETA) Checkpoint() {
	if e.done < e.total {
		e.done++
	}
}

// Done is the number of finished steps.
func (e *ETA) Done() int {
	return e.done
}

// Percent finished, 0 to 100.
func (e *ETA) Percent() float64 {
	if e.total == 0 {
		return 100
	}
	return float64(e.done) * 100 / float64(e.total)
}

// Remaining estimates the time left from the average step time so far.
func (e *ETA) Remaining() time.Duration {
	if e.done == 0 {
		return 0
	}
	elapsed := e.now().Sub(e.started)
	perStep := elapsed / time.Duration(e.done)
	return perStep * time.Duration(e.total-e.done)
}

func (e *ETA) String() string {
	elapsed := e.now().Sub(e.started).Round(time.Second)
	return fmt.Sprintf("%s: %d/%d (%.1f%%), elapsed %s, ETA %s",
		e.name, e.done, e.total, e.Percent(), elapsed, e.Remaining().Round(time.Second))
}
