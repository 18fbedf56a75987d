// Package progress renders byte-count updates from concurrent DCC transfers.
//
// A Reporter hands out one Tracker per transfer. Trackers receive monotonic
// Update calls from the transfer's goroutine and a final Done. Reporters are
// safe for concurrent use by any number of transfers.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker receives progress for a single transfer.
type Tracker interface {
	// Update reports the number of bytes transferred so far.
	Update(transferred uint64)
	// Done marks the transfer finished; err is nil on success.
	Done(err error)
}

// Reporter creates trackers and renders them.
type Reporter interface {
	Track(id uint32, name string, total uint64) Tracker
	// Wait blocks until rendering of every tracked transfer has finished.
	Wait()
}

type nopReporter struct{}

type nopTracker struct{}

// Nop returns a Reporter that discards everything.
func Nop() Reporter { return nopReporter{} }

func (nopReporter) Track(uint32, string, uint64) Tracker { return nopTracker{} }
func (nopReporter) Wait()                                {}
func (nopTracker) Update(uint64)                         {}
func (nopTracker) Done(error)                            {}

// Bars renders one terminal progress bar per transfer.
type Bars struct {
	p *mpb.Progress
}

// NewBars creates a multi-bar renderer writing to w.
func NewBars(w io.Writer) *Bars {
	return &Bars{
		p: mpb.New(
			mpb.WithOutput(w),
			mpb.WithWidth(40),
			mpb.WithRefreshRate(150*time.Millisecond),
		),
	}
}

// Track adds a bar for a transfer of total bytes.
func (b *Bars) Track(id uint32, name string, total uint64) Tracker {
	bar := b.p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("[%d] %s", id, name), decor.WCSyncSpaceR),
			decor.CountersKibiByte("% .2f / % .2f", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WCSyncSpace), "done"),
			decor.AverageSpeed(decor.SizeB1024(0), "% .2f", decor.WCSyncSpace),
		),
	)
	return &barTracker{bar: bar}
}

// Wait blocks until every bar has completed or been aborted.
func (b *Bars) Wait() {
	b.p.Wait()
}

type barTracker struct {
	bar *mpb.Bar
}

func (t *barTracker) Update(transferred uint64) {
	t.bar.SetCurrent(int64(transferred))
}

func (t *barTracker) Done(err error) {
	if err != nil {
		t.bar.Abort(false)
		return
	}
	// A negative total adopts the current value and completes the bar.
	t.bar.SetTotal(-1, true)
}

// LogReporter reports progress as structured log lines.
type LogReporter struct {
	entry *logrus.Entry
	step  uint64
}

// NewLogReporter logs every step percent of each transfer. A step outside
// 1..100 selects 10.
func NewLogReporter(entry *logrus.Entry, step int) *LogReporter {
	if step < 1 || step > 100 {
		step = 10
	}
	return &LogReporter{entry: entry, step: uint64(step)}
}

// Track starts logging a transfer.
func (r *LogReporter) Track(id uint32, name string, total uint64) Tracker {
	entry := r.entry.WithFields(logrus.Fields{
		"transfer_id": id,
		"file_name":   name,
		"file_size":   total,
	})
	entry.Info("Transfer started")
	return &logTracker{entry: entry, total: total, step: r.step, next: r.step}
}

// Wait returns immediately; log lines are written synchronously.
func (r *LogReporter) Wait() {}

// logTracker is used only by its transfer's goroutine.
type logTracker struct {
	entry *logrus.Entry
	total uint64
	step  uint64
	next  uint64
}

func (t *logTracker) Update(transferred uint64) {
	if t.total == 0 {
		return
	}
	pct := transferred * 100 / t.total
	if pct < t.next {
		return
	}
	t.entry.WithFields(logrus.Fields{
		"transferred": transferred,
		"percent":     pct,
	}).Info("Transfer progress")
	t.next = (pct/t.step + 1) * t.step
}

func (t *logTracker) Done(err error) {
	if err != nil {
		t.entry.WithError(err).Error("Transfer failed")
		return
	}
	t.entry.Info("Transfer completed")
}
