package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	return logger, buf
}

func TestLogReporterSteps(t *testing.T) {
	logger, buf := newTestLogger()
	r := NewLogReporter(logrus.NewEntry(logger), 25)

	tr := r.Track(1, "file.bin", 1000)
	for n := uint64(0); n <= 1000; n += 100 {
		tr.Update(n)
	}
	tr.Done(nil)
	r.Wait()

	out := buf.String()
	assert.Equal(t, 4, strings.Count(out, "Transfer progress"), out)
	assert.Contains(t, out, "percent=30")
	assert.Contains(t, out, "percent=50")
	assert.Contains(t, out, "percent=100")
	assert.Contains(t, out, "Transfer completed")
	assert.Contains(t, out, "file_name=file.bin")
}

func TestLogReporterFailure(t *testing.T) {
	logger, buf := newTestLogger()
	r := NewLogReporter(logrus.NewEntry(logger), 0)

	tr := r.Track(2, "broken.bin", 0)
	tr.Update(0)
	tr.Done(errors.New("peer reset"))

	out := buf.String()
	assert.NotContains(t, out, "Transfer progress")
	assert.Contains(t, out, "Transfer failed")
	assert.Contains(t, out, "peer reset")
}

func TestBarsConcurrentTransfers(t *testing.T) {
	var out bytes.Buffer
	bars := NewBars(&out)

	var wg sync.WaitGroup
	for i := 1; i <= 5; i++ {
		tr := bars.Track(uint32(i), "file", 4096)
		wg.Add(1)
		go func(i int, tr Tracker) {
			defer wg.Done()
			for n := uint64(1024); n <= 4096; n += 1024 {
				tr.Update(n)
			}
			if i == 3 {
				tr.Done(errors.New("failed"))
				return
			}
			tr.Done(nil)
		}(i, tr)
	}
	wg.Wait()

	done := make(chan struct{})
	go func() {
		bars.Wait()
		close(done)
	}()
	<-done
}

func TestNop(t *testing.T) {
	r := Nop()
	tr := r.Track(1, "x", 10)
	tr.Update(5)
	tr.Done(nil)
	r.Wait()
}
