package steam

import (
	"encoding/hex"
	"fmt"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"
	"github.com/srg/padhost/internal/device"
)

// MaxReportLen bounds an input report; anything longer is refused.
const MaxReportLen = 64

// ControllerClass is the kind of input state a report produces.
type ControllerClass uint8

const (
	ClassNone ControllerClass = iota
	ClassGamepad
)

// InputState is the decoded controller state. Each report carries the full
// state, so it is reset before every parse.
//
// Only the raw frame is kept; the field layout is not decoded yet.
type InputState struct {
	Class ControllerClass
	Raw   [MaxReportLen]byte
	Len   int
}

// Bytes returns the raw report.
func (s *InputState) Bytes() []byte {
	return s.Raw[:s.Len]
}

// Reset zeroes the state and marks it as a gamepad.
func (s *InputState) Reset() {
	*s = InputState{Class: ClassGamepad}
}

// ParseInputReport decodes report into st.
func ParseInputReport(st *InputState, report []byte, logger *logrus.Logger) error {
	if len(report) > MaxReportLen {
		return fmt.Errorf("steam: input report of %d bytes exceeds %d", len(report), MaxReportLen)
	}
	st.Reset()
	st.Len = copy(st.Raw[:], report)

	if logger != nil && logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.Debugf("Steam input report:\n%s", hex.Dump(report))
	}
	return nil
}

// Report is one raw input report received on a controller link.
type Report struct {
	Handle device.ConnHandle
	Data   []byte
}

// ReportQueue hands raw input reports from the BLE notification goroutines to
// the event loop. When full the oldest report is overwritten.
type ReportQueue struct {
	buf mpmc.RichOverlappedRingBuffer[Report]
}

// NewReportQueue creates a queue holding at least size reports.
func NewReportQueue(size uint32) *ReportQueue {
	if size == 0 {
		size = 1
	}
	return &ReportQueue{buf: mpmc.NewOverlappedRingBuffer[Report](size)}
}

// Push copies data into the queue and returns how many older reports were dropped.
func (q *ReportQueue) Push(h device.ConnHandle, data []byte) (uint32, error) {
	return q.buf.EnqueueM(Report{Handle: h, Data: append([]byte(nil), data...)})
}

// Pop returns the oldest queued report.
func (q *ReportQueue) Pop() (Report, bool) {
	if q.buf.IsEmpty() {
		return Report{}, false
	}
	r, err := q.buf.Dequeue()
	if err != nil {
		return Report{}, false
	}
	return r, true
}

// Cap returns the queue capacity.
func (q *ReportQueue) Cap() uint32 {
	return q.buf.Cap()
}
