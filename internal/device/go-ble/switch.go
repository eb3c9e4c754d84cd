package goble

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Switch is a boolean feature toggle. onChange runs on the caller's goroutine
// whenever the value actually flips.
type Switch struct {
	name     string
	on       atomic.Bool
	onChange func(enabled bool)
	logger   *logrus.Logger
}

// NewSwitch creates a switch in the initial state. onChange may be nil.
func NewSwitch(name string, initial bool, onChange func(enabled bool), logger *logrus.Logger) *Switch {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Switch{name: name, onChange: onChange, logger: logger}
	s.on.Store(initial)
	return s
}

// Enabled reports the current value.
func (s *Switch) Enabled() bool {
	return s.on.Load()
}

// SetEnabled stores enabled and fires onChange if the value changed.
func (s *Switch) SetEnabled(enabled bool) {
	if s.on.Swap(enabled) == enabled {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"switch":  s.name,
		"enabled": enabled,
	}).Info("Switch changed")
	if s.onChange != nil {
		s.onChange(enabled)
	}
}
