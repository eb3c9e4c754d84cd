package service

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/padhost/internal/device"
)

// dataChanged marks every subscribed client as owing a fresh table and starts the
// relay chain if it is idle.
func (s *Service) dataChanged() {
	if s.clients.markPending() == 0 {
		return
	}
	s.armNext()
}

// armNext requests a "ready to send" for the next pending client at or after the
// cursor. Only one request is ever outstanding.
func (s *Service) armNext() {
	if s.inFlight != device.InvalidHandle {
		return
	}
	idx := s.clients.next(s.cursor)
	if idx < 0 {
		return
	}
	s.inFlight = s.clients.conns[idx].handle
	s.stack.RequestCanSendNow(s.inFlight)
}

// OnCanSendNow transmits the device table to h, advances the cursor and arms the
// next send. Tokens for a connection other than the one requested are ignored.
func (s *Service) OnCanSendNow(h device.ConnHandle) {
	if h == device.InvalidHandle || h != s.inFlight {
		s.logger.WithField("conn", h.String()).Debug("Unexpected can-send-now, ignoring")
		return
	}
	s.inFlight = device.InvalidHandle

	idx := s.clients.index(h)
	if idx < 0 || !s.clients.conns[idx].active() {
		s.armNext()
		return
	}
	c := &s.clients.conns[idx]

	s.scratch = s.table.AppendTo(s.scratch[:0])
	if err := s.stack.Notify(h, c.valueAttr, s.scratch); err != nil {
		s.logger.WithFields(logrus.Fields{
			"conn":  h.String(),
			"error": err,
		}).Warn("Failed to send device table notification")
	}
	c.pending = false
	s.cursor = (idx + 1) % len(s.clients.conns)
	s.armNext()
}

// InFlight returns the connection a "ready to send" request is outstanding for,
// or device.InvalidHandle.
func (s *Service) InFlight() device.ConnHandle {
	return s.inFlight
}
