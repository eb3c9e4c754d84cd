package goble

import (
	"context"
	"errors"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/padhost/internal/device"
	"github.com/srg/padhost/internal/eventloop"
	"github.com/srg/padhost/internal/groutine"
	"github.com/srg/padhost/internal/service"
)

// GATTService is the introspection service as seen from the transport.
type GATTService interface {
	Read(h device.ConnHandle, attr service.Attr, offset int, buf []byte) int
	Write(h device.ConnHandle, attr service.Attr, offset int, data []byte) error
	OnATTConnected(h device.ConnHandle)
	OnATTDisconnected(h device.ConnHandle)
	OnCanSendNow(h device.ConnHandle)
}

var (
	cccEnable  = []byte{0x01, 0x00}
	cccDisable = []byte{0x00, 0x00}
)

// Server exposes a GATTService through a go-ble peripheral. go-ble serves every
// request on its own goroutine; Server funnels them all onto the event loop so
// the service only ever runs on one context.
type Server struct {
	svc       GATTService
	loop      *eventloop.Loop
	handles   *HandleAllocator
	notifiers *hashmap.Map[device.ConnHandle, ble.Notifier]
	group     *groutine.Group
	logger    *logrus.Logger
}

// NewServer creates a server. Attach must be called before serving.
func NewServer(ctx context.Context, loop *eventloop.Loop, handles *HandleAllocator, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	if handles == nil {
		handles = NewHandleAllocator()
	}
	return &Server{
		loop:      loop,
		handles:   handles,
		notifiers: hashmap.New[device.ConnHandle, ble.Notifier](),
		group:     groutine.NewGroup(ctx),
		logger:    logger,
	}
}

// Attach binds the service the server dispatches to.
func (s *Server) Attach(svc GATTService) {
	s.svc = svc
}

// Wait blocks until the server's background goroutines have returned.
func (s *Server) Wait() {
	s.group.Wait()
}

// Profile builds the go-ble services for the attribute map, in database order.
// Client configuration descriptors are added by go-ble for notifiable characteristics.
func (s *Server) Profile() []*ble.Service {
	services := orderedmap.New[string, *ble.Service]()
	for _, a := range service.Attributes() {
		if a.Config {
			continue
		}
		svc, ok := services.Get(a.Service.String())
		if !ok {
			svc = ble.NewService(a.Service)
			services.Set(a.Service.String(), svc)
		}

		c := svc.NewCharacteristic(a.UUID)
		if a.Property&ble.CharRead != 0 {
			c.HandleRead(s.readHandler(a.Attr))
		}
		if a.Property&ble.CharWrite != 0 {
			c.HandleWrite(s.writeHandler(a.Attr))
		}
		if a.Property&ble.CharNotify != 0 {
			c.HandleNotify(s.notifyHandler(a.Attr))
		}
		s.logger.WithFields(logrus.Fields{
			"service":    a.Service.String(),
			"char":       a.UUID.String(),
			"attr":       a.Name,
			"properties": PropertyString(c.Property),
		}).Debug("Characteristic registered")
	}

	out := make([]*ble.Service, 0, services.Len())
	for pair := services.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Install adds the profile to dev.
func (s *Server) Install(dev ble.Device) error {
	for _, svc := range s.Profile() {
		if err := dev.AddService(svc); err != nil {
			return NormalizeError(err)
		}
	}
	return nil
}

// attach resolves the link's handle and, on first sight, registers it with the
// service and watches for its disconnect. Must run on the loop.
func (s *Server) attach(conn ble.Conn) device.ConnHandle {
	addr := conn.RemoteAddr().String()
	h, created := s.handles.Acquire(addr)
	if !created {
		return h
	}

	s.svc.OnATTConnected(h)
	s.logger.WithFields(logrus.Fields{
		"conn":    h.String(),
		"address": addr,
	}).Info("Client connected")

	s.group.Go("att-disconnect-watch", func(ctx context.Context) {
		select {
		case <-conn.Disconnected():
		case <-ctx.Done():
			return
		}
		s.handles.Release(addr)
		s.notifiers.Del(h)
		if err := s.loop.Post(ctx, func() { s.svc.OnATTDisconnected(h) }); err != nil {
			s.logger.WithField("error", err).Debug("Dropping client disconnect")
		}
	})
	return h
}

func (s *Server) readHandler(attr service.Attr) ble.ReadHandler {
	return ble.ReadHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
		buf := make([]byte, rsp.Cap())
		n := 0
		err := s.loop.Call(s.group.Context(), func() {
			h := s.attach(req.Conn())
			n = s.svc.Read(h, attr, req.Offset(), buf)
		})
		if err != nil {
			rsp.SetStatus(ble.ErrUnlikely)
			return
		}
		if _, err := rsp.Write(buf[:n]); err != nil {
			s.logger.WithFields(logrus.Fields{
				"attr":  attr.String(),
				"error": err,
			}).Warn("Failed to write read response")
			rsp.SetStatus(ble.ErrUnlikely)
		}
	})
}

func (s *Server) writeHandler(attr service.Attr) ble.WriteHandler {
	return ble.WriteHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
		data := append([]byte(nil), req.Data()...)
		var werr error
		err := s.loop.Call(s.group.Context(), func() {
			h := s.attach(req.Conn())
			werr = s.svc.Write(h, attr, req.Offset(), data)
		})
		if err != nil {
			rsp.SetStatus(ble.ErrUnlikely)
			return
		}
		var attErr ble.ATTError
		switch {
		case werr == nil:
		case errors.As(werr, &attErr):
			rsp.SetStatus(attErr)
		default:
			rsp.SetStatus(ble.ErrUnlikely)
		}
	})
}

// notifyHandler runs for the lifetime of a subscription. go-ble starts it when the
// client enables notifications and cancels its context when they are disabled.
func (s *Server) notifyHandler(attr service.Attr) ble.NotifyHandler {
	return ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
		if attr != service.AttrDevices {
			<-n.Context().Done()
			return
		}

		var h device.ConnHandle
		err := s.loop.Call(s.group.Context(), func() {
			h = s.attach(req.Conn())
			s.notifiers.Set(h, n)
			_ = s.svc.Write(h, service.AttrDevicesConfig, 0, cccEnable)
		})
		if err != nil {
			return
		}

		select {
		case <-n.Context().Done():
		case <-s.group.Context().Done():
			return
		}

		s.notifiers.Del(h)
		if err := s.loop.Post(s.group.Context(), func() {
			_ = s.svc.Write(h, service.AttrDevicesConfig, 0, cccDisable)
		}); err != nil {
			s.logger.WithField("error", err).Debug("Dropping unsubscribe")
		}
	})
}

// RequestCanSendNow implements service.Stack. go-ble has no flow-control token,
// so the token is granted by queueing OnCanSendNow behind everything already on
// the loop.
func (s *Server) RequestCanSendNow(h device.ConnHandle) {
	if s.loop.Mailbox().TryPost(func() { s.svc.OnCanSendNow(h) }) {
		return
	}
	s.group.Go("can-send-now", func(ctx context.Context) {
		if err := s.loop.Post(ctx, func() { s.svc.OnCanSendNow(h) }); err != nil {
			s.logger.WithFields(logrus.Fields{
				"conn":  h.String(),
				"error": err,
			}).Debug("Dropping can-send-now")
		}
	})
}

// Notify implements service.Stack.
func (s *Server) Notify(h device.ConnHandle, attr service.Attr, value []byte) error {
	n, ok := s.notifiers.Get(h)
	if !ok {
		return &device.NotFoundError{Resource: "notifier", Key: h.String()}
	}
	if _, err := n.Write(value); err != nil {
		return NormalizeError(err)
	}
	return nil
}
