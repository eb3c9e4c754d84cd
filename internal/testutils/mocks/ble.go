// Package mocks holds testify mocks of the go-ble interfaces the host drives.
//
// Each mock embeds the interface it stands in for, so calling a method that is
// not mocked here panics with a nil dereference instead of silently succeeding.
package mocks

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// MockDevice is a mock of ble.Device.
type MockDevice struct {
	ble.Device
	mock.Mock
}

func (m *MockDevice) AddService(svc *ble.Service) error {
	return m.Called(svc).Error(0)
}

func (m *MockDevice) AdvertiseNameAndServices(ctx context.Context, name string, uuids ...ble.UUID) error {
	args := m.Called(ctx, name, uuids)
	if fn, ok := args.Get(0).(func(context.Context) error); ok {
		return fn(ctx)
	}
	return args.Error(0)
}

func (m *MockDevice) Dial(ctx context.Context, a ble.Addr) (ble.Client, error) {
	args := m.Called(ctx, a)
	var client ble.Client
	if c := args.Get(0); c != nil {
		client = c.(ble.Client)
	}
	return client, args.Error(1)
}

func (m *MockDevice) Stop() error {
	return m.Called().Error(0)
}

// MockRawDevice is a MockDevice that also accepts prebuilt advertising payloads.
type MockRawDevice struct {
	MockDevice
}

func (m *MockRawDevice) AdvertiseRaw(ctx context.Context, ad, sr []byte) error {
	args := m.Called(ctx, ad, sr)
	if fn, ok := args.Get(0).(func(context.Context) error); ok {
		return fn(ctx)
	}
	return args.Error(0)
}

// MockClient is a mock of ble.Client.
type MockClient struct {
	ble.Client
	mock.Mock
}

func (m *MockClient) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	args := m.Called(filter)
	svcs, _ := args.Get(0).([]*ble.Service)
	return svcs, args.Error(1)
}

func (m *MockClient) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	args := m.Called(filter, s)
	chars, _ := args.Get(0).([]*ble.Characteristic)
	return chars, args.Error(1)
}

func (m *MockClient) DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error) {
	args := m.Called(filter, c)
	descs, _ := args.Get(0).([]*ble.Descriptor)
	return descs, args.Error(1)
}

func (m *MockClient) WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error {
	return m.Called(c, value, noRsp).Error(0)
}

func (m *MockClient) Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	return m.Called(c, ind, h).Error(0)
}

func (m *MockClient) CancelConnection() error {
	return m.Called().Error(0)
}

func (m *MockClient) Disconnected() <-chan struct{} {
	ch, _ := m.Called().Get(0).(chan struct{})
	return ch
}

// FakeConn is a ble.Conn identified by its remote address.
type FakeConn struct {
	ble.Conn
	Addr ble.Addr
	Done chan struct{}
}

// NewFakeConn creates a connected FakeConn. Close Done to disconnect it.
func NewFakeConn(addr string) *FakeConn {
	return &FakeConn{Addr: ble.NewAddr(addr), Done: make(chan struct{})}
}

func (c *FakeConn) RemoteAddr() ble.Addr          { return c.Addr }
func (c *FakeConn) Disconnected() <-chan struct{} { return c.Done }

// FakeNotifier records notification payloads.
type FakeNotifier struct {
	ctx    context.Context
	cancel context.CancelFunc
	Sent   chan []byte
}

// NewFakeNotifier creates a notifier buffering up to size payloads. Call
// Unsubscribe to end the subscription.
func NewFakeNotifier(size int) *FakeNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	return &FakeNotifier{ctx: ctx, cancel: cancel, Sent: make(chan []byte, size)}
}

func (n *FakeNotifier) Context() context.Context { return n.ctx }
func (n *FakeNotifier) Cap() int                 { return 244 }
func (n *FakeNotifier) Close() error             { n.cancel(); return nil }

func (n *FakeNotifier) Write(b []byte) (int, error) {
	n.Sent <- append([]byte(nil), b...)
	return len(b), nil
}

// Unsubscribe ends the subscription the way a CCC disable does.
func (n *FakeNotifier) Unsubscribe() {
	n.cancel()
}
