package goble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/srg/padhost/internal/device"
	"github.com/srg/padhost/internal/steam"
	"github.com/srg/padhost/internal/testutils"
	"github.com/srg/padhost/internal/testutils/mocks"
)

// CentralTestSuite runs every test against a fresh central with one mocked controller link.
type CentralTestSuite struct {
	suite.Suite

	cancel  context.CancelFunc
	central *Central
	dev     *mocks.MockDevice
	client  *mocks.MockClient
	link    chan struct{}
	events  chan steam.Event
}

func (suite *CentralTestSuite) SetupTest() {
	var ctx context.Context
	ctx, suite.cancel = context.WithCancel(context.Background())

	suite.dev = &mocks.MockDevice{}
	suite.client = &mocks.MockClient{}
	suite.link = make(chan struct{})
	suite.events = make(chan steam.Event, 16)

	suite.client.On("Disconnected").Return(suite.link)
	suite.client.On("CancelConnection").Return(nil).Maybe()
	suite.central = NewCentral(ctx, suite.dev, NewHandleAllocator(), func(ev steam.Event) { suite.events <- ev },
		testutils.NewTestHelper(suite.T()).Logger)
}

func (suite *CentralTestSuite) TearDownTest() {
	suite.cancel()
	suite.central.Wait()
}

func (suite *CentralTestSuite) dial() device.ConnHandle {
	suite.dev.On("Dial", mock.Anything, mock.Anything).Return(suite.client, nil).Once()
	addr, err := device.ParseAddress("AA:BB:CC:DD:EE:FF")
	suite.Require().NoError(err)
	h, err := suite.central.Dial(context.Background(), addr, time.Second)
	suite.Require().NoError(err)
	return h
}

func (suite *CentralTestSuite) next() steam.Event {
	select {
	case ev := <-suite.events:
		return ev
	case <-time.After(time.Second):
		suite.FailNow("no GATT event delivered")
		return steam.Event{}
	}
}

func (suite *CentralTestSuite) TestDialFailure() {
	suite.dev.On("Dial", mock.Anything, mock.Anything).
		Return(nil, errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"))

	_, err := suite.central.Dial(context.Background(), device.Address{1, 2, 3, 4, 5, 6}, 0)
	suite.ErrorIs(err, device.ErrBluetoothOff)
}

func (suite *CentralTestSuite) TestDiscoverAndWrite() {
	h := suite.dial()
	q := steam.Query{Handle: h, Session: 7}

	svc := &ble.Service{UUID: ble.MustParse(steam.ServiceUUID)}
	suite.client.On("DiscoverServices", []ble.UUID{svc.UUID}).Return([]*ble.Service{svc}, nil)
	suite.Require().NoError(suite.central.DiscoverPrimaryService(q, svc.UUID))

	ev := suite.next()
	suite.Equal(steam.EventServiceResult, ev.Kind)
	suite.Same(svc, ev.Service)
	suite.Equal(steam.QueryComplete(q, ble.ErrSuccess), suite.next())

	report := &ble.Characteristic{UUID: ble.MustParse(steam.ReportUUID)}
	suite.client.On("DiscoverCharacteristics", []ble.UUID{report.UUID}, svc).
		Return(nil, ble.ErrAttrNotFound)
	suite.Require().NoError(suite.central.DiscoverCharacteristics(q, svc, report.UUID))
	suite.Equal(steam.QueryComplete(q, ble.ErrAttrNotFound), suite.next())

	frame := steam.ClearMappingsFrame()
	suite.client.On("WriteCharacteristic", report, frame, false).Return(errors.New("boom"))
	suite.Require().NoError(suite.central.WriteCharacteristic(q, report, frame))
	suite.Equal(steam.QueryComplete(q, ble.ErrUnlikely), suite.next())
}

func (suite *CentralTestSuite) TestUnknownHandle() {
	q := steam.Query{Handle: 0x99}

	suite.ErrorIs(suite.central.DiscoverPrimaryService(q, ble.UUID16(0x1800)), device.ErrNotConnected)
	suite.ErrorIs(suite.central.Disconnect(0x99), device.ErrNotConnected)
	suite.ErrorIs(suite.central.Watch(0x99, nil), device.ErrNotConnected)
}

func (suite *CentralTestSuite) TestLinkLoss() {
	lost := make(chan device.ConnHandle, 1)
	h := suite.dial()
	suite.Require().NoError(suite.central.Watch(h, func(h device.ConnHandle) { lost <- h }))

	close(suite.link)
	select {
	case got := <-lost:
		suite.Equal(h, got)
	case <-time.After(time.Second):
		suite.FailNow("disconnect not reported")
	}
	suite.ErrorIs(suite.central.Disconnect(h), device.ErrNotConnected)
}

func (suite *CentralTestSuite) TestUnwatchedLinkLossIsReportedOnWatch() {
	h := suite.dial()
	close(suite.link)

	// The link stays known until it is watched.
	_, err := suite.central.client(h)
	suite.Require().NoError(err)

	lost := make(chan device.ConnHandle, 1)
	suite.Require().NoError(suite.central.Watch(h, func(h device.ConnHandle) { lost <- h }))
	select {
	case got := <-lost:
		suite.Equal(h, got)
	case <-time.After(time.Second):
		suite.FailNow("disconnect not reported")
	}
	_, ok := suite.central.handles.Lookup("AA:BB:CC:DD:EE:FF")
	suite.False(ok)
}

func (suite *CentralTestSuite) TestSubscribeReports() {
	h := suite.dial()
	report := &ble.Characteristic{UUID: ble.MustParse(steam.ReportUUID)}

	suite.client.On("DiscoverDescriptors", []ble.UUID(nil), report).Return(nil, nil).Once()
	suite.client.On("Subscribe", report, false, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(2).(ble.NotificationHandler)([]byte{0x01, 0x02})
	}).Return(nil)

	var got []byte
	suite.Require().NoError(suite.central.SubscribeReports(h, report, func(b []byte) { got = b }))
	suite.Equal([]byte{0x01, 0x02}, got)
	suite.client.AssertCalled(suite.T(), "DiscoverDescriptors", []ble.UUID(nil), report)
}

func TestCentralTestSuite(t *testing.T) {
	suite.Run(t, new(CentralTestSuite))
}
