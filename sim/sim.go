// Package sim provides a scripted in-memory Radio that behaves like one
// Sensirion Smart Gadget peripheral: it answers scans, connections,
// discovery and attribute reads from a configured profile, and can push
// notifications. It backs the driver's end-to-end tests and the demo
// command without hardware.
package sim

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/rigado/smartgadget"
	"github.com/rigado/smartgadget/adv"
	"github.com/rigado/smartgadget/profile"
)

const eventQueueDepth = 32

// Gadget is a simulated Smart Gadget. Configure the exported fields
// before Activate; they are read-only afterwards.
type Gadget struct {
	AddrType smartgadget.AddrType
	Addr     smartgadget.Addr
	Name     string
	RSSI     int

	Battery     uint8
	Temperature float32
	Humidity    float32
	Firmware    string

	Profile profile.Profile

	log smartgadget.Logger

	mu         sync.Mutex
	handler    smartgadget.EventHandler
	active     bool
	scanStop   chan struct{}
	connected  bool
	connHandle uint16
	nextHandle uint16
	attrs      map[uint16][]byte

	events chan smartgadget.Event
	done   chan struct{}
}

// NewGadget returns a gadget at the given address with nominal sensor
// values.
func NewGadget(addr string) *Gadget {
	return &Gadget{
		AddrType:    smartgadget.AddrTypeRandom,
		Addr:        smartgadget.NewAddr(addr),
		Name:        "Smart Humigadget",
		RSSI:        -67,
		Battery:     100,
		Temperature: 21.5,
		Humidity:    40.0,
		Firmware:    "1.3",
		Profile:     profile.SmartGadget(),
		log:         smartgadget.GetLogger().ChildLogger(map[string]interface{}{"pkg": "sim"}),
		nextHandle:  64,
		attrs:       make(map[uint16][]byte),
		events:      make(chan smartgadget.Event, eventQueueDepth),
		done:        make(chan struct{}),
	}
}

// Activate powers the gadget on and starts its event delivery loop.
func (g *Gadget) Activate() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return nil
	}
	g.active = true

	h := g.Profile.Handles
	g.attrs[h.DeviceName] = []byte(g.Name)
	g.attrs[h.FirmwareRevision] = []byte(g.Firmware)
	g.attrs[h.BatteryLevel] = []byte{g.Battery}
	g.attrs[h.Temperature] = smartgadget.EncodeSensorValue(g.Temperature)
	g.attrs[h.Humidity] = smartgadget.EncodeSensorValue(g.Humidity)

	go g.deliverLoop()
	return nil
}

// Close stops event delivery. Further operations are rejected.
func (g *Gadget) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return
	}
	g.active = false
	close(g.done)
}

// SetEventHandler registers the single consumer of the event stream.
func (g *Gadget) SetEventHandler(h smartgadget.EventHandler) {
	g.mu.Lock()
	g.handler = h
	g.mu.Unlock()
}

// SetAttribute overrides the payload served for a value handle, e.g. to
// script malformed reads.
func (g *Gadget) SetAttribute(valueHandle uint16, data []byte) {
	g.mu.Lock()
	g.attrs[valueHandle] = append([]byte(nil), data...)
	g.mu.Unlock()
}

// deliverLoop feeds queued events to the handler one at a time, in
// arrival order.
func (g *Gadget) deliverLoop() {
	for {
		select {
		case <-g.done:
			return
		case e := <-g.events:
			g.mu.Lock()
			h := g.handler
			g.mu.Unlock()
			if h != nil {
				h.HandleEvent(e)
			}
		}
	}
}

func (g *Gadget) emit(e smartgadget.Event) {
	select {
	case g.events <- e:
	case <-g.done:
	}
}

func (g *Gadget) checkActive() error {
	if !g.active {
		return errors.New("radio not active")
	}
	return nil
}

// Scan emits one advertising report for the gadget and a ScanDone when
// the duration elapses or StopScan is called.
func (g *Gadget) Scan(window, interval, duration time.Duration, active bool) error {
	g.mu.Lock()
	if err := g.checkActive(); err != nil {
		g.mu.Unlock()
		return err
	}
	if g.scanStop != nil {
		g.mu.Unlock()
		return errors.New("scan already running")
	}
	stop := make(chan struct{})
	g.scanStop = stop
	g.mu.Unlock()

	payload, err := adv.NewPacket(
		adv.Flags(0x06),
		adv.CompleteName(g.Name),
		adv.AllUUID(mustUUID(g.Profile.Services.Battery)),
	)
	if err != nil {
		return errors.Wrap(err, "sim adv payload")
	}

	go func() {
		g.emit(smartgadget.ScanResult{
			AddrType: g.AddrType,
			Addr:     g.Addr,
			AdvType:  smartgadget.AdvInd,
			RSSI:     g.RSSI,
			Data:     payload,
		})

		select {
		case <-stop:
		case <-time.After(duration):
		case <-g.done:
			return
		}

		g.mu.Lock()
		g.scanStop = nil
		g.mu.Unlock()
		g.emit(smartgadget.ScanDone{})
	}()

	return nil
}

// StopScan ends a running scan early.
func (g *Gadget) StopScan() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkActive(); err != nil {
		return err
	}
	if g.scanStop != nil {
		close(g.scanStop)
		g.scanStop = nil
	}
	return nil
}

// Connect establishes a link if the target address is the gadget's. A
// mismatched address produces no event, like a peripheral that isn't
// there.
func (g *Gadget) Connect(addrType smartgadget.AddrType, a smartgadget.Addr) error {
	g.mu.Lock()
	if err := g.checkActive(); err != nil {
		g.mu.Unlock()
		return err
	}
	if a == nil || a.String() != g.Addr.String() || addrType != g.AddrType {
		g.mu.Unlock()
		g.log.Debug("connect to absent peripheral, no event")
		return nil
	}
	g.connected = true
	g.nextHandle++
	g.connHandle = g.nextHandle
	handle := g.connHandle
	g.mu.Unlock()

	g.emit(smartgadget.Connected{
		ConnHandle: handle,
		AddrType:   g.AddrType,
		Addr:       g.Addr,
	})
	return nil
}

// Disconnect tears down a matching link.
func (g *Gadget) Disconnect(connHandle uint16) error {
	g.mu.Lock()
	if err := g.checkActive(); err != nil {
		g.mu.Unlock()
		return err
	}
	if !g.connected || connHandle != g.connHandle {
		g.mu.Unlock()
		return errors.New("unknown connection handle")
	}
	g.connected = false
	g.mu.Unlock()

	g.emit(smartgadget.Disconnected{
		ConnHandle: connHandle,
		AddrType:   g.AddrType,
		Addr:       g.Addr,
	})
	return nil
}

// DropLink simulates an unsolicited disconnect by the peripheral.
func (g *Gadget) DropLink() {
	g.mu.Lock()
	if !g.connected {
		g.mu.Unlock()
		return
	}
	g.connected = false
	handle := g.connHandle
	g.mu.Unlock()

	g.emit(smartgadget.Disconnected{
		ConnHandle: handle,
		AddrType:   g.AddrType,
		Addr:       g.Addr,
	})
}

// serviceRanges lays out each service's handle range around its known
// attribute handles, the way firmware 1.3 arranges them.
func (g *Gadget) serviceRanges(connHandle uint16) []smartgadget.ServiceResult {
	h := g.Profile.Handles
	s := g.Profile.Services
	return []smartgadget.ServiceResult{
		{ConnHandle: connHandle, StartHandle: 1, EndHandle: h.Appearance + 2, UUID: mustUUID(s.GenericAccess)},
		{ConnHandle: connHandle, StartHandle: h.Appearance + 3, EndHandle: h.SystemID - 2, UUID: mustUUID(s.GenericAttribute)},
		{ConnHandle: connHandle, StartHandle: h.SystemID - 1, EndHandle: h.SoftwareRevision + 1, UUID: mustUUID(s.DeviceInfo)},
		{ConnHandle: connHandle, StartHandle: h.BatteryLevel - 1, EndHandle: h.BatteryLevel + 1, UUID: mustUUID(s.Battery)},
		{ConnHandle: connHandle, StartHandle: h.BatteryLevel + 2, EndHandle: h.LogIntervalMs + 1, UUID: mustUUID(s.Logger)},
		{ConnHandle: connHandle, StartHandle: h.Humidity - 2, EndHandle: h.Temperature - 2, UUID: mustUUID(s.Humidity)},
		{ConnHandle: connHandle, StartHandle: h.Temperature - 1, EndHandle: h.Temperature + 4, UUID: mustUUID(s.Temperature)},
	}
}

type simChar struct {
	decl  uint16
	value uint16
	props uint8
	uuid  string
}

// Characteristic property bits.
const (
	propRead   = 0x02
	propWrite  = 0x08
	propNotify = 0x10
)

func (g *Gadget) characteristicTable() []simChar {
	h := g.Profile.Handles
	c := g.Profile.Characteristics
	return []simChar{
		{h.BatteryLevel - 1, h.BatteryLevel, propRead | propNotify, "2a19"},
		{h.FirmwareRevision - 1, h.FirmwareRevision, propRead, "2a26"},
		{h.LogIntervalMs - 1, h.LogIntervalMs, propRead | propWrite, "0000f239-b38d-4985-720e-0f993a68ee41"},
		{h.Humidity - 1, h.Humidity, propRead | propNotify, c.Humidity},
		{h.Temperature - 1, h.Temperature, propRead | propNotify, c.Temperature},
	}
}

// DiscoverServices streams the gadget's service table.
func (g *Gadget) DiscoverServices(connHandle uint16) error {
	g.mu.Lock()
	if err := g.checkActive(); err != nil {
		g.mu.Unlock()
		return err
	}
	if !g.connected || connHandle != g.connHandle {
		g.mu.Unlock()
		return errors.New("unknown connection handle")
	}
	g.mu.Unlock()

	go func() {
		for _, sr := range g.serviceRanges(connHandle) {
			g.emit(sr)
		}
		g.emit(smartgadget.ServiceDone{ConnHandle: connHandle})
	}()
	return nil
}

// DiscoverCharacteristics streams the characteristics whose value
// handles fall inside the requested range.
func (g *Gadget) DiscoverCharacteristics(connHandle, startHandle, endHandle uint16) error {
	g.mu.Lock()
	if err := g.checkActive(); err != nil {
		g.mu.Unlock()
		return err
	}
	if !g.connected || connHandle != g.connHandle {
		g.mu.Unlock()
		return errors.New("unknown connection handle")
	}
	g.mu.Unlock()

	go func() {
		for _, c := range g.characteristicTable() {
			if c.value < startHandle || c.value > endHandle {
				continue
			}
			g.emit(smartgadget.CharacteristicResult{
				ConnHandle:  connHandle,
				DeclHandle:  c.decl,
				ValueHandle: c.value,
				Properties:  c.props,
				UUID:        mustUUID(c.uuid),
			})
		}
		g.emit(smartgadget.CharacteristicDone{ConnHandle: connHandle})
	}()
	return nil
}

// ReadAttribute serves the stored payload for a value handle, followed
// by the trailing ReadDone some stacks emit.
func (g *Gadget) ReadAttribute(connHandle, valueHandle uint16) error {
	g.mu.Lock()
	if err := g.checkActive(); err != nil {
		g.mu.Unlock()
		return err
	}
	if !g.connected || connHandle != g.connHandle {
		g.mu.Unlock()
		return errors.New("unknown connection handle")
	}
	data, ok := g.attrs[valueHandle]
	data = append([]byte(nil), data...)
	g.mu.Unlock()

	if !ok {
		g.log.Debugf("read of unknown handle %v, no event", valueHandle)
		return nil
	}

	g.emit(smartgadget.ReadResult{ConnHandle: connHandle, ValueHandle: valueHandle, Data: data})
	g.emit(smartgadget.ReadDone{ConnHandle: connHandle, ValueHandle: valueHandle})
	return nil
}

// WriteAttribute stores the payload for a value handle and acknowledges
// it.
func (g *Gadget) WriteAttribute(connHandle, valueHandle uint16, data []byte) error {
	g.mu.Lock()
	if err := g.checkActive(); err != nil {
		g.mu.Unlock()
		return err
	}
	if !g.connected || connHandle != g.connHandle {
		g.mu.Unlock()
		return errors.New("unknown connection handle")
	}
	g.attrs[valueHandle] = append([]byte(nil), data...)
	g.mu.Unlock()

	g.emit(smartgadget.WriteDone{ConnHandle: connHandle, ValueHandle: valueHandle})
	return nil
}

// PushTemperature notifies a new temperature sample.
func (g *Gadget) PushTemperature(v float32) {
	g.push(g.Profile.Handles.Temperature, smartgadget.EncodeSensorValue(v))
}

// PushHumidity notifies a new humidity sample.
func (g *Gadget) PushHumidity(v float32) {
	g.push(g.Profile.Handles.Humidity, smartgadget.EncodeSensorValue(v))
}

func (g *Gadget) push(valueHandle uint16, data []byte) {
	g.mu.Lock()
	if !g.connected {
		g.mu.Unlock()
		return
	}
	handle := g.connHandle
	g.attrs[valueHandle] = data
	g.mu.Unlock()

	g.emit(smartgadget.Notification{ConnHandle: handle, ValueHandle: valueHandle, Data: data})
}

func mustUUID(s string) smartgadget.UUID {
	return smartgadget.MustParseUUID(s)
}
