package smartgadget

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/rigado/smartgadget/adv"
	"github.com/rigado/smartgadget/profile"
)

// Default scan timing, matching the peripheral's advertising cadence.
const (
	defaultScanWindow   = 30 * time.Millisecond
	defaultScanInterval = 30 * time.Millisecond
	defaultScanDuration = 2 * time.Second
)

// Callback signatures for the one-shot completion slots. Each is
// invoked at most once per trigger, from the radio's event goroutine,
// then discarded.
type (
	// ScanCallback receives the matched peripheral, or zero values if
	// the scan ended without finding the search address.
	ScanCallback func(addrType AddrType, a Addr, name string)

	// ConnectCallback fires once the link is established.
	ConnectCallback func()

	// DiscoveryCallback fires when a service or characteristic
	// discovery pass completes.
	DiscoveryCallback func()

	// ReadCallback receives the raw payload of a completed read.
	ReadCallback func(data []byte)

	// WriteCallback fires when a write completes.
	WriteCallback func()

	// NotifyCallback receives pushed values. Unlike the others it is
	// persistent: it stays installed until replaced or the session
	// resets.
	NotifyCallback func(data []byte)

	// BatteryCallback receives a decoded battery percentage, or a
	// decode error.
	BatteryCallback func(percent uint8, err error)

	// SensorCallback receives a decoded sensor value (degrees Celsius
	// or percent relative humidity), or a decode error.
	SensorCallback func(value float32, err error)

	// VersionCallback receives the peripheral's firmware revision
	// string.
	VersionCallback func(version string, err error)
)

type handlerFn func(e Event)

// Driver is a central-role GATT client session for one Smart Gadget
// peripheral, bound to one Radio for its lifetime. It consumes the
// radio's event stream, tracks connection and read progress through a
// linear State machine, and exposes verb-named triggers with one-shot
// completion callbacks.
//
// Events are handled one at a time on the radio's delivery goroutine;
// the wait primitives are safe to call from any other goroutine.
type Driver struct {
	radio Radio
	log   Logger
	prof  profile.Profile
	cache DiscoveryCache

	scanWindow   time.Duration
	scanInterval time.Duration
	scanDuration time.Duration
	activeScan   bool

	evth map[EventKind]handlerFn

	mu      sync.Mutex
	changed chan struct{} // closed and replaced on every observable change

	state State

	searchAddr    Addr
	searchService UUID
	addrFound     bool

	// cached from a successful scan, or set explicitly on Connect
	addrType AddrType
	addr     Addr

	name    string
	rssi    int
	version string

	battery     *uint8
	temperature *float32
	humidity    *float32

	connected  bool
	connHandle uint16

	// handle range of the search service, once discovered
	startHandle uint16
	endHandle   uint16

	// target of the next read/write/notify correlation
	valueHandle uint16

	lastValue []byte

	services        map[string][2]uint16
	characteristics map[string]Characteristic

	scanCB     ScanCallback
	connCB     ConnectCallback
	servDoneCB DiscoveryCallback
	charDoneCB DiscoveryCallback
	readCB     ReadCallback
	writeCB    WriteCallback
	notifyCB   NotifyCallback
}

// An Option configures a Driver.
type Option func(*Driver) error

// WithLogger overrides the package-level logger for this driver.
func WithLogger(l Logger) Option {
	return func(d *Driver) error {
		if l == nil {
			return errors.New("nil logger")
		}
		d.log = l
		return nil
	}
}

// WithProfile selects the peripheral profile whose well-known handles
// the typed read and write triggers resolve against.
func WithProfile(p profile.Profile) Option {
	return func(d *Driver) error {
		d.prof = p
		return nil
	}
}

// WithScanParams overrides the default scan timing.
func WithScanParams(window, interval, duration time.Duration, active bool) Option {
	return func(d *Driver) error {
		if window <= 0 || interval <= 0 || duration <= 0 {
			return errors.New("scan params must be positive")
		}
		d.scanWindow = window
		d.scanInterval = interval
		d.scanDuration = duration
		d.activeScan = active
		return nil
	}
}

// WithCache installs a DiscoveryCache; discovery results are stored to
// it when characteristic discovery completes.
func WithCache(c DiscoveryCache) Option {
	return func(d *Driver) error {
		d.cache = c
		return nil
	}
}

// New activates the radio, registers the driver as its event handler
// and returns a session in StateInit.
func New(radio Radio, opts ...Option) (*Driver, error) {
	d := &Driver{
		radio:        radio,
		log:          GetLogger().ChildLogger(map[string]interface{}{"pkg": "smartgadget"}),
		prof:         profile.SmartGadget(),
		scanWindow:   defaultScanWindow,
		scanInterval: defaultScanInterval,
		scanDuration: defaultScanDuration,
		activeScan:   true,
		changed:      make(chan struct{}),
	}

	d.evth = map[EventKind]handlerFn{
		EvtScanResult:           d.handleScanResult,
		EvtScanDone:             d.handleScanDone,
		EvtConnected:            d.handleConnected,
		EvtDisconnected:         d.handleDisconnected,
		EvtServiceResult:        d.handleServiceResult,
		EvtServiceDone:          d.handleServiceDone,
		EvtCharacteristicResult: d.handleCharacteristicResult,
		EvtCharacteristicDone:   d.handleCharacteristicDone,
		EvtReadResult:           d.handleReadResult,
		EvtReadDone:             d.handleReadDone,
		EvtWriteDone:            d.handleWriteDone,
		EvtNotification:         d.handleNotification,
	}

	for _, o := range opts {
		if err := o(d); err != nil {
			return nil, errors.Wrap(err, "can't set options")
		}
	}

	if err := radio.Activate(); err != nil {
		return nil, errors.Wrap(err, "radio activate")
	}
	radio.SetEventHandler(d)

	d.mu.Lock()
	d.resetLocked()
	d.mu.Unlock()

	return d, nil
}

// Profile returns the peripheral profile in use.
func (d *Driver) Profile() profile.Profile {
	return d.prof
}

// SetSearchAddress sets the link-layer address scan results are matched
// against.
func (d *Driver) SetSearchAddress(a Addr) {
	d.mu.Lock()
	d.searchAddr = a
	d.mu.Unlock()
}

// SetSearchService sets the service UUID whose handle range is captured
// during service discovery, for a later characteristic discovery.
func (d *Driver) SetSearchService(u UUID) {
	d.mu.Lock()
	d.searchService = u
	d.mu.Unlock()
}

// SetValueHandle targets the next Read at an explicit attribute handle,
// e.g. one taken from Characteristics after discovery.
func (d *Driver) SetValueHandle(h uint16) {
	d.mu.Lock()
	d.valueHandle = h
	d.mu.Unlock()
}

// reset restores the session to its initial state, discarding all
// pending callbacks. Waiters observe the change.
func (d *Driver) resetLocked() {
	d.state = StateInit
	d.searchAddr = nil
	d.searchService = nil
	d.addrFound = false
	d.addrType = AddrTypePublic
	d.addr = nil
	d.name = ""
	d.rssi = 0
	d.version = ""
	d.battery = nil
	d.temperature = nil
	d.humidity = nil
	d.connected = false
	d.connHandle = 0
	d.startHandle = 0
	d.endHandle = 0
	d.valueHandle = 0
	d.lastValue = nil
	d.services = make(map[string][2]uint16)
	d.characteristics = make(map[string]Characteristic)
	d.scanCB = nil
	d.connCB = nil
	d.servDoneCB = nil
	d.charDoneCB = nil
	d.readCB = nil
	d.writeCB = nil
	d.notifyCB = nil
	d.signalLocked()
}

func (d *Driver) setStateLocked(s State) {
	if s == d.state {
		return
	}
	d.log.Debugf("state %v -> %v", d.state, s)
	d.state = s
	d.signalLocked()
}

func (d *Driver) signalLocked() {
	close(d.changed)
	d.changed = make(chan struct{})
}

// HandleEvent routes one radio event to its handler. It runs to
// completion before the radio delivers the next event and never blocks.
// Events with no registered handler are ignored.
func (d *Driver) HandleEvent(e Event) {
	h, ok := d.evth[e.Kind()]
	if !ok {
		d.log.Debug("ignoring unsupported event: ", e.Kind())
		return
	}
	d.log.Debug("event: ", e.Kind())
	h(e)
}

func (d *Driver) handleScanResult(e Event) {
	sr, ok := e.(ScanResult)
	if !ok {
		return
	}

	d.mu.Lock()
	if d.searchAddr == nil || !sr.AdvType.Connectable() || !addrEqual(sr.Addr, d.searchAddr) {
		d.mu.Unlock()
		return
	}

	// Found the peripheral, remember it and stop scanning.
	d.addrType = sr.AddrType
	d.addr = sr.Addr
	d.rssi = sr.RSSI
	d.addrFound = true
	if name := adv.LocalName(sr.Data); name != "" {
		d.name = name
	}
	d.signalLocked()
	d.mu.Unlock()

	if err := d.radio.StopScan(); err != nil {
		d.log.Debug("stop scan rejected: ", err)
	}
}

func (d *Driver) handleScanDone(e Event) {
	d.mu.Lock()
	cb := d.scanCB
	d.scanCB = nil
	found := d.addr != nil
	addrType, a, name := d.addrType, d.addr, d.name
	d.mu.Unlock()

	if cb == nil {
		return
	}
	if found {
		cb(addrType, a, name)
	} else {
		// Scan timed out without a match.
		cb(AddrTypePublic, nil, "")
	}
}

func (d *Driver) handleConnected(e Event) {
	c, ok := e.(Connected)
	if !ok {
		return
	}

	d.mu.Lock()
	if c.AddrType != d.addrType || !addrEqual(c.Addr, d.addr) {
		d.log.Debugf("connected event for %v, want %v; dropped", c.Addr, d.addr)
		d.mu.Unlock()
		return
	}
	d.connected = true
	d.connHandle = c.ConnHandle
	cb := d.connCB
	d.connCB = nil
	d.signalLocked()
	d.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (d *Driver) handleDisconnected(e Event) {
	dc, ok := e.(Disconnected)
	if !ok {
		return
	}

	d.mu.Lock()
	// A locally initiated disconnect has already reset the session, in
	// which case the handle no longer matches and this is a no-op.
	if d.connected && dc.ConnHandle == d.connHandle {
		d.resetLocked()
	}
	d.mu.Unlock()
}

func (d *Driver) handleServiceResult(e Event) {
	sr, ok := e.(ServiceResult)
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected || sr.ConnHandle != d.connHandle {
		return
	}
	d.services[sr.UUID.String()] = [2]uint16{sr.StartHandle, sr.EndHandle}
	if d.searchService != nil && sr.UUID.Equal(d.searchService) {
		d.log.Debugf("search service %v found, handles %v..%v", sr.UUID, sr.StartHandle, sr.EndHandle)
		d.startHandle = sr.StartHandle
		d.endHandle = sr.EndHandle
	}
}

func (d *Driver) handleServiceDone(e Event) {
	d.mu.Lock()
	d.setStateLocked(StateServiceDiscoveryDone)
	cb := d.servDoneCB
	d.servDoneCB = nil
	d.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (d *Driver) handleCharacteristicResult(e Event) {
	cr, ok := e.(CharacteristicResult)
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected || cr.ConnHandle != d.connHandle {
		return
	}
	d.characteristics[cr.UUID.String()] = Characteristic{
		DeclHandle:  cr.DeclHandle,
		ValueHandle: cr.ValueHandle,
		Properties:  cr.Properties,
	}
}

func (d *Driver) handleCharacteristicDone(e Event) {
	d.mu.Lock()
	d.setStateLocked(StateCharacteristicDiscoveryDone)
	cb := d.charDoneCB
	d.charDoneCB = nil
	var snap Discovery
	var a Addr
	if d.cache != nil && d.connected {
		snap = d.discoverySnapshotLocked()
		a = d.addr
	}
	d.mu.Unlock()

	if a != nil {
		// File IO stays off the event goroutine.
		go func() {
			if err := d.cache.Store(a, snap, true); err != nil {
				d.log.Warn("discovery cache store: ", err)
			}
		}()
	}

	if cb != nil {
		cb()
	}
}

func (d *Driver) handleReadResult(e Event) {
	rr, ok := e.(ReadResult)
	if !ok {
		return
	}

	d.mu.Lock()
	if !d.connected || rr.ConnHandle != d.connHandle || rr.ValueHandle != d.valueHandle {
		d.mu.Unlock()
		return
	}
	d.lastValue = append([]byte(nil), rr.Data...)
	data := d.lastValue
	cb := d.readCB
	d.readCB = nil
	d.mu.Unlock()

	if cb != nil {
		cb(data)
	}
}

func (d *Driver) handleReadDone(e Event) {
	// Read completion without data; some stacks emit it after the read
	// result. Nothing to do at this layer.
	d.log.Debug("read done")
}

func (d *Driver) handleWriteDone(e Event) {
	wd, ok := e.(WriteDone)
	if !ok {
		return
	}

	d.mu.Lock()
	if !d.connected || wd.ConnHandle != d.connHandle || wd.ValueHandle != d.valueHandle {
		d.mu.Unlock()
		return
	}
	cb := d.writeCB
	d.writeCB = nil
	d.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (d *Driver) handleNotification(e Event) {
	n, ok := e.(Notification)
	if !ok {
		return
	}

	d.mu.Lock()
	if !d.connected || n.ConnHandle != d.connHandle || n.ValueHandle != d.valueHandle {
		d.mu.Unlock()
		return
	}
	d.lastValue = append([]byte(nil), n.Data...)
	data := d.lastValue
	cb := d.notifyCB // persistent: not cleared
	d.mu.Unlock()

	if cb != nil {
		cb(data)
	}
}

// Scan starts a timed discovery scan for the search address. The
// callback fires on scan completion: with the matched peripheral if it
// was sighted, with zero values otherwise.
func (d *Driver) Scan(cb ScanCallback) {
	d.mu.Lock()
	d.addrType = AddrTypePublic
	d.addr = nil
	d.addrFound = false
	if d.scanCB != nil {
		d.log.Warn("replacing pending scan callback; the old one will never fire")
	}
	d.scanCB = cb
	window, interval, duration, active := d.scanWindow, d.scanInterval, d.scanDuration, d.activeScan
	d.mu.Unlock()

	if err := d.radio.Scan(window, interval, duration, active); err != nil {
		d.log.Debug("scan request rejected: ", err)
	}
}

// Connect initiates link establishment using the given address, or the
// address cached from a prior scan when a is nil. It returns false if
// no address is available or the radio refused the request; the
// callback is not invoked in either case.
func (d *Driver) Connect(addrType AddrType, a Addr, cb ConnectCallback) bool {
	d.mu.Lock()
	if a != nil {
		d.addrType = addrType
		d.addr = a
	}
	if d.connCB != nil {
		d.log.Warn("replacing pending connect callback; the old one will never fire")
	}
	d.connCB = cb
	if d.addr == nil {
		d.mu.Unlock()
		d.log.Debug("connect: no address available")
		return false
	}
	addrType, a = d.addrType, d.addr
	d.mu.Unlock()

	if err := d.radio.Connect(addrType, a); err != nil {
		d.log.Debug("connect request rejected: ", err)
		return false
	}
	return true
}

// Disconnect terminates the link and eagerly resets the session without
// waiting for the Disconnected event; the event, when it arrives, finds
// no matching handle and no-ops. Not connected is a no-op.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return
	}
	h := d.connHandle
	d.mu.Unlock()

	if err := d.radio.Disconnect(h); err != nil {
		d.log.Debug("disconnect request rejected: ", err)
	}

	d.mu.Lock()
	d.resetLocked()
	d.mu.Unlock()
}

// DiscoverServices requests full-range service discovery. The service
// cache is cleared first; results accumulate in Services. Requires an
// active connection.
func (d *Driver) DiscoverServices(cb DiscoveryCallback) {
	d.mu.Lock()
	d.services = make(map[string][2]uint16)
	if !d.connected {
		d.mu.Unlock()
		return
	}
	if d.servDoneCB != nil {
		d.log.Warn("replacing pending service discovery callback; the old one will never fire")
	}
	d.servDoneCB = cb
	h := d.connHandle
	d.mu.Unlock()

	if err := d.radio.DiscoverServices(h); err != nil {
		d.log.Debug("service discovery rejected: ", err)
	}
}

// DiscoverCharacteristics requests characteristic discovery over the
// given handle range. The characteristic cache is cleared first;
// results accumulate in Characteristics. Requires an active connection.
func (d *Driver) DiscoverCharacteristics(startHandle, endHandle uint16, cb DiscoveryCallback) {
	d.mu.Lock()
	d.characteristics = make(map[string]Characteristic)
	if !d.connected {
		d.mu.Unlock()
		return
	}
	if d.charDoneCB != nil {
		d.log.Warn("replacing pending characteristic discovery callback; the old one will never fire")
	}
	d.charDoneCB = cb
	h := d.connHandle
	d.mu.Unlock()

	if err := d.radio.DiscoverCharacteristics(h, startHandle, endHandle); err != nil {
		d.log.Debug("characteristic discovery rejected: ", err)
	}
}

// Read issues a read against the currently targeted value handle.
// Requires an active connection.
func (d *Driver) Read(cb ReadCallback) {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return
	}
	if d.readCB != nil {
		d.log.Warn("replacing pending read callback; the old one will never fire")
	}
	d.readCB = cb
	h, vh := d.connHandle, d.valueHandle
	d.mu.Unlock()

	if err := d.radio.ReadAttribute(h, vh); err != nil {
		d.log.Debug("read rejected: ", err)
	}
}

// readAt retargets the value handle and issues a read there.
func (d *Driver) readAt(valueHandle uint16, cb ReadCallback) {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return
	}
	if d.readCB != nil {
		d.log.Warn("replacing pending read callback; the old one will never fire")
	}
	d.readCB = cb
	d.valueHandle = valueHandle
	h, vh := d.connHandle, d.valueHandle
	d.mu.Unlock()

	if err := d.radio.ReadAttribute(h, vh); err != nil {
		d.log.Debug("read rejected: ", err)
	}
}

// write retargets the value handle and issues a write there.
func (d *Driver) write(valueHandle uint16, data []byte, cb WriteCallback) {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return
	}
	if d.writeCB != nil {
		d.log.Warn("replacing pending write callback; the old one will never fire")
	}
	d.writeCB = cb
	d.valueHandle = valueHandle
	h, vh := d.connHandle, d.valueHandle
	d.mu.Unlock()

	if err := d.radio.WriteAttribute(h, vh, data); err != nil {
		d.log.Debug("write rejected: ", err)
	}
}

// OnNotify installs the persistent notification callback. It fires for
// every notification matching the current value handle until replaced
// or the session resets.
func (d *Driver) OnNotify(cb NotifyCallback) {
	d.mu.Lock()
	d.notifyCB = cb
	d.mu.Unlock()
}

// NoteScanDone is a ready-made scan callback that advances the driver
// to StateScanDone; pass it to Scan when no custom completion handling
// is needed. Check AddressFound to tell a match from a timeout.
func (d *Driver) NoteScanDone(AddrType, Addr, string) {
	d.mu.Lock()
	d.setStateLocked(StateScanDone)
	d.mu.Unlock()
}

// WaitForState blocks until the driver reaches the given state or the
// timeout elapses, and reports which happened. It is intended for a
// goroutine other than the one delivering radio events.
func (d *Driver) WaitForState(s State, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		d.mu.Lock()
		if d.state == s {
			d.mu.Unlock()
			return true
		}
		ch := d.changed
		d.mu.Unlock()

		select {
		case <-ch:
		case <-deadline.C:
			return false
		}
	}
}

// WaitForConnection blocks until the connection status equals connected
// or the timeout elapses, and reports which happened.
func (d *Driver) WaitForConnection(connected bool, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		d.mu.Lock()
		if d.connected == connected {
			d.mu.Unlock()
			return true
		}
		ch := d.changed
		d.mu.Unlock()

		select {
		case <-ch:
		case <-deadline.C:
			return false
		}
	}
}

// IsConnected reports whether a connection handle is present.
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// State returns the driver's current state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// AddressFound reports whether a scan result matched the search
// address.
func (d *Driver) AddressFound() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addrFound
}

// Address returns the peripheral address in use: cached from a scan or
// set on Connect. The address is nil until one of those happens.
func (d *Driver) Address() (AddrType, Addr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addrType, d.addr
}

// Name returns the device name decoded from the matched advertisement,
// if any.
func (d *Driver) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// RSSI returns the signal strength recorded from the matched scan
// result.
func (d *Driver) RSSI() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rssi
}

// Version returns the firmware revision string once ReadFirmwareVersion
// has completed.
func (d *Driver) Version() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Battery returns the battery percentage and whether it has been read.
func (d *Driver) Battery() (uint8, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.battery == nil {
		return 0, false
	}
	return *d.battery, true
}

// Temperature returns the temperature in degrees Celsius and whether it
// has been read.
func (d *Driver) Temperature() (float32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.temperature == nil {
		return 0, false
	}
	return *d.temperature, true
}

// Humidity returns the relative humidity in percent and whether it has
// been read.
func (d *Driver) Humidity() (float32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.humidity == nil {
		return 0, false
	}
	return *d.humidity, true
}

// Value returns the most recently received raw payload, from a read or
// a notification.
func (d *Driver) Value() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastValue
}

// Services returns a copy of the service cache from the last discovery,
// keyed by UUID string, valued by [start, end] handle range.
func (d *Driver) Services() map[string][2]uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string][2]uint16, len(d.services))
	for k, v := range d.services {
		out[k] = v
	}
	return out
}

// Characteristics returns a copy of the characteristic cache from the
// last discovery, keyed by UUID string.
func (d *Driver) Characteristics() map[string]Characteristic {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]Characteristic, len(d.characteristics))
	for k, v := range d.characteristics {
		out[k] = v
	}
	return out
}

// ServiceRange returns the handle range recorded for the search
// service during discovery, and whether it was found.
func (d *Driver) ServiceRange() (startHandle, endHandle uint16, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startHandle == 0 && d.endHandle == 0 {
		return 0, 0, false
	}
	return d.startHandle, d.endHandle, true
}

func (d *Driver) discoverySnapshotLocked() Discovery {
	snap := Discovery{
		Services:        make(map[string][2]uint16, len(d.services)),
		Characteristics: make(map[string]Characteristic, len(d.characteristics)),
	}
	for k, v := range d.services {
		snap.Services[k] = v
	}
	for k, v := range d.characteristics {
		snap.Characteristics[k] = v
	}
	return snap
}
