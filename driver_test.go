package smartgadget

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/rigado/smartgadget/adv"
)

// stubRadio records trigger calls and lets tests deliver events
// synchronously through the driver's HandleEvent.
type stubRadio struct {
	handler EventHandler

	scans       int
	stops       int
	connects    int
	disconnects int
	svcDiscs    int
	charDiscs   int
	reads       int
	writes      int

	lastConnAddr   Addr
	lastReadHandle [2]uint16
	lastCharRange  [2]uint16
	lastWrite      []byte

	scanErr    error
	connectErr error
	readErr    error
}

func (r *stubRadio) Activate() error                 { return nil }
func (r *stubRadio) SetEventHandler(h EventHandler)  { r.handler = h }
func (r *stubRadio) StopScan() error                 { r.stops++; return nil }
func (r *stubRadio) Disconnect(connHandle uint16) error {
	r.disconnects++
	return nil
}

func (r *stubRadio) Scan(window, interval, duration time.Duration, active bool) error {
	r.scans++
	return r.scanErr
}

func (r *stubRadio) Connect(addrType AddrType, a Addr) error {
	r.connects++
	r.lastConnAddr = a
	return r.connectErr
}

func (r *stubRadio) DiscoverServices(connHandle uint16) error {
	r.svcDiscs++
	return nil
}

func (r *stubRadio) DiscoverCharacteristics(connHandle, startHandle, endHandle uint16) error {
	r.charDiscs++
	r.lastCharRange = [2]uint16{startHandle, endHandle}
	return nil
}

func (r *stubRadio) ReadAttribute(connHandle, valueHandle uint16) error {
	r.reads++
	r.lastReadHandle = [2]uint16{connHandle, valueHandle}
	return r.readErr
}

func (r *stubRadio) WriteAttribute(connHandle, valueHandle uint16, data []byte) error {
	r.writes++
	r.lastWrite = data
	return nil
}

const testAddr = "de:15:e4:b1:d6:67"

func newTestDriver(t *testing.T) (*Driver, *stubRadio) {
	t.Helper()
	r := &stubRadio{}
	d, err := New(r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, r
}

func advPayload(t *testing.T, name string) []byte {
	t.Helper()
	pdu, err := adv.NewPacket(adv.Flags(0x06), adv.CompleteName(name), adv.AllUUID([]byte{0x0f, 0x18}))
	if err != nil {
		t.Fatalf("adv payload: %v", err)
	}
	return pdu
}

// connect drives the stub through scanless link establishment.
func connect(t *testing.T, d *Driver, r *stubRadio) uint16 {
	t.Helper()
	if ok := d.Connect(AddrTypeRandom, NewAddr(testAddr), nil); !ok {
		t.Fatal("connect request failed")
	}
	d.HandleEvent(Connected{ConnHandle: 0x40, AddrType: AddrTypeRandom, Addr: NewAddr(testAddr)})
	if !d.IsConnected() {
		t.Fatal("not connected after matching connected event")
	}
	return 0x40
}

func TestScanMatchInvokesCallbackOnce(t *testing.T) {
	d, r := newTestDriver(t)
	d.SetSearchAddress(NewAddr(testAddr))

	var calls int
	var gotAddr Addr
	var gotName string
	d.Scan(func(addrType AddrType, a Addr, name string) {
		calls++
		gotAddr = a
		gotName = name
	})
	if r.scans != 1 {
		t.Fatalf("scan requests = %d, want 1", r.scans)
	}

	d.HandleEvent(ScanResult{
		AddrType: AddrTypeRandom,
		Addr:     NewAddr(testAddr),
		AdvType:  AdvInd,
		RSSI:     -70,
		Data:     advPayload(t, "Smart Humigadget"),
	})
	if r.stops != 1 {
		t.Fatalf("stop scan requests = %d, want 1", r.stops)
	}
	if !d.AddressFound() {
		t.Fatal("address not recorded from matching scan result")
	}
	if calls != 0 {
		t.Fatal("scan callback fired before scan done")
	}

	d.HandleEvent(ScanDone{})
	if calls != 1 {
		t.Fatalf("scan callback calls = %d, want 1", calls)
	}
	if gotAddr == nil || gotAddr.String() != testAddr {
		t.Fatalf("scan callback addr = %v, want %v", gotAddr, testAddr)
	}
	if gotName != "Smart Humigadget" {
		t.Fatalf("scan callback name = %q", gotName)
	}
	if d.RSSI() != -70 {
		t.Fatalf("rssi = %d, want -70", d.RSSI())
	}

	// one-shot: a second scan done must not fire it again
	d.HandleEvent(ScanDone{})
	if calls != 1 {
		t.Fatalf("scan callback calls after second scan done = %d, want 1", calls)
	}
}

func TestScanTimeoutInvokesCallbackEmpty(t *testing.T) {
	d, _ := newTestDriver(t)
	d.SetSearchAddress(NewAddr(testAddr))

	var calls int
	var gotAddr Addr
	d.Scan(func(addrType AddrType, a Addr, name string) {
		calls++
		gotAddr = a
	})
	d.HandleEvent(ScanDone{})
	if calls != 1 {
		t.Fatalf("scan callback calls = %d, want 1", calls)
	}
	if gotAddr != nil {
		t.Fatalf("timeout callback addr = %v, want nil", gotAddr)
	}
	if d.AddressFound() {
		t.Fatal("address found after empty scan")
	}
}

func TestScanResultFiltering(t *testing.T) {
	d, r := newTestDriver(t)
	d.SetSearchAddress(NewAddr(testAddr))
	d.Scan(nil)

	// wrong address
	d.HandleEvent(ScanResult{AddrType: AddrTypeRandom, Addr: NewAddr("11:22:33:44:55:66"), AdvType: AdvInd})
	if d.AddressFound() {
		t.Fatal("mismatched address matched")
	}

	// right address, non-connectable advertisement
	d.HandleEvent(ScanResult{AddrType: AddrTypeRandom, Addr: NewAddr(testAddr), AdvType: AdvNonconnInd})
	if d.AddressFound() {
		t.Fatal("non-connectable advertisement matched")
	}
	if r.stops != 0 {
		t.Fatal("scan stopped without a match")
	}
}

func TestScanRejectionSwallowed(t *testing.T) {
	d, r := newTestDriver(t)
	r.scanErr = errors.New("no resources")
	d.SetSearchAddress(NewAddr(testAddr))

	var calls int
	d.Scan(func(AddrType, Addr, string) { calls++ })
	if calls != 0 {
		t.Fatal("callback fired on rejected scan")
	}
	// the caller detects the failure by timeout
	if d.WaitForState(StateScanDone, 20*time.Millisecond) {
		t.Fatal("wait succeeded with no scan running")
	}
}

func TestConnectWithExplicitAddress(t *testing.T) {
	d, r := newTestDriver(t)

	var calls int
	if ok := d.Connect(AddrTypeRandom, NewAddr(testAddr), func() { calls++ }); !ok {
		t.Fatal("connect request failed")
	}
	if r.connects != 1 {
		t.Fatalf("connect requests = %d, want 1", r.connects)
	}

	// event for some other peripheral is dropped
	d.HandleEvent(Connected{ConnHandle: 9, AddrType: AddrTypeRandom, Addr: NewAddr("11:22:33:44:55:66")})
	if d.IsConnected() {
		t.Fatal("connected on mismatched address")
	}
	if calls != 0 {
		t.Fatal("connect callback fired on mismatched address")
	}

	d.HandleEvent(Connected{ConnHandle: 0x40, AddrType: AddrTypeRandom, Addr: NewAddr(testAddr)})
	if !d.IsConnected() {
		t.Fatal("not connected after matching event")
	}
	if calls != 1 {
		t.Fatalf("connect callback calls = %d, want 1", calls)
	}
}

func TestConnectWithoutAddressFails(t *testing.T) {
	d, r := newTestDriver(t)

	var calls int
	if ok := d.Connect(AddrTypePublic, nil, func() { calls++ }); ok {
		t.Fatal("connect succeeded with no address")
	}
	if r.connects != 0 {
		t.Fatal("radio connect issued with no address")
	}
	if calls != 0 {
		t.Fatal("callback fired for failed connect")
	}
}

func TestConnectUsesCachedScanAddress(t *testing.T) {
	d, r := newTestDriver(t)
	d.SetSearchAddress(NewAddr(testAddr))
	d.Scan(nil)
	d.HandleEvent(ScanResult{AddrType: AddrTypeRandom, Addr: NewAddr(testAddr), AdvType: AdvInd})
	d.HandleEvent(ScanDone{})

	if ok := d.Connect(AddrTypePublic, nil, nil); !ok {
		t.Fatal("connect with cached address failed")
	}
	if r.lastConnAddr == nil || r.lastConnAddr.String() != testAddr {
		t.Fatalf("connect addr = %v, want cached %v", r.lastConnAddr, testAddr)
	}
}

func TestWaitForConnection(t *testing.T) {
	d, _ := newTestDriver(t)
	d.SetSearchAddress(NewAddr(testAddr))
	d.Connect(AddrTypeRandom, NewAddr(testAddr), nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		d.HandleEvent(Connected{ConnHandle: 0x40, AddrType: AddrTypeRandom, Addr: NewAddr(testAddr)})
	}()

	if !d.WaitForConnection(true, time.Second) {
		t.Fatal("wait for connection timed out")
	}
	if d.WaitForConnection(false, 30*time.Millisecond) {
		t.Fatal("wait for disconnection succeeded while connected")
	}
}

func TestLocalDisconnectResetsEagerly(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)

	d.Disconnect()
	if r.disconnects != 1 {
		t.Fatalf("disconnect requests = %d, want 1", r.disconnects)
	}
	if d.IsConnected() {
		t.Fatal("still connected after local disconnect")
	}
	if d.State() != StateInit {
		t.Fatalf("state = %v, want %v", d.State(), StateInit)
	}

	// the trailing event finds no matching handle and no-ops
	d.HandleEvent(Disconnected{ConnHandle: h, AddrType: AddrTypeRandom, Addr: NewAddr(testAddr)})
	if d.State() != StateInit {
		t.Fatalf("state after trailing disconnect event = %v", d.State())
	}

	// a second local disconnect is a no-op
	d.Disconnect()
	if r.disconnects != 1 {
		t.Fatal("disconnect issued while not connected")
	}
}

func TestRemoteDisconnectDiscardsPendingCallbacks(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)

	var reads int
	d.SetValueHandle(29)
	d.Read(func([]byte) { reads++ })

	d.HandleEvent(Disconnected{ConnHandle: h, AddrType: AddrTypeRandom, Addr: NewAddr(testAddr)})
	if d.IsConnected() {
		t.Fatal("connected after remote disconnect")
	}
	if len(d.Services()) != 0 || len(d.Characteristics()) != 0 {
		t.Fatal("caches not cleared by reset")
	}

	// late read result must not revive the discarded callback
	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 29, Data: []byte{0x64}})
	if reads != 0 {
		t.Fatal("discarded read callback was invoked")
	}
	if d.Value() != nil {
		t.Fatal("stale read stored after reset")
	}
}

func TestRemoteDisconnectMismatchedHandleIgnored(t *testing.T) {
	d, r := newTestDriver(t)
	connect(t, d, r)

	d.HandleEvent(Disconnected{ConnHandle: 0x99, AddrType: AddrTypeRandom, Addr: NewAddr(testAddr)})
	if !d.IsConnected() {
		t.Fatal("disconnected by event for another handle")
	}
}

func TestServiceDiscovery(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)
	humidity := MustParseUUID("00002234-b38d-4985-720e-0f993a68ee41")
	d.SetSearchService(humidity)

	var calls int
	d.DiscoverServices(func() { calls++ })
	if r.svcDiscs != 1 {
		t.Fatalf("service discovery requests = %d, want 1", r.svcDiscs)
	}

	d.HandleEvent(ServiceResult{ConnHandle: h, StartHandle: 28, EndHandle: 30, UUID: UUID16(0x180f)})
	d.HandleEvent(ServiceResult{ConnHandle: h, StartHandle: 48, EndHandle: 53, UUID: humidity})
	// stale result from another connection is dropped
	d.HandleEvent(ServiceResult{ConnHandle: 0x99, StartHandle: 1, EndHandle: 5, UUID: UUID16(0x1800)})

	d.HandleEvent(ServiceDone{ConnHandle: h})
	if d.State() != StateServiceDiscoveryDone {
		t.Fatalf("state = %v, want %v", d.State(), StateServiceDiscoveryDone)
	}
	if calls != 1 {
		t.Fatalf("discovery callback calls = %d, want 1", calls)
	}

	svcs := d.Services()
	if len(svcs) != 2 {
		t.Fatalf("services = %v, want 2 entries", svcs)
	}
	if svcs[humidity.String()] != [2]uint16{48, 53} {
		t.Fatalf("humidity service range = %v", svcs[humidity.String()])
	}

	start, end, ok := d.ServiceRange()
	if !ok || start != 48 || end != 53 {
		t.Fatalf("search service range = %v..%v (%v)", start, end, ok)
	}
}

func TestCharacteristicDiscovery(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)

	var calls int
	d.DiscoverCharacteristics(1, 0xffff, func() { calls++ })
	if r.charDiscs != 1 || r.lastCharRange != [2]uint16{1, 0xffff} {
		t.Fatalf("characteristic discovery = %d calls, range %v", r.charDiscs, r.lastCharRange)
	}

	battery := UUID16(0x2a19)
	d.HandleEvent(CharacteristicResult{ConnHandle: h, DeclHandle: 28, ValueHandle: 29, Properties: 0x12, UUID: battery})
	d.HandleEvent(CharacteristicDone{ConnHandle: h})

	if d.State() != StateCharacteristicDiscoveryDone {
		t.Fatalf("state = %v", d.State())
	}
	if calls != 1 {
		t.Fatalf("discovery callback calls = %d, want 1", calls)
	}
	ch, ok := d.Characteristics()[battery.String()]
	if !ok || ch.ValueHandle != 29 || ch.Properties != 0x12 {
		t.Fatalf("battery characteristic = %+v (%v)", ch, ok)
	}
}

func TestDiscoveryRequiresConnection(t *testing.T) {
	d, r := newTestDriver(t)

	var calls int
	d.DiscoverServices(func() { calls++ })
	d.DiscoverCharacteristics(1, 0xffff, func() { calls++ })
	if r.svcDiscs != 0 || r.charDiscs != 0 {
		t.Fatal("discovery issued while disconnected")
	}
	if calls != 0 {
		t.Fatal("callback fired for refused discovery")
	}
}

func TestReadResultMatching(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)
	d.SetValueHandle(29)

	var got []byte
	var calls int
	d.Read(func(data []byte) { calls++; got = data })
	if r.lastReadHandle != [2]uint16{h, 29} {
		t.Fatalf("read issued at %v", r.lastReadHandle)
	}

	// mismatched value handle: dropped, no state change, no callback
	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 55, Data: []byte{1, 2, 3, 4}})
	if calls != 0 || d.Value() != nil {
		t.Fatal("mismatched read result not dropped")
	}

	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 29, Data: []byte{0x64}})
	if calls != 1 {
		t.Fatalf("read callback calls = %d, want 1", calls)
	}
	if len(got) != 1 || got[0] != 0x64 {
		t.Fatalf("read payload = %v", got)
	}

	// one-shot: a repeat event must not fire it again
	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 29, Data: []byte{0x63}})
	if calls != 1 {
		t.Fatalf("read callback calls after repeat = %d, want 1", calls)
	}
}

func TestPendingCallbackReplacement(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)
	d.SetValueHandle(29)

	var first, second int
	d.Read(func([]byte) { first++ })
	d.Read(func([]byte) { second++ })

	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 29, Data: []byte{0x64}})
	if first != 0 {
		t.Fatal("replaced callback was invoked")
	}
	if second != 1 {
		t.Fatalf("replacement callback calls = %d, want 1", second)
	}
}

func TestReadRequiresConnection(t *testing.T) {
	d, r := newTestDriver(t)

	var calls int
	d.Read(func([]byte) { calls++ })
	d.ReadBatteryLevel(func(uint8, error) { calls++ })
	if r.reads != 0 {
		t.Fatal("read issued while disconnected")
	}
	if calls != 0 {
		t.Fatal("callback fired for refused read")
	}
}

func TestReadBatteryLevel(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)

	var got uint8
	var gotErr error
	d.ReadBatteryLevel(func(pct uint8, err error) { got, gotErr = pct, err })
	if r.lastReadHandle != [2]uint16{h, 29} {
		t.Fatalf("battery read issued at %v, want handle 29", r.lastReadHandle)
	}

	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 29, Data: []byte{0x64}})
	if gotErr != nil {
		t.Fatalf("battery callback error: %v", gotErr)
	}
	if got != 100 {
		t.Fatalf("battery = %d, want 100", got)
	}
	if pct, ok := d.Battery(); !ok || pct != 100 {
		t.Fatalf("stored battery = %d (%v)", pct, ok)
	}
	if d.State() != StateBatteryReadDone {
		t.Fatalf("state = %v, want %v", d.State(), StateBatteryReadDone)
	}
}

func TestReadBatteryLevelShortPayload(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)

	var gotErr error
	d.ReadBatteryLevel(func(pct uint8, err error) { gotErr = err })
	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 29, Data: nil})

	if gotErr == nil {
		t.Fatal("short battery payload produced no error")
	}
	if _, ok := d.Battery(); ok {
		t.Fatal("battery stored from short payload")
	}
	if d.State() != StateInit {
		t.Fatalf("state advanced on decode error: %v", d.State())
	}
}

func TestReadTemperature(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)

	var got float32
	d.ReadTemperature(func(v float32, err error) { got = v })
	if r.lastReadHandle != [2]uint16{h, 55} {
		t.Fatalf("temperature read issued at %v, want handle 55", r.lastReadHandle)
	}

	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 55, Data: EncodeSensorValue(23.5)})
	if got != 23.5 {
		t.Fatalf("temperature = %v, want 23.5", got)
	}
	if v, ok := d.Temperature(); !ok || v != 23.5 {
		t.Fatalf("stored temperature = %v (%v)", v, ok)
	}
	if d.State() != StateTemperatureReadDone {
		t.Fatalf("state = %v", d.State())
	}
}

func TestReadHumidityShortPayload(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)

	var gotErr error
	d.ReadHumidity(func(v float32, err error) { gotErr = err })
	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 50, Data: []byte{1, 2}})

	if gotErr == nil {
		t.Fatal("short humidity payload produced no error")
	}
	if d.State() != StateInit {
		t.Fatalf("state advanced on decode error: %v", d.State())
	}
}

func TestReadFirmwareVersion(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)

	var got string
	d.ReadFirmwareVersion(func(v string, err error) { got = v })
	if r.lastReadHandle != [2]uint16{h, 24} {
		t.Fatalf("firmware read issued at %v, want handle 24", r.lastReadHandle)
	}

	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 24, Data: []byte("1.3")})
	if got != "1.3" || d.Version() != "1.3" {
		t.Fatalf("version = %q / %q, want 1.3", got, d.Version())
	}
	if d.State() != StateInit {
		t.Fatalf("firmware read changed state: %v", d.State())
	}
}

func TestWriteLogInterval(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)

	var calls int
	d.WriteLogInterval(60000, func() { calls++ })
	if r.writes != 1 {
		t.Fatalf("write requests = %d, want 1", r.writes)
	}
	want := []byte{0x60, 0xea, 0x00, 0x00}
	if len(r.lastWrite) != 4 || r.lastWrite[0] != want[0] || r.lastWrite[1] != want[1] {
		t.Fatalf("write payload = %v, want %v", r.lastWrite, want)
	}

	d.HandleEvent(WriteDone{ConnHandle: h, ValueHandle: 46})
	if calls != 1 {
		t.Fatalf("write callback calls = %d, want 1", calls)
	}

	// repeat event: one-shot
	d.HandleEvent(WriteDone{ConnHandle: h, ValueHandle: 46})
	if calls != 1 {
		t.Fatal("write callback fired twice")
	}
}

func TestNotificationCallbackPersists(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)
	d.SetValueHandle(50)

	var values []float32
	d.OnNotify(func(data []byte) {
		v, err := DecodeSensorValue(data)
		if err != nil {
			t.Errorf("notify decode: %v", err)
			return
		}
		values = append(values, v)
	})

	d.HandleEvent(Notification{ConnHandle: h, ValueHandle: 50, Data: EncodeSensorValue(40)})
	d.HandleEvent(Notification{ConnHandle: h, ValueHandle: 50, Data: EncodeSensorValue(41)})
	// mismatched value handle is dropped
	d.HandleEvent(Notification{ConnHandle: h, ValueHandle: 55, Data: EncodeSensorValue(99)})

	if len(values) != 2 || values[0] != 40 || values[1] != 41 {
		t.Fatalf("notified values = %v, want [40 41]", values)
	}
	if v, err := DecodeSensorValue(d.Value()); err != nil || v != 41 {
		t.Fatalf("last value = %v (%v)", v, err)
	}
}

func TestStateOnlyMovesForward(t *testing.T) {
	d, r := newTestDriver(t)
	h := connect(t, d, r)

	seen := []State{d.State()}
	observe := func() {
		if s := d.State(); s != seen[len(seen)-1] {
			seen = append(seen, s)
		}
	}

	d.DiscoverServices(nil)
	d.HandleEvent(ServiceDone{ConnHandle: h})
	observe()
	d.DiscoverCharacteristics(1, 0xffff, nil)
	d.HandleEvent(CharacteristicDone{ConnHandle: h})
	observe()
	d.ReadBatteryLevel(nil)
	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 29, Data: []byte{0x5f}})
	observe()
	d.ReadTemperature(nil)
	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 55, Data: EncodeSensorValue(21)})
	observe()
	d.ReadHumidity(nil)
	d.HandleEvent(ReadResult{ConnHandle: h, ValueHandle: 50, Data: EncodeSensorValue(45)})
	observe()

	want := []State{
		StateInit,
		StateServiceDiscoveryDone,
		StateCharacteristicDiscoveryDone,
		StateBatteryReadDone,
		StateTemperatureReadDone,
		StateHumidityReadDone,
	}
	if len(seen) != len(want) {
		t.Fatalf("state sequence = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("state sequence = %v, want %v", seen, want)
		}
	}
}

func TestWaitForStateTimeout(t *testing.T) {
	d, _ := newTestDriver(t)
	start := time.Now()
	if d.WaitForState(StateHumidityReadDone, 30*time.Millisecond) {
		t.Fatal("wait succeeded with nothing happening")
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("wait returned after %v, before the timeout", elapsed)
	}
}

type bogusEvent struct{}

func (bogusEvent) Kind() EventKind { return EventKind(999) }

func TestUnknownEventIgnored(t *testing.T) {
	d, _ := newTestDriver(t)
	d.HandleEvent(bogusEvent{})
	if d.State() != StateInit {
		t.Fatalf("state changed by unknown event: %v", d.State())
	}
}
