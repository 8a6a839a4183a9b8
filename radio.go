package smartgadget

import "time"

// Radio is the host-controller interface the driver runs on. The
// implementation performs the over-the-air work and delivers its
// results asynchronously through the registered EventHandler.
//
// All methods only enqueue a request with the underlying stack and
// return; an error return means the stack refused to start the
// operation, not that the operation failed over the air.
type Radio interface {
	// Activate powers on the radio. Must be called before any other
	// method.
	Activate() error

	// SetEventHandler registers the single consumer of the radio's
	// event stream. The radio must deliver events one at a time, in
	// arrival order, and wait for HandleEvent to return before
	// delivering the next.
	SetEventHandler(h EventHandler)

	// Scan starts a discovery scan. The radio reports each sighting
	// with a ScanResult and ends the scan with a ScanDone, either when
	// duration elapses or after StopScan.
	Scan(window, interval, duration time.Duration, active bool) error

	// StopScan ends a running scan early. ScanDone is still delivered.
	StopScan() error

	// Connect initiates link establishment with a peripheral,
	// completing with a Connected event.
	Connect(addrType AddrType, addr Addr) error

	// Disconnect terminates the link, completing with a Disconnected
	// event.
	Disconnect(connHandle uint16) error

	// DiscoverServices requests full-range primary service discovery,
	// delivering ServiceResult events followed by ServiceDone.
	DiscoverServices(connHandle uint16) error

	// DiscoverCharacteristics requests characteristic discovery over a
	// handle range, delivering CharacteristicResult events followed by
	// CharacteristicDone.
	DiscoverCharacteristics(connHandle, startHandle, endHandle uint16) error

	// ReadAttribute reads an attribute value, completing with a
	// ReadResult (and possibly a trailing ReadDone).
	ReadAttribute(connHandle, valueHandle uint16) error

	// WriteAttribute writes an attribute value, completing with a
	// WriteDone.
	WriteAttribute(connHandle, valueHandle uint16, data []byte) error
}
