package smartgadget

// EventKind identifies one of the asynchronous events a Radio delivers.
// The set is closed; the driver ignores kinds it has no handler for.
type EventKind int

const (
	EvtScanResult EventKind = iota + 1
	EvtScanDone
	EvtConnected
	EvtDisconnected
	EvtServiceResult
	EvtServiceDone
	EvtCharacteristicResult
	EvtCharacteristicDone
	EvtReadResult
	EvtReadDone
	EvtWriteDone
	EvtNotification
)

var eventKindNames = map[EventKind]string{
	EvtScanResult:           "scan result",
	EvtScanDone:             "scan done",
	EvtConnected:            "connected",
	EvtDisconnected:         "disconnected",
	EvtServiceResult:        "service result",
	EvtServiceDone:          "service done",
	EvtCharacteristicResult: "characteristic result",
	EvtCharacteristicDone:   "characteristic done",
	EvtReadResult:           "read result",
	EvtReadDone:             "read done",
	EvtWriteDone:            "write done",
	EvtNotification:         "notification",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is one asynchronous radio event. The concrete type carries the
// event's payload fields.
type Event interface {
	Kind() EventKind
}

// EventHandler consumes radio events. It is called from the radio's
// delivery goroutine, one event at a time, and must not block.
type EventHandler interface {
	HandleEvent(e Event)
}

// AdvType is the advertising PDU type seen in a scan result.
type AdvType uint8

const (
	AdvInd        AdvType = 0x00 // connectable, scannable, undirected
	AdvDirectInd  AdvType = 0x01 // connectable, directed
	AdvScanInd    AdvType = 0x02 // scannable, non-connectable
	AdvNonconnInd AdvType = 0x03 // non-connectable, non-scannable
	AdvScanRsp    AdvType = 0x04 // scan response
)

// Connectable reports whether a peripheral advertising with this PDU
// type accepts connections.
func (t AdvType) Connectable() bool {
	return t == AdvInd || t == AdvDirectInd || t == AdvScanRsp
}

// ScanResult is one advertising report received during a scan.
type ScanResult struct {
	AddrType AddrType
	Addr     Addr
	AdvType  AdvType
	RSSI     int
	Data     []byte // raw advertising payload
}

// ScanDone signals the end of a scan, whether it ran to its duration or
// was stopped.
type ScanDone struct{}

// Connected signals successful link establishment with a peripheral.
type Connected struct {
	ConnHandle uint16
	AddrType   AddrType
	Addr       Addr
}

// Disconnected signals link termination, locally or remotely initiated.
type Disconnected struct {
	ConnHandle uint16
	AddrType   AddrType
	Addr       Addr
}

// ServiceResult reports one service found during service discovery.
type ServiceResult struct {
	ConnHandle  uint16
	StartHandle uint16
	EndHandle   uint16
	UUID        UUID
}

// ServiceDone signals the end of service discovery.
type ServiceDone struct {
	ConnHandle uint16
	Status     int
}

// CharacteristicResult reports one characteristic found during
// characteristic discovery.
type CharacteristicResult struct {
	ConnHandle  uint16
	DeclHandle  uint16
	ValueHandle uint16
	Properties  uint8
	UUID        UUID
}

// CharacteristicDone signals the end of characteristic discovery.
type CharacteristicDone struct {
	ConnHandle uint16
	Status     int
}

// ReadResult carries the payload of a completed attribute read.
type ReadResult struct {
	ConnHandle  uint16
	ValueHandle uint16
	Data        []byte
}

// ReadDone signals read completion without data. NimBLE emits it after
// ReadResult; the driver treats it as a protocol artifact.
type ReadDone struct {
	ConnHandle  uint16
	ValueHandle uint16
	Status      int
}

// WriteDone signals completion of an attribute write.
// Status is zero on success, stack-specific otherwise.
type WriteDone struct {
	ConnHandle  uint16
	ValueHandle uint16
	Status      int
}

// Notification carries a value pushed by the peripheral for a
// subscribed characteristic.
type Notification struct {
	ConnHandle  uint16
	ValueHandle uint16
	Data        []byte
}

func (ScanResult) Kind() EventKind           { return EvtScanResult }
func (ScanDone) Kind() EventKind             { return EvtScanDone }
func (Connected) Kind() EventKind            { return EvtConnected }
func (Disconnected) Kind() EventKind         { return EvtDisconnected }
func (ServiceResult) Kind() EventKind        { return EvtServiceResult }
func (ServiceDone) Kind() EventKind          { return EvtServiceDone }
func (CharacteristicResult) Kind() EventKind { return EvtCharacteristicResult }
func (CharacteristicDone) Kind() EventKind   { return EvtCharacteristicDone }
func (ReadResult) Kind() EventKind           { return EvtReadResult }
func (ReadDone) Kind() EventKind             { return EvtReadDone }
func (WriteDone) Kind() EventKind            { return EvtWriteDone }
func (Notification) Kind() EventKind         { return EvtNotification }
