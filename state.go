package smartgadget

// State is the driver's position in its linear read sequence. It only
// ever advances, except for the reset back to StateInit on disconnect.
type State int

const (
	StateInit State = iota
	StateScanDone
	StateServiceDiscoveryDone
	StateCharacteristicDiscoveryDone
	StateBatteryReadDone
	StateTemperatureReadDone
	StateHumidityReadDone
)

var stateNames = [...]string{
	"init",
	"scan done",
	"service discovery done",
	"characteristic discovery done",
	"battery read done",
	"temperature read done",
	"humidity read done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
