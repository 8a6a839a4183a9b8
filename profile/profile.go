// Package profile describes a peripheral's GATT layout as data: the
// service and characteristic UUIDs it advertises and the fixed
// attribute handles of one firmware revision. Profiles can be declared
// in code or loaded from YAML, so supporting another peripheral is a
// config change rather than a code change.
package profile

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Services holds the peripheral's service UUIDs as hex strings, 16-bit
// or canonical 128-bit.
type Services struct {
	GenericAccess    string `yaml:"genericAccess"`
	GenericAttribute string `yaml:"genericAttribute"`
	DeviceInfo       string `yaml:"deviceInfo"`
	Battery          string `yaml:"battery"`
	Temperature      string `yaml:"temperature"`
	Humidity         string `yaml:"humidity"`
	Logger           string `yaml:"logger"`
}

// Characteristics holds the peripheral's characteristic UUIDs as hex
// strings.
type Characteristics struct {
	Temperature string `yaml:"temperature"`
	Humidity    string `yaml:"humidity"`
}

// Handles is the fixed attribute handle table of one firmware revision,
// as captured from a live characteristic discovery.
type Handles struct {
	DeviceName        uint16 `yaml:"deviceName"`
	Appearance        uint16 `yaml:"appearance"`
	SystemID          uint16 `yaml:"systemId"`
	ManufacturerName  uint16 `yaml:"manufacturerName"`
	ModelNumber       uint16 `yaml:"modelNumber"`
	SerialNumber      uint16 `yaml:"serialNumber"`
	HardwareRevision  uint16 `yaml:"hardwareRevision"`
	FirmwareRevision  uint16 `yaml:"firmwareRevision"`
	SoftwareRevision  uint16 `yaml:"softwareRevision"`
	BatteryLevel      uint16 `yaml:"batteryLevel"`
	SyncTimeMs        uint16 `yaml:"syncTimeMs"`
	OldestTimestampMs uint16 `yaml:"oldestTimestampMs"`
	NewestTimestampMs uint16 `yaml:"newestTimestampMs"`
	StartLogging      uint16 `yaml:"startLogging"`
	LogIntervalMs     uint16 `yaml:"logIntervalMs"`
	Humidity          uint16 `yaml:"humidity"`
	Temperature       uint16 `yaml:"temperature"`
}

// Profile is one peripheral's GATT contract.
type Profile struct {
	Name            string          `yaml:"name"`
	Services        Services        `yaml:"services"`
	Characteristics Characteristics `yaml:"characteristics"`
	Handles         Handles         `yaml:"handles"`
}

// SmartGadget returns the profile of the Sensirion SHT31 Smart Gadget,
// firmware revision 1.3. The handle table is the documented contract of
// that firmware; other revisions need their own profile.
func SmartGadget() Profile {
	return Profile{
		Name: "Smart Humigadget",
		Services: Services{
			GenericAccess:    "1800",
			GenericAttribute: "1801",
			DeviceInfo:       "180a",
			Battery:          "180f",
			Temperature:      "00001234-b38d-4985-720e-0f993a68ee41",
			Humidity:         "00002234-b38d-4985-720e-0f993a68ee41",
			Logger:           "0000f234-b38d-4985-720e-0f993a68ee41",
		},
		Characteristics: Characteristics{
			Temperature: "00001235-b38d-4985-720e-0f993a68ee41",
			Humidity:    "00002235-b38d-4985-720e-0f993a68ee41",
		},
		Handles: Handles{
			DeviceName:        3,
			Appearance:        5,
			SystemID:          14,
			ManufacturerName:  16,
			ModelNumber:       18,
			SerialNumber:      20,
			HardwareRevision:  22,
			FirmwareRevision:  24,
			SoftwareRevision:  26,
			BatteryLevel:      29,
			SyncTimeMs:        33,
			OldestTimestampMs: 36,
			NewestTimestampMs: 39,
			StartLogging:      42,
			LogIntervalMs:     46,
			Humidity:          50,
			Temperature:       55,
		},
	}
}

// Parse reads a profile from YAML.
func Parse(b []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profile{}, errors.Wrap(err, "profile parse")
	}
	if p.Handles.BatteryLevel == 0 && p.Handles.Temperature == 0 && p.Handles.Humidity == 0 {
		return Profile{}, errors.New("profile has no usable handles")
	}
	return p, nil
}

// Load reads a profile from a YAML file.
func Load(path string) (Profile, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return Profile{}, errors.Wrap(err, "profile read")
	}
	return Parse(b)
}

// Marshal renders the profile as YAML, for writing template files.
func Marshal(p Profile) ([]byte, error) {
	b, err := yaml.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "profile marshal")
	}
	return b, nil
}
