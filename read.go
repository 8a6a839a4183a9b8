package smartgadget

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Payload layouts for the Smart Gadget's readable characteristics.
// Battery level is a single byte 0-100; the sensor values are 4-byte
// little-endian IEEE-754 floats.

// DecodeBatteryLevel decodes a battery level payload into a percentage.
func DecodeBatteryLevel(data []byte) (uint8, error) {
	if len(data) < 1 {
		return 0, errors.New("battery payload empty")
	}
	return data[0], nil
}

// DecodeSensorValue decodes a temperature or humidity payload.
func DecodeSensorValue(data []byte) (float32, error) {
	if len(data) < 4 {
		return 0, errors.Errorf("sensor payload too short: %d bytes, want 4", len(data))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(data)), nil
}

// EncodeSensorValue is the inverse of DecodeSensorValue, as a
// peripheral would produce it.
func EncodeSensorValue(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

// ReadBatteryLevel reads the battery level characteristic at its
// well-known handle. On success the decoded percentage is stored, the
// state advances to StateBatteryReadDone and the callback receives the
// value; a short payload surfaces as an error with no state change.
// Requires an active connection.
func (d *Driver) ReadBatteryLevel(cb BatteryCallback) {
	d.readAt(d.prof.Handles.BatteryLevel, func(data []byte) {
		pct, err := DecodeBatteryLevel(data)
		if err != nil {
			d.log.Warn("battery read: ", err)
			if cb != nil {
				cb(0, err)
			}
			return
		}
		d.mu.Lock()
		d.battery = &pct
		d.setStateLocked(StateBatteryReadDone)
		d.mu.Unlock()
		if cb != nil {
			cb(pct, nil)
		}
	})
}

// ReadTemperature reads the temperature characteristic at its
// well-known handle. On success the value in degrees Celsius is stored
// and the state advances to StateTemperatureReadDone; a short payload
// surfaces as an error with no state change. Requires an active
// connection.
func (d *Driver) ReadTemperature(cb SensorCallback) {
	d.readAt(d.prof.Handles.Temperature, func(data []byte) {
		v, err := DecodeSensorValue(data)
		if err != nil {
			d.log.Warn("temperature read: ", err)
			if cb != nil {
				cb(0, err)
			}
			return
		}
		d.mu.Lock()
		d.temperature = &v
		d.setStateLocked(StateTemperatureReadDone)
		d.mu.Unlock()
		if cb != nil {
			cb(v, nil)
		}
	})
}

// ReadHumidity reads the relative humidity characteristic at its
// well-known handle. On success the value in percent is stored and the
// state advances to StateHumidityReadDone; a short payload surfaces as
// an error with no state change. Requires an active connection.
func (d *Driver) ReadHumidity(cb SensorCallback) {
	d.readAt(d.prof.Handles.Humidity, func(data []byte) {
		v, err := DecodeSensorValue(data)
		if err != nil {
			d.log.Warn("humidity read: ", err)
			if cb != nil {
				cb(0, err)
			}
			return
		}
		d.mu.Lock()
		d.humidity = &v
		d.setStateLocked(StateHumidityReadDone)
		d.mu.Unlock()
		if cb != nil {
			cb(v, nil)
		}
	})
}

// ReadFirmwareVersion reads the firmware revision string from the
// device information service. The version is stored for Version; the
// state machine is not involved. Requires an active connection.
func (d *Driver) ReadFirmwareVersion(cb VersionCallback) {
	d.readAt(d.prof.Handles.FirmwareRevision, func(data []byte) {
		v := string(data)
		d.mu.Lock()
		d.version = v
		d.signalLocked()
		d.mu.Unlock()
		if cb != nil {
			cb(v, nil)
		}
	})
}

// WriteLogInterval sets the gadget's logging interval in milliseconds
// through its logger service. The callback fires once the peripheral
// acknowledges the write. Requires an active connection.
func (d *Driver) WriteLogInterval(intervalMs uint32, cb WriteCallback) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, intervalMs)
	d.write(d.prof.Handles.LogIntervalMs, b, cb)
}
