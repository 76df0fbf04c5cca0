package interfaces

import (
	"encoding/hex"
	"errors"
)

// DeviceIDLength is the number of hex characters in a DeviceID.
const DeviceIDLength = 16

// DeviceID is the short fingerprint two devices sharing a secret agree on.
type DeviceID string

// NewDeviceID validates s as a DeviceID.
func NewDeviceID(s string) (DeviceID, error) {
	if len(s) != DeviceIDLength {
		return "", errors.New("invalid device id length: must be 16 hex characters")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", errors.New("invalid device id: not a hex string")
	}
	return DeviceID(s), nil
}

// String returns the hex representation.
func (id DeviceID) String() string {
	return string(id)
}
