package presence

import (
	"time"

	"netwarden/scanner"
)

// DeviceStatus represents the derived online/offline state of a device.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
)

// DeviceRecord is the persisted state for one device, keyed by its
// lower-case colon-separated MAC address.
//
// Status and LastSeen are owned by the presence cache and recomputed every
// scan cycle; Blocked is sticky and only ever changed by the access
// controller.
type DeviceRecord struct {
	MAC      string             `json:"mac"`
	IP       string             `json:"ip"`
	Name     string             `json:"name"`
	Vendor   string             `json:"vendor"`
	Type     scanner.DeviceType `json:"type"`
	Status   DeviceStatus       `json:"status"`
	Blocked  bool               `json:"blocked"`
	LastSeen time.Time          `json:"lastSeen"`
}
