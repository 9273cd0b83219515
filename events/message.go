package events

import (
	"encoding/json"
	"time"

	"netwarden/presence"
)

// Event kinds pushed to subscribers.
const (
	TypeDeviceScan       = "device_scan"
	TypeDeviceBlocked    = "deviceBlocked"
	TypeDeviceUnblocked  = "deviceUnblocked"
	TypeNewDeviceAttempt = "newDeviceAttempt"
	TypeDeviceApproved   = "deviceApproved"
)

// Message is the wire shape pushed over the event channel.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}

// Marshal serializes the message, stamping the timestamp if unset.
func (m *Message) Marshal() ([]byte, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	return json.Marshal(m)
}

// DeviceScan builds a full device-list snapshot event.
func DeviceScan(devices []presence.DeviceRecord) Message {
	return Message{Type: TypeDeviceScan, Data: devices, Timestamp: time.Now()}
}

// DeviceBlocked reports that enforcement was applied to a MAC.
func DeviceBlocked(mac string) Message {
	return Message{Type: TypeDeviceBlocked, Data: map[string]string{"mac": mac}, Timestamp: time.Now()}
}

// DeviceUnblocked reports that enforcement was removed for a MAC.
func DeviceUnblocked(mac string) Message {
	return Message{Type: TypeDeviceUnblocked, Data: map[string]string{"mac": mac}, Timestamp: time.Now()}
}

// NewDeviceAttempt reports an unrecognized device asking for access.
func NewDeviceAttempt(mac, ip, name string) Message {
	return Message{
		Type:      TypeNewDeviceAttempt,
		Data:      map[string]string{"mac": mac, "ip": ip, "name": name},
		Timestamp: time.Now(),
	}
}

// DeviceApproved reports that a pending request was approved.
func DeviceApproved(mac string) Message {
	return Message{Type: TypeDeviceApproved, Data: map[string]string{"mac": mac}, Timestamp: time.Now()}
}
