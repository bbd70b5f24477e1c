// Package domain contains the transient realtime sensor types. Readings
// are never persisted; the latest value replaces the previous one.
package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Metric is a sensor measurement that may be absent. It marshals as a
// JSON number when present and as the string "N/A" when not, matching
// the wire format the sensor feed uses.
type Metric struct {
	Value float64
	Valid bool
}

const notAvailable = `"N/A"`

func MetricOf(v float64) Metric { return Metric{Value: v, Valid: true} }

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte(notAvailable), nil
	}
	return []byte(strconv.FormatFloat(m.Value, 'f', -1, 64)), nil
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" || string(data) == notAvailable {
		*m = Metric{}
		return nil
	}
	if data[0] == '"' {
		// Any other quoted value is also treated as absent.
		*m = Metric{}
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*m = Metric{Value: v, Valid: true}
	return nil
}

// SensorReading is one snapshot from the feed. Last write wins.
type SensorReading struct {
	Temperature Metric    `json:"temperature"`
	Humidity    Metric    `json:"humidity"`
	Domain      string    `json:"domain,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ConnectionStatus describes the realtime pipeline health.
type ConnectionStatus struct {
	MQTTConnected        bool `json:"mqttConnected"`
	WebsocketClientCount int  `json:"websocketClientCount"`
}

// ParseReading decodes a raw feed payload. The feed sends either bare
// metrics or a full reading object; both are accepted.
func ParseReading(payload []byte, now time.Time) (SensorReading, error) {
	var reading SensorReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return SensorReading{}, err
	}
	if reading.LastUpdated.IsZero() {
		reading.LastUpdated = now
	}
	return reading, nil
}
