// Package hub fans sensor readings out to in-process subscribers. It is
// the single owner of the current reading and the connection status.
package hub

import (
	"sync"

	sensordomain "github.com/Ethronics/ecosnap-sub001/internal/sensor/domain"
)

const DefaultSubscriberBuffer = 16

type Hub struct {
	mu               sync.RWMutex
	current          *sensordomain.SensorReading
	mqttConnected    bool
	subs             map[uint64]chan sensordomain.SensorReading
	nextID           uint64
	subscriberBuffer int
}

type Subscription struct {
	hub  *Hub
	id   uint64
	ch   chan sensordomain.SensorReading
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{
		subs:             make(map[uint64]chan sensordomain.SensorReading),
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish replaces the current reading and broadcasts it. Slow
// subscribers are skipped rather than blocking the feed.
func (h *Hub) Publish(reading sensordomain.SensorReading) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.current = &reading
	subs := make([]chan sensordomain.SensorReading, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- reading:
		default:
		}
	}
}

// Current returns the last accepted reading, or nil before the first one.
func (h *Hub) Current() *sensordomain.SensorReading {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return nil
	}
	reading := *h.current
	return &reading
}

// SetConnected records the feed connection state.
func (h *Hub) SetConnected(connected bool) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.mqttConnected = connected
	h.mu.Unlock()
}

// Status snapshots the connection state and registered client count.
func (h *Hub) Status() sensordomain.ConnectionStatus {
	if h == nil {
		return sensordomain.ConnectionStatus{}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sensordomain.ConnectionStatus{
		MQTTConnected:        h.mqttConnected,
		WebsocketClientCount: len(h.subs),
	}
}

// Subscribe registers a new subscriber and returns it together with the
// current reading, if any.
func (h *Hub) Subscribe() (*Subscription, *sensordomain.SensorReading) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan sensordomain.SensorReading, h.subscriberBuffer)
	h.subs[id] = ch
	var current *sensordomain.SensorReading
	if h.current != nil {
		reading := *h.current
		current = &reading
	}
	h.mu.Unlock()

	return &Subscription{hub: h, id: id, ch: ch}, current
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (s *Subscription) Readings() <-chan sensordomain.SensorReading {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.id)
	})
}
