package eventbus

import (
	"sync"
)

// Publisher is the slice of the bus the grant domain depends on.
type Publisher interface {
	PublishAsync(topic string, args ...interface{})
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishAsync(string, ...interface{}) {}

var (
	defaultBus *AsyncEventBus
	once       sync.Once
)

// Default returns the process wide bus, starting it on first use.
func Default() *AsyncEventBus {
	once.Do(func() {
		defaultBus = NewAsyncEventBus(4)
		defaultBus.Start()
	})
	return defaultBus
}

// PublishAsync publishes on the default bus.
func PublishAsync(topic string, args ...interface{}) {
	Default().PublishAsync(topic, args...)
}

// Subscribe subscribes on the default bus.
func Subscribe(topic string, fn interface{}) error {
	return Default().Subscribe(topic, fn)
}

// Shutdown stops the default bus if it was started.
func Shutdown() {
	if defaultBus != nil {
		defaultBus.Stop()
	}
}
