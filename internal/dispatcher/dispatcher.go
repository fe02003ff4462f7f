package dispatcher

import "github.com/asaskevich/EventBus"

type Subscriber interface {
	Subscribe(topic string, fn interface{})
}

type Emitter interface {
	Emit(topic string, args ...interface{})
}

// Dispatcher delivers events synchronously: Emit returns after every subscriber of the topic has handled it
type Dispatcher interface {
	Subscriber
	Emitter
}

type eventBusDispatcher struct {
	bus EventBus.Bus
}

// Subscribe panics when fn isn't a function, since it can only be a programming mistake
func (d *eventBusDispatcher) Subscribe(topic string, fn interface{}) {
	if err := d.bus.Subscribe(topic, fn); err != nil {
		panic(err)
	}
}

func (d *eventBusDispatcher) Emit(topic string, args ...interface{}) {
	d.bus.Publish(topic, args...)
}

func New() Dispatcher {
	return &eventBusDispatcher{
		bus: EventBus.New(),
	}
}
