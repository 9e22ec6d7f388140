package wal

import "github.com/nexusdb/nexus/pkg/types"

// Broker fans committed WAL entries out to connected replica streams
// without blocking the commit path: Broadcast enqueues and returns, and a
// slow or disconnected subscriber drops entries rather than stalling
// Append.
type Broker struct {
	subscribe   chan chan subscription
	unsubscribe chan int
	entries     chan []types.WALEntry
}

type subscription struct {
	id int
	ch chan types.WALEntry
}

// NewBroker starts the broker's distribution loop and returns it ready to
// use.
func NewBroker() *Broker {
	b := &Broker{
		subscribe:   make(chan chan subscription),
		unsubscribe: make(chan int),
		entries:     make(chan []types.WALEntry, 256),
	}
	go b.run()
	return b
}

// Subscribe registers a new replica stream. The returned func unsubscribes
// and must be called exactly once when the stream goes away.
func (b *Broker) Subscribe() (<-chan types.WALEntry, func()) {
	reply := make(chan subscription)
	b.subscribe <- reply
	sub := <-reply
	return sub.ch, func() { b.unsubscribe <- sub.id }
}

// Broadcast enqueues entries for delivery to every current subscriber. It
// never blocks on a slow subscriber: a subscriber whose buffer is full
// drops whichever entries do not fit and relies on the replica reconnect/full-sync path to
// catch back up.
func (b *Broker) Broadcast(entries []types.WALEntry) {
	select {
	case b.entries <- entries:
	default:
		// Broker loop itself is backed up; the ring buffer still has the
		// entries for a later catch-up request.
	}
}

func (b *Broker) run() {
	subs := make(map[int]chan types.WALEntry)
	nextID := 0
	for {
		select {
		case reply := <-b.subscribe:
			ch := make(chan types.WALEntry, 1024)
			subs[nextID] = ch
			reply <- subscription{id: nextID, ch: ch}
			nextID++
		case id := <-b.unsubscribe:
			if ch, ok := subs[id]; ok {
				delete(subs, id)
				close(ch)
			}
		case batch := <-b.entries:
			for _, ch := range subs {
				for _, e := range batch {
					select {
					case ch <- e:
					default:
						// subscriber is behind; drop and let it full-sync
					}
				}
			}
		}
	}
}
