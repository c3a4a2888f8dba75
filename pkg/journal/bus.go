package journal

import (
	"context"
	"log"
	"sync"
)

// Bus is a Store that also pushes each appended entry to live
// subscribers. A subscription may be narrowed to the entries of one task.
type Bus struct {
	Store
	mu   sync.RWMutex
	subs map[chan *Entry]int64 // task filter; 0 receives everything
}

// subscriberBuffer is how far a subscriber may fall behind before
// entries are dropped for it.
const subscriberBuffer = 64

// NewBus creates a Bus over store.
func NewBus(store Store) *Bus {
	return &Bus{
		Store: store,
		subs:  make(map[chan *Entry]int64),
	}
}

// Append records the entry and then notifies matching subscribers. A
// subscriber whose buffer is full misses the entry; Append never waits.
func (b *Bus) Append(ctx context.Context, entryType string, taskID int64, content map[string]any) (*Entry, error) {
	e, err := b.Store.Append(ctx, entryType, taskID, content)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, filter := range b.subs {
		if filter != 0 && filter != e.TaskID {
			continue
		}
		select {
		case ch <- e:
		default:
			log.Printf("journal: subscriber behind, dropped %s %s", e.Type, e.ID)
		}
	}
	return e, nil
}

// Subscribe returns a channel of new entries for taskID, or of every
// entry when taskID is 0.
func (b *Bus) Subscribe(taskID int64) chan *Entry {
	ch := make(chan *Entry, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = taskID
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan *Entry) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
