package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

const subscriberBuffer = 16

// Broker owns the set of currently connected clients and fans committed
// mutation events out to all of them. It holds no other state: a client
// that is not connected at emit time simply misses the event and must
// reload the board to catch up.
type Broker struct {
	log *log.Logger

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewBroker creates an empty broker.
func NewBroker(logger *log.Logger) *Broker {
	return &Broker{log: logger, subs: make(map[chan []byte]struct{})}
}

func (b *Broker) subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.WithField("connections", count).Info("client connected")
	}
	return ch
}

func (b *Broker) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.WithField("connections", count).Info("client disconnected")
	}
}

// Broadcast delivers the event to every client connected at the moment of
// the call. Sends never block: a subscriber whose buffer is full drops the
// event, and no delivery failure ever reaches the caller.
func (b *Broker) Broadcast(ev domain.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		if b.log != nil {
			b.log.Errorf("marshal event: %v", err)
		}
		return
	}
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.Unlock()
}

// ConnectionCount reports the number of live subscribers. Observability
// only; it gates nothing.
func (b *Broker) ConnectionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// StreamHandler returns an SSE endpoint streaming broadcast events to the
// connected client until it goes away.
func (b *Broker) StreamHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		// Initial comment forces the headers out to the client.
		if _, err := c.Response().Write([]byte(":ok\n\n")); err != nil {
			return nil
		}
		flusher.Flush()

		ch := b.subscribe()
		defer b.unsubscribe(ch)
		ctx := c.Request().Context()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := c.Response().Write([]byte(":ping\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			case data := <-ch:
				if _, err := c.Response().Write([]byte("data: ")); err != nil {
					return nil
				}
				if _, err := c.Response().Write(data); err != nil {
					return nil
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			}
		}
	}
}
