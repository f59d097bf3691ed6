package clockdisplay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/gateway"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

// DefaultRetryInterval is the pause between WebSocket reconnect attempts.
const DefaultRetryInterval = 5 * time.Second

var ErrRoomNotFound = errors.New("room not found")

// ClockURL returns the clock WebSocket URL of room on the gateway at baseURL.
func ClockURL(baseURL, room string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid gateway url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid gateway url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/clock"
	u.RawQuery = url.Values{"room": {room}}.Encode()
	return u.String(), nil
}

// Subscriber keeps a WebSocket to the gateway open and feeds what it receives
// into the display.
type Subscriber struct {
	clock    clockwork.Clock
	url      string
	dialer   *websocket.Dialer
	observer *timersync.Observer
	onEvent  func(timersync.Event)
	retry    time.Duration
}

func NewSubscriber(clock clockwork.Clock, wsURL string, observer *timersync.Observer, onEvent func(timersync.Event)) *Subscriber {
	return &Subscriber{
		clock:    clock,
		url:      wsURL,
		dialer:   websocket.DefaultDialer,
		observer: observer,
		onEvent:  onEvent,
		retry:    DefaultRetryInterval,
	}
}

// Run reconnects until ctx is cancelled. It gives up only on an unknown room.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrRoomNotFound) {
			return err
		}
		log.Warn().Err(err).Dur("retry", s.retry).Msg("clock connection lost, polling until reconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(s.retry):
		}
	}
}

func (s *Subscriber) session(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to dial gateway: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	log.Info().Str("url", s.url).Msg("clock connected")
	for {
		var msg gateway.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		s.handle(msg)
	}
}

func (s *Subscriber) handle(msg gateway.Message) {
	switch msg.Type {
	case gateway.MessageTypeTimer:
		if msg.Timer == nil {
			return
		}
		if !s.observer.Apply(*msg.Timer) {
			log.Debug().Int64("updated_at", msg.Timer.UpdatedAt).Msg("ignored stale timer record")
		}
	case gateway.MessageTypeEvent:
		if msg.Event != nil && s.onEvent != nil {
			s.onEvent(*msg.Event)
		}
	default:
		log.Warn().Str("type", string(msg.Type)).Msg("unknown message type")
	}
}
