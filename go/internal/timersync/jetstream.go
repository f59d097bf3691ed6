package timersync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	timerSubjectToken = "timer"
	eventSubjectToken = "events"
)

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	ConsumerName    string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	Replicas        int
	DuplicateWindow time.Duration
	MaxDeliver      int
	AckWait         time.Duration
	MaxAckPending   int
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "SCOREBOARD",
		SubjectPrefix:   "scoreboard",
		ConsumerName:    "scoreboard-gateway",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          24 * time.Hour,
		Replicas:        1,
		DuplicateWindow: 10 * time.Minute,
		MaxDeliver:      5,
		AckWait:         30 * time.Second,
		MaxAckPending:   100,
	}
}

// TimerSubject is the subject a room's timer records are published on.
func (c JetStreamConfig) TimerSubject(room string) string {
	return fmt.Sprintf("%s.%s.%s", c.SubjectPrefix, timerSubjectToken, room)
}

// EventSubject is the subject a room's events of one type are published on.
func (c JetStreamConfig) EventSubject(room string, typ EventType) string {
	return fmt.Sprintf("%s.%s.%s.%s", c.SubjectPrefix, eventSubjectToken, room, typ)
}

func connect(cfg JetStreamConfig) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return nc, js, nil
}

// JetStreamPublisher publishes timer records and round events to a stream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	nc, js, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Scoreboard timer records and round events",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		// Only the latest timer record per room matters.
		MaxMsgsPerSubject: 1,
		Storage:           jetstream.FileStorage,
		Replicas:          p.config.Replicas,
		Duplicates:        p.config.DuplicateWindow,
	}

	if _, err := p.js.CreateOrUpdateStream(ctx, sc); err != nil {
		return fmt.Errorf("create or update stream: %w", err)
	}
	log.Info().Str("stream", p.config.StreamName).Msg("JetStream stream ready")
	return nil
}

// PublishTimer publishes rec on the room's timer subject. The message id is
// derived from the record version so redelivered writes are deduplicated.
func (p *JetStreamPublisher) PublishTimer(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal timer record: %w", err)
	}

	subject := p.config.TimerSubject(rec.RoomCode)
	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Room-Code":   []string{rec.RoomCode},
			"Timer-State": []string{string(rec.State)},
		},
	},
		jetstream.WithMsgID(fmt.Sprintf("%s-%d", rec.RoomCode, rec.UpdatedAt)),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish timer record: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("timer_state", string(rec.State)).
		Uint64("sequence", ack.Sequence).
		Msg("published timer record")
	return nil
}

// PublishEvent publishes ev on the room's event subject.
func (p *JetStreamPublisher) PublishEvent(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.config.EventSubject(ev.RoomCode, ev.Type)
	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(ev.Type)},
			"Room-Code":  []string{ev.RoomCode},
			"Event-ID":   []string{ev.ID.String()},
		},
	},
		jetstream.WithMsgID(ev.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	log.Info().
		Str("subject", subject).
		Str("event_id", ev.ID.String()).
		Uint64("sequence", ack.Sequence).
		Msg("published event")
	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// JetStreamSubscriber consumes timer records and events and hands them to a
// Router and an event handler.
type JetStreamSubscriber struct {
	router   *Router
	onEvent  func(Event)
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   JetStreamConfig
}

func NewJetStreamSubscriber(ctx context.Context, router *Router, onEvent func(Event), cfg JetStreamConfig) (*JetStreamSubscriber, error) {
	nc, js, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	s := &JetStreamSubscriber{
		router:  router,
		onEvent: onEvent,
		nc:      nc,
		js:      js,
		config:  cfg,
	}
	if err := s.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return s, nil
}

func (s *JetStreamSubscriber) ensureConsumer(ctx context.Context) error {
	stream, err := s.js.Stream(ctx, s.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          s.config.ConsumerName,
		Durable:       s.config.ConsumerName,
		Description:   "Scoreboard gateway display consumer",
		FilterSubject: fmt.Sprintf("%s.>", s.config.SubjectPrefix),
		DeliverPolicy: jetstream.DeliverLastPerSubjectPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    s.config.MaxDeliver,
		AckWait:       s.config.AckWait,
		MaxAckPending: s.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	log.Info().
		Str("consumer", s.config.ConsumerName).
		Str("stream", s.config.StreamName).
		Msg("JetStream consumer ready")
	s.consumer = consumer
	return nil
}

// Start consumes until ctx is cancelled.
func (s *JetStreamSubscriber) Start(ctx context.Context) error {
	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := s.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer subscriber shutting down")
			return nil
		case msg := <-messageCh:
			if err := s.handle(msg.Subject(), msg.Data()); err != nil {
				log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process message")
				// Malformed payloads will never parse; drop them.
				if termErr := msg.Term(); termErr != nil {
					log.Error().Err(termErr).Msg("failed to terminate message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

func (s *JetStreamSubscriber) handle(subject string, data []byte) error {
	rest := strings.TrimPrefix(subject, s.config.SubjectPrefix+".")
	switch {
	case strings.HasPrefix(rest, timerSubjectToken+"."):
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal timer record: %w", err)
		}
		s.router.Dispatch(rec)
	case strings.HasPrefix(rest, eventSubjectToken+"."):
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("unmarshal event: %w", err)
		}
		if s.onEvent != nil {
			s.onEvent(ev)
		}
	default:
		log.Warn().Str("subject", subject).Msg("ignoring message on unknown subject")
	}
	return nil
}

func (s *JetStreamSubscriber) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
