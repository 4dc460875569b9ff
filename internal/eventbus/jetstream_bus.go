package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-engine/internal/logging"
	nats "github.com/nats-io/nats.go"
)

const (
	// subjectPrefix префикс subject'ов; тип события дописывается через точку
	subjectPrefix = "voxel"
	// tickHeader номер тика мира в заголовке сообщения
	tickHeader = "Voxel-Tick"
)

// JetStreamOptions параметры шины поверх NATS JetStream
type JetStreamOptions struct {
	URL       string        // nats://127.0.0.1:4222
	Stream    string        // пусто – "VOXEL"
	Retention time.Duration // сколько JetStream хранит события
	// DedupWindow окно, в котором повтор события с тем же ID отбрасывается
	// сервером; 0 – 2 минуты
	DedupWindow time.Duration
	// Consumer префикс durable-подписчиков. Пусто – эфемерные подписки,
	// получающие только новые события.
	Consumer string
}

// JetStreamBus реализует EventBus поверх NATS JetStream
type JetStreamBus struct {
	nc       *nats.Conn
	js       nats.JetStreamContext
	stream   string
	consumer string

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим voxel.>, если его нет
func NewJetStreamBus(opts JetStreamOptions) (*JetStreamBus, error) {
	if opts.Stream == "" {
		opts.Stream = "VOXEL"
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = 2 * time.Minute
	}

	nc, err := nats.Connect(opts.URL,
		nats.Name("voxel-engine"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				eventsLogger().Warn("📨 NATS отключён: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			eventsLogger().Info("📨 NATS переподключён к %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("подключение к NATS %s: %w", opts.URL, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("контекст JetStream: %w", err)
	}

	_, err = js.StreamInfo(opts.Stream)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       opts.Stream,
			Subjects:   []string{subjectPrefix + ".>"},
			MaxAge:     opts.Retention,
			Duplicates: opts.DedupWindow,
			Storage:    nats.FileStorage,
		})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("стрим %s: %w", opts.Stream, err)
	}

	return &JetStreamBus{nc: nc, js: js, stream: opts.Stream, consumer: opts.Consumer}, nil
}

func eventsLogger() *logging.Logger {
	return logging.GetComponentLogger("events")
}

// subject voxel.<type>
func subject(eventType string) string {
	return subjectPrefix + "." + eventType
}

// Publish отправляет конверт в voxel.<type>. ID конверта служит Nats-Msg-Id,
// поэтому повторная отправка после таймаута не дублирует событие.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("событие %s: %w", ev.EventType, err)
	}

	msg := nats.NewMsg(subject(ev.EventType))
	msg.Data = data
	msg.Header.Set(tickHeader, strconv.FormatUint(ev.Tick, 10))

	if _, err := jb.js.PublishMsg(msg, nats.MsgId(ev.ID), nats.Context(ctx)); err != nil {
		jb.dropped.Add(1)
		return err
	}
	jb.published.Add(1)
	return nil
}

// Subscribe подписывается на каждый тип фильтра отдельным subject'ом
// (на все – voxel.>). Фильтры по источнику и приоритету проверяются здесь же.
// Битые сообщения завершаются Term и повторно не доставляются.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subjects := []string{subjectPrefix + ".>"}
	if len(f.Types) > 0 {
		subjects = subjects[:0]
		for _, t := range f.Types {
			subjects = append(subjects, subject(t))
		}
	}

	sub := &jetSub{}
	for _, subj := range subjects {
		opts := []nats.SubOpt{nats.ManualAck(), nats.AckWait(30 * time.Second)}
		if jb.consumer != "" {
			opts = append(opts, nats.Durable(durableName(jb.consumer, subj)))
		} else {
			opts = append(opts, nats.DeliverNew())
		}

		s, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
			var ev Envelope
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				eventsLogger().Warn("📨 Битое событие в %s: %v", msg.Subject, err)
				_ = msg.Term()
				return
			}
			if matchFilter(&ev, f) {
				h(ctx, &ev)
				jb.consumed.Add(1)
			}
			_ = msg.Ack()
		}, opts...)
		if err != nil {
			sub.Unsubscribe()
			return nil, fmt.Errorf("подписка на %s: %w", subj, err)
		}
		sub.subs = append(sub.subs, s)
	}
	return sub, nil
}

// durableName имя durable-подписчика: точки и звёздочки запрещены
func durableName(prefix, subj string) string {
	name := strings.NewReplacer(".", "_", ">", "all", "*", "any").Replace(subj)
	return prefix + "_" + name
}

// jetSub набор подписок одного Subscribe
type jetSub struct {
	subs []*nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	for _, s := range j.subs {
		_ = s.Unsubscribe()
	}
}

// Metrics возвращает счётчики клиента; очередь держит сам JetStream
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки буферов и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
