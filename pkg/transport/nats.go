package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const helloRetryInterval = 50 * time.Millisecond

func helloSubject(prefix string) string {
	return prefix + ".hello"
}

func upSubject(prefix string, id int) string {
	return fmt.Sprintf("%s.%d.up", prefix, id)
}

func downSubject(prefix string, id int) string {
	return fmt.Sprintf("%s.%d.down", prefix, id)
}

type natsLink struct {
	nc      *nats.Conn
	subject string
	sub     *nats.Subscription
}

func (l *natsLink) send(ctx context.Context, data []byte) error {
	if err := l.nc.Publish(l.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", l.subject, err)
	}
	return flush(ctx, l.nc)
}

func (l *natsLink) recv(ctx context.Context) ([]byte, error) {
	msg, err := l.sub.NextMsgWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("receive on %s: %w", l.sub.Subject, err)
	}
	return msg.Data, nil
}

func (l *natsLink) close() error {
	return l.sub.Unsubscribe()
}

// NATSHub is the coordinator side of the NATS transport. Workers announce themselves on
// <prefix>.hello and are answered with their id; afterwards the coordinator sends on
// <prefix>.<id>.down and listens on <prefix>.<id>.up.
type NATSHub struct {
	nc     *nats.Conn
	prefix string
	nextID int
	logger *zap.Logger
}

func NewNATSHub(nc *nats.Conn, prefix string, logger *zap.Logger) *NATSHub {
	return &NATSHub{nc: nc, prefix: prefix, nextID: 1, logger: logger}
}

func (h *NATSHub) Accept(ctx context.Context, n int) ([]Channel, error) {
	hello, err := h.nc.SubscribeSync(helloSubject(h.prefix))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", helloSubject(h.prefix), err)
	}
	defer hello.Unsubscribe()

	channels := make([]Channel, 0, n)
	for len(channels) < n {
		msg, err := hello.NextMsgWithContext(ctx)
		if err != nil {
			closeAll(channels)
			return nil, fmt.Errorf("waiting for worker %d of %d: %w", len(channels)+1, n, err)
		}

		id := h.nextID
		h.nextID++
		up, err := h.nc.SubscribeSync(upSubject(h.prefix, id))
		if err != nil {
			closeAll(channels)
			return nil, fmt.Errorf("subscribe %s: %w", upSubject(h.prefix, id), err)
		}
		if err := flush(ctx, h.nc); err != nil {
			closeAll(channels)
			return nil, err
		}
		if err := msg.Respond(EncodeHello(id)); err != nil {
			closeAll(channels)
			return nil, fmt.Errorf("answer worker %d: %w", id, err)
		}
		channels = append(channels, &codecChannel{id: id, link: &natsLink{nc: h.nc, subject: downSubject(h.prefix, id), sub: up}})
		h.logger.Debug("worker connected", zap.Int("worker", id), zap.String("prefix", h.prefix))
	}

	sort.Slice(channels, func(i, j int) bool { return channels[i].ID() < channels[j].ID() })
	return channels, nil
}

func (h *NATSHub) Close() error {
	return nil
}

// DialNATS performs the worker side of the handshake and returns the worker's channel.
func DialNATS(ctx context.Context, nc *nats.Conn, prefix string) (Channel, error) {
	var resp *nats.Msg
	for {
		var err error
		resp, err = nc.RequestWithContext(ctx, helloSubject(prefix), nil)
		if err == nil {
			break
		}
		// the coordinator may not be listening yet
		if !errors.Is(err, nats.ErrNoResponders) {
			return nil, fmt.Errorf("hello on %s: %w", helloSubject(prefix), err)
		}
		select {
		case <-time.After(helloRetryInterval):
		case <-ctx.Done():
			return nil, fmt.Errorf("hello on %s: %w", helloSubject(prefix), ctx.Err())
		}
	}
	id, err := DecodeHello(resp.Data)
	if err != nil {
		return nil, err
	}

	down, err := nc.SubscribeSync(downSubject(prefix, id))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", downSubject(prefix, id), err)
	}
	if err := flush(ctx, nc); err != nil {
		_ = down.Unsubscribe()
		return nil, err
	}
	return &codecChannel{id: id, link: &natsLink{nc: nc, subject: upSubject(prefix, id), sub: down}}, nil
}

// flush bounds the round trip by the context deadline when ctx has one.
func flush(ctx context.Context, nc *nats.Conn) error {
	if _, ok := ctx.Deadline(); ok {
		return nc.FlushWithContext(ctx)
	}
	return nc.Flush()
}

func closeAll(channels []Channel) {
	for _, ch := range channels {
		_ = ch.Close()
	}
}
