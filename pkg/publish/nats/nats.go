package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/model"
)

const subjectPrefix = "racecoach.analysis"

type (
	// msgPublisher is implemented by *nats.Conn
	msgPublisher interface {
		PublishMsg(m *nats.Msg) error
	}
	Publisher struct {
		conn msgPublisher
		l    *log.Logger
	}
	Option func(*Publisher)
)

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

func NewPublisher(conn *nats.Conn, opts ...Option) *Publisher {
	return newPublisher(conn, opts...)
}

func newPublisher(conn msgPublisher, opts ...Option) *Publisher {
	ret := &Publisher{conn: conn, l: log.Default().Named("nats")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Connect opens a connection to the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("racecoach"),
		nats.MaxReconnects(-1),
	)
}

// PublishReport sends r as JSON on racecoach.analysis.<track>.<car>.
func (p *Publisher) PublishReport(ctx context.Context, r *model.LapReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(Subject(r.Track, r.Car))
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set("Racecoach-Session", r.SessionKey)
	msg.Header.Set("Racecoach-Lap", fmt.Sprintf("%d", r.LapNumber))
	if err := p.conn.PublishMsg(msg); err != nil {
		return err
	}
	p.l.Debug("report published",
		log.String("subject", msg.Subject), log.Int("bytes", len(data)))
	return nil
}

// Subject returns the subject reports of track and car are published on.
func Subject(track, car string) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, token(track), token(car))
}

// token replaces characters with a special meaning in subjects.
// Empty values become "_".
func token(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
