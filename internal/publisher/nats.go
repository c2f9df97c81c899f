package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
	log         *slog.Logger
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics, log *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("subway-network"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: subjectToken(prefix), logSubjects: logSubjects, metrics: m, log: log}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// Event types carried in LineEvent.Type and StationEvent.Type.
const (
	EventCreated        = "created"
	EventUpdated        = "updated"
	EventDeleted        = "deleted"
	EventSectionAdded   = "section_added"
	EventStationRemoved = "station_removed"
)

// LineEvent describes a line after a change. Stations is the route in travel
// order and is empty for deleted lines.
type LineEvent struct {
	Type          string    `json:"type"`
	LineID        int64     `json:"lineId"`
	Name          string    `json:"name,omitempty"`
	Stations      []int64   `json:"stations,omitempty"`
	TotalDistance int       `json:"totalDistance,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type StationEvent struct {
	Type      string    `json:"type"`
	StationID int64     `json:"stationId"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishLineEvent publishes to <prefix>.lines.<id>.
func (p *NATSPublisher) PublishLineEvent(ev LineEvent) error {
	return p.publish(fmt.Sprintf("%s.lines.%s", p.prefix, strconv.FormatInt(ev.LineID, 10)), ev)
}

// PublishStationEvent publishes to <prefix>.stations.<id>.
func (p *NATSPublisher) PublishStationEvent(ev StationEvent) error {
	return p.publish(fmt.Sprintf("%s.stations.%s", p.prefix, strconv.FormatInt(ev.StationID, 10)), ev)
}

func (p *NATSPublisher) publish(subject string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.log.Debug("nats publish", "subject", subject)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
