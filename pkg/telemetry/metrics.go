package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricOpts holds options for creating metrics
type MetricOpts struct {
	Name        string
	Description string
	Unit        string
}

// Counter wraps an OTel counter
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a counter on the global meter
func NewCounter(opts MetricOpts) (*Counter, error) {
	counter, err := GetMeter().Int64Counter(
		opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}
	return &Counter{counter: counter}, nil
}

// Inc increments the counter by 1
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram wraps an OTel float histogram
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a histogram with optional explicit bucket boundaries
func NewHistogram(opts MetricOpts, boundaries ...float64) (*Histogram, error) {
	hopts := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(boundaries) > 0 {
		hopts = append(hopts, metric.WithExplicitBucketBoundaries(boundaries...))
	}
	histogram, err := GetMeter().Float64Histogram(opts.Name, hopts...)
	if err != nil {
		return nil, err
	}
	return &Histogram{histogram: histogram}, nil
}

// Record records a value in the histogram
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// Metrics groups the service's instruments
type Metrics struct {
	EventsCreated   *Counter
	EventsDeleted   *Counter
	InviteesAdded   *Counter
	RSVPResponses   *Counter
	MediaUploads    *Counter
	RequestDuration *Histogram
}

// NewMetrics registers every instrument on the global meter
func NewMetrics() (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  **Counter
		opts MetricOpts
	}{
		{&m.EventsCreated, MetricOpts{Name: "events_created_total", Description: "Events created", Unit: "{event}"}},
		{&m.EventsDeleted, MetricOpts{Name: "events_deleted_total", Description: "Events deleted", Unit: "{event}"}},
		{&m.InviteesAdded, MetricOpts{Name: "invitees_added_total", Description: "Invitees added to events", Unit: "{invitee}"}},
		{&m.RSVPResponses, MetricOpts{Name: "rsvp_responses_total", Description: "RSVP responses recorded", Unit: "{response}"}},
		{&m.MediaUploads, MetricOpts{Name: "media_uploads_total", Description: "Media objects uploaded", Unit: "{object}"}},
	}
	for _, c := range counters {
		if *c.dst, err = NewCounter(c.opts); err != nil {
			return nil, err
		}
	}

	m.RequestDuration, err = NewHistogram(MetricOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
	}, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Common attribute keys
const (
	AttrMethod     = "http.method"
	AttrRoute      = "http.route"
	AttrStatusCode = "http.status_code"
	AttrEventID    = "event.id"
	AttrUserEmail  = "user.email"
	AttrRSVPStatus = "rsvp.status"
	AttrMediaKind  = "media.kind"
)

func MethodAttr(method string) attribute.KeyValue     { return attribute.String(AttrMethod, method) }
func RouteAttr(route string) attribute.KeyValue       { return attribute.String(AttrRoute, route) }
func StatusCodeAttr(code int) attribute.KeyValue      { return attribute.Int(AttrStatusCode, code) }
func EventIDAttr(id string) attribute.KeyValue        { return attribute.String(AttrEventID, id) }
func UserEmailAttr(email string) attribute.KeyValue   { return attribute.String(AttrUserEmail, email) }
func RSVPStatusAttr(status string) attribute.KeyValue { return attribute.String(AttrRSVPStatus, status) }
func MediaKindAttr(kind string) attribute.KeyValue    { return attribute.String(AttrMediaKind, kind) }
