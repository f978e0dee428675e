package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/iamwavecut/quickreport"

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickreport_submissions_total",
			Help: "Report submissions by outcome",
		},
		[]string{"outcome"},
	)

	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickreport_resolutions_total",
			Help: "Report resolutions by outcome",
		},
		[]string{"outcome"},
	)

	storageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quickreport_storage_duration_seconds",
			Help:    "Time spent in storage round-trips",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	registerOnce sync.Once
)

// Register adds the collectors to the default registry. Safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(submissionsTotal, resolutionsTotal, storageDuration)
	})
}

func RecordSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

func RecordResolution(outcome string) {
	resolutionsTotal.WithLabelValues(outcome).Inc()
}

// StartStorage returns a function that records the round-trip duration of op.
func StartStorage(op string) func() {
	timer := prometheus.NewTimer(storageDuration.WithLabelValues(op))
	return func() {
		timer.ObserveDuration()
	}
}

func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Server exposes /metrics and owns the global tracer provider.
type Server struct {
	addr     string
	srv      *http.Server
	provider *sdktrace.TracerProvider
	l        *log.Entry
}

func NewServer(addr string) *Server {
	return &Server{
		addr: addr,
		l:    log.WithField("context", "observability"),
	}
}

func (s *Server) Start(_ context.Context) error {
	Register()
	s.provider = sdktrace.NewTracerProvider()
	otel.SetTracerProvider(s.provider)

	if s.addr == "" {
		s.l.Debug("metrics endpoint disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.WithError(err).Error("metrics server failed")
		}
	}()
	s.l.WithField("addr", s.addr).Info("metrics endpoint started")
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.srv != nil {
		err = s.srv.Shutdown(ctx)
	}
	if s.provider != nil {
		err = errors.Join(err, s.provider.Shutdown(ctx))
	}
	return err
}
