package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the election module.
type Metrics struct {
	CandidatesRegistered prometheus.Counter
	VotesCast            prometheus.Counter
	VotesRejected        *prometheus.CounterVec
	OperationDuration    *prometheus.HistogramVec
}

// New registers the election metrics with the default registry. Call it
// once per process.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers against reg, which lets tests use a private
// registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CandidatesRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "ballot_candidates_registered_total",
			Help: "Total number of candidates registered",
		}),
		VotesCast: factory.NewCounter(prometheus.CounterOpts{
			Name: "ballot_votes_cast_total",
			Help: "Total number of votes recorded",
		}),
		VotesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ballot_votes_rejected_total",
			Help: "Votes refused, by error code",
		}, []string{"reason"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ballot_election_operation_duration_seconds",
			Help:    "Duration of election service operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCandidatesRegistered() {
	m.CandidatesRegistered.Inc()
}

func (m *Metrics) IncrementVotesCast() {
	m.VotesCast.Inc()
}

func (m *Metrics) IncrementVotesRejected(reason string) {
	m.VotesRejected.WithLabelValues(reason).Inc()
}

// ObserveOperation records the duration of op.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(op string, start time.Time) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
