// Package observability provides a metrics extension for the Eco-Seed ledger
// that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/plugin"
	"github.com/xraph/ecoseed/profile"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnProfileCreated   = (*MetricsExtension)(nil)
	_ plugin.OnActivityRecorded = (*MetricsExtension)(nil)
	_ plugin.OnSeedsEarned      = (*MetricsExtension)(nil)
	_ plugin.OnSeedsSpent       = (*MetricsExtension)(nil)
	_ plugin.OnSeedsConverted   = (*MetricsExtension)(nil)
	_ plugin.OnMutationFailed   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger-wide lifecycle metrics.
// Register it as a ledger plugin to track point flows.
type MetricsExtension struct {
	factory MetricFactory

	// Profile metrics
	ProfilesCreated    Counter
	ActivitiesRecorded Counter
	CarbonSaved        Counter

	// Seed metrics
	SeedsEarned     Counter
	SeedsSpent      Counter
	SeedsConverted  Counter
	EarnPostings    Counter
	SpendPostings   Counter
	ConvertPostings Counter
	PostingAmount   Histogram

	// Error metrics
	MutationsRejected Counter
	MutationsFailed   Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		ProfilesCreated:    factory.Counter("ecoseed.profile.created"),
		ActivitiesRecorded: factory.Counter("ecoseed.activity.recorded"),
		CarbonSaved:        factory.Counter("ecoseed.activity.carbon_saved"),

		SeedsEarned:     factory.Counter("ecoseed.seeds.earned"),
		SeedsSpent:      factory.Counter("ecoseed.seeds.spent"),
		SeedsConverted:  factory.Counter("ecoseed.seeds.converted"),
		EarnPostings:    factory.Counter("ecoseed.postings.earn"),
		SpendPostings:   factory.Counter("ecoseed.postings.spend"),
		ConvertPostings: factory.Counter("ecoseed.postings.convert"),
		PostingAmount:   factory.Histogram("ecoseed.postings.amount"),

		MutationsRejected: factory.Counter("ecoseed.mutations.rejected"),
		MutationsFailed:   factory.Counter("ecoseed.mutations.failed"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnProfileCreated implements plugin.OnProfileCreated.
func (m *MetricsExtension) OnProfileCreated(_ context.Context, _ *profile.Profile) error {
	m.ProfilesCreated.Inc()
	return nil
}

// OnActivityRecorded implements plugin.OnActivityRecorded.
func (m *MetricsExtension) OnActivityRecorded(_ context.Context, _ *profile.Profile, a profile.Activity) error {
	m.ActivitiesRecorded.Inc()
	m.CarbonSaved.Add(a.CarbonSaved)
	return nil
}

// OnSeedsEarned implements plugin.OnSeedsEarned.
func (m *MetricsExtension) OnSeedsEarned(_ context.Context, e *entry.Entry, _ *profile.Profile) error {
	m.EarnPostings.Inc()
	m.SeedsEarned.Add(float64(e.Magnitude()))
	m.PostingAmount.Observe(float64(e.Magnitude()))
	return nil
}

// OnSeedsSpent implements plugin.OnSeedsSpent.
func (m *MetricsExtension) OnSeedsSpent(_ context.Context, e *entry.Entry, _ *profile.Profile) error {
	m.SpendPostings.Inc()
	m.SeedsSpent.Add(float64(e.Magnitude()))
	m.PostingAmount.Observe(float64(e.Magnitude()))
	return nil
}

// OnSeedsConverted implements plugin.OnSeedsConverted.
func (m *MetricsExtension) OnSeedsConverted(_ context.Context, e *entry.Entry, _ *profile.Profile) error {
	m.ConvertPostings.Inc()
	m.SeedsConverted.Add(float64(e.Magnitude()))
	m.PostingAmount.Observe(float64(e.Magnitude()))
	return nil
}

// OnMutationFailed implements plugin.OnMutationFailed. Validation and
// state rejections count separately from storage failures.
func (m *MetricsExtension) OnMutationFailed(_ context.Context, _, _ string, err error) error {
	if isRejection(err) {
		m.MutationsRejected.Inc()
	} else {
		m.MutationsFailed.Inc()
	}
	return nil
}
