package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// CompileSample summarizes one compile submission for metric emission.
type CompileSample struct {
	GraphID  string
	Applied  bool
	Errors   int
	Changes  int
	Duration time.Duration
}

// Metrics publishes compile metrics to CloudWatch. Emission is best
// effort: failures are logged and never propagated to the caller.
type Metrics struct {
	client    *cloudwatch.Client
	namespace string
	logger    *zap.Logger
}

// NewMetrics creates a CloudWatch-backed metrics publisher.
func NewMetrics(client *cloudwatch.Client, namespace string, logger *zap.Logger) *Metrics {
	if namespace == "" {
		namespace = "CNLGraph"
	}
	return &Metrics{client: client, namespace: namespace, logger: logger}
}

// RecordCompile emits the metrics for one compile submission.
func (m *Metrics) RecordCompile(ctx context.Context, s CompileSample) {
	now := time.Now()
	applied := 0.0
	if s.Applied {
		applied = 1.0
	}
	dims := []types.Dimension{
		{Name: aws.String("GraphID"), Value: aws.String(s.GraphID)},
	}

	data := []types.MetricDatum{
		{
			MetricName: aws.String("CompileDuration"),
			Value:      aws.Float64(float64(s.Duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  aws.Time(now),
			Dimensions: dims,
		},
		{
			MetricName: aws.String("CompileApplied"),
			Value:      aws.Float64(applied),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
			Dimensions: dims,
		},
		{
			MetricName: aws.String("CompileErrors"),
			Value:      aws.Float64(float64(s.Errors)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
			Dimensions: dims,
		},
		{
			MetricName: aws.String("CompileChanges"),
			Value:      aws.Float64(float64(s.Changes)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
			Dimensions: dims,
		},
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil && m.logger != nil {
		m.logger.Warn("failed to publish compile metrics",
			zap.String("graphID", s.GraphID),
			zap.Error(err),
		)
	}
}
