package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names published per submission.
const (
	MetricOrdersSubmitted = "OrdersSubmitted"
	MetricPersistFailures = "OrderPersistFailures"
	MetricNotifyFailures  = "OrderNotifyFailures"
)

// Metrics publishes submission counters to CloudWatch.
type Metrics struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetrics returns a Metrics writing into namespace.
func NewMetrics(cw CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{CloudWatch: cw, Namespace: namespace, nowFunc: time.Now}
}

// RecordSubmission records one accepted submission and which sinks failed.
func (m *Metrics) RecordSubmission(ctx context.Context, savedToDatabase, sentToTelegram bool) error {
	now := m.nowFunc()
	datum := func(name string, v float64) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: awsString(name),
			Value:      &v,
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  &now,
		}
	}
	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &m.Namespace,
		MetricData: []cwtypes.MetricDatum{
			datum(MetricOrdersSubmitted, 1),
			datum(MetricPersistFailures, boolToCount(!savedToDatabase)),
			datum(MetricNotifyFailures, boolToCount(!sentToTelegram)),
		},
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}

func boolToCount(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
