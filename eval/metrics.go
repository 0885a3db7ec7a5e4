package eval

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rushteam/tagspace/core"
)

// Metrics 记录评估结果，注册在私有 Registry 上，运行结束后写成 node_exporter 的 textfile。
type Metrics struct {
	registry *prometheus.Registry

	Accuracy     *prometheus.GaugeVec
	EpochSeconds *prometheus.GaugeVec
	Batches      prometheus.Counter
	Instances    prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Accuracy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tagspace_infer_accuracy",
				Help: "Ranking accuracy per evaluated epoch (kind=last is the final batch, kind=mean is instance-weighted)",
			},
			[]string{"epoch", "kind"},
		),
		EpochSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tagspace_infer_epoch_seconds",
				Help: "Wall-clock time spent evaluating an epoch",
			},
			[]string{"epoch"},
		),
		Batches: factory.NewCounter(prometheus.CounterOpts{
			Name: "tagspace_infer_batches_total",
			Help: "Batches scored across all epochs",
		}),
		Instances: factory.NewCounter(prometheus.CounterOpts{
			Name: "tagspace_infer_instances_total",
			Help: "Samples scored across all epochs",
		}),
	}
}

// Observe 记录一个 epoch 的结果。
func (m *Metrics) Observe(r EpochResult) {
	epoch := strconv.Itoa(r.Epoch)
	m.Accuracy.WithLabelValues(epoch, "last").Set(float64(r.LastAccuracy))
	m.Accuracy.WithLabelValues(epoch, "mean").Set(r.MeanAccuracy)
	m.EpochSeconds.WithLabelValues(epoch).Set(r.Elapsed.Seconds())
	m.Batches.Add(float64(r.Batches))
	m.Instances.Add(float64(r.Instances))
}

// WriteTextfile 把当前指标原子地写到 path。
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return core.Wrap(err, core.ModuleEval, core.ErrorCodeInternalError, "write metrics %s", path)
	}
	return nil
}
