package k8s

// Package k8s provides cluster access for the pipeline: a shared client,
// the metrics collector that builds snapshots, and the mutation operations
// the remediation handlers need.

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubilitics/kubemedic/internal/metrics"
	"github.com/kubilitics/kubemedic/internal/models"
)

// Collector builds point-in-time cluster snapshots from the core API and the
// metrics API.
type Collector struct {
	client *Client
	logger *zap.Logger
}

// NewCollector creates a collector over the shared client.
func NewCollector(client *Client, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{client: client, logger: logger}
}

// Collect captures one snapshot. Node and pod listings are required; the
// metrics API is optional and its absence degrades to a snapshot without
// usage percentages rather than a failure. Usage is reported as percent of
// node allocatable capacity.
func (c *Collector) Collect(ctx context.Context) (models.ClusterMetricsSnapshot, error) {
	if err := c.client.waitRateLimit(ctx); err != nil {
		metrics.CollectionsTotal.WithLabelValues("error").Inc()
		return models.ClusterMetricsSnapshot{}, err
	}
	ctx, cancel := c.client.withTimeout(ctx)
	defer cancel()

	snapshot := models.NewSnapshot()

	nodes, err := c.client.Clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		metrics.CollectionsTotal.WithLabelValues("error").Inc()
		return models.ClusterMetricsSnapshot{}, fmt.Errorf("listing nodes: %w", err)
	}

	allocatable := make(map[string]corev1.ResourceList, len(nodes.Items))
	for _, node := range nodes.Items {
		allocatable[node.Name] = node.Status.Allocatable
		snapshot.NodeStatus[node.Name] = nodeReadiness(node)

		for _, cond := range node.Status.Conditions {
			pressured := cond.Status == corev1.ConditionTrue
			switch cond.Type {
			case corev1.NodeDiskPressure:
				snapshot.DiskPressure[node.Name] = pressured
			case corev1.NodeMemoryPressure:
				snapshot.MemoryPressure[node.Name] = pressured
			case corev1.NodePIDPressure:
				snapshot.PIDPressure[node.Name] = pressured
			}
		}
	}

	pods, err := c.client.Clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		metrics.CollectionsTotal.WithLabelValues("error").Inc()
		return models.ClusterMetricsSnapshot{}, fmt.Errorf("listing pods: %w", err)
	}
	for _, pod := range pods.Items {
		key := pod.Namespace + "/" + pod.Name
		snapshot.PodStatus[key] = string(pod.Status.Phase)

		var restarts int
		for _, status := range pod.Status.ContainerStatuses {
			restarts += int(status.RestartCount)
		}
		snapshot.PodRestarts[key] = restarts
	}

	c.collectUsage(ctx, snapshot, allocatable)

	metrics.CollectionsTotal.WithLabelValues("ok").Inc()
	metrics.NodesObserved.Set(float64(len(nodes.Items)))
	metrics.PodsObserved.Set(float64(len(pods.Items)))

	c.logger.Debug("snapshot collected",
		zap.Int("nodes", len(nodes.Items)),
		zap.Int("pods", len(pods.Items)),
	)

	return snapshot, nil
}

// collectUsage fills CPU and memory usage percentages from the metrics API.
// A missing or failing metrics-server leaves the usage maps empty.
func (c *Collector) collectUsage(ctx context.Context, snapshot models.ClusterMetricsSnapshot, allocatable map[string]corev1.ResourceList) {
	if c.client.Metrics == nil {
		return
	}

	nodeMetrics, err := c.client.Metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{})
	if err != nil {
		c.logger.Warn("metrics API unavailable, snapshot has no usage data", zap.Error(err))
		return
	}

	for _, nm := range nodeMetrics.Items {
		alloc, ok := allocatable[nm.Name]
		if !ok {
			continue
		}

		if cpuCap := alloc.Cpu().MilliValue(); cpuCap > 0 {
			snapshot.CPUUsage[nm.Name] = 100 * float64(nm.Usage.Cpu().MilliValue()) / float64(cpuCap)
		}
		if memCap := alloc.Memory().Value(); memCap > 0 {
			snapshot.MemoryUsage[nm.Name] = 100 * float64(nm.Usage.Memory().Value()) / float64(memCap)
		}
	}
}

func nodeReadiness(node corev1.Node) string {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			if cond.Status == corev1.ConditionTrue {
				return "Ready"
			}
			return "NotReady"
		}
	}
	return "Unknown"
}
