package k8s

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/kubilitics/kubemedic/internal/remediate"
)

// Mutator implements the cluster operations the remediation handlers need.
// Every method applies the client's timeout and rate limit.
type Mutator struct {
	client *Client
	logger *zap.Logger
}

var _ remediate.ClusterClient = (*Mutator)(nil)

// NewMutator creates a mutator over the shared client.
func NewMutator(client *Client, logger *zap.Logger) *Mutator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutator{client: client, logger: logger}
}

// NodeExists reports whether name identifies a node. Not-found maps to
// (false, nil); only real API failures return an error.
func (m *Mutator) NodeExists(ctx context.Context, name string) (bool, error) {
	if err := m.client.waitRateLimit(ctx); err != nil {
		return false, err
	}
	ctx, cancel := m.client.withTimeout(ctx)
	defer cancel()

	_, err := m.client.Clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("looking up node %s: %w", name, err)
	}
	return true, nil
}

// CordonNode marks the node unschedulable.
func (m *Mutator) CordonNode(ctx context.Context, name string) error {
	if err := m.client.waitRateLimit(ctx); err != nil {
		return err
	}
	ctx, cancel := m.client.withTimeout(ctx)
	defer cancel()

	patch := []byte(`{"spec":{"unschedulable":true}}`)
	_, err := m.client.Clientset.CoreV1().Nodes().Patch(ctx, name, types.StrategicMergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return fmt.Errorf("cordoning node %s: %w", name, err)
	}
	m.logger.Info("node cordoned", zap.String("node", name))
	return nil
}

// PodRestartSummary returns per-container restart details for the pod.
func (m *Mutator) PodRestartSummary(ctx context.Context, namespace, name string) ([]remediate.ContainerRestart, error) {
	if err := m.client.waitRateLimit(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := m.client.withTimeout(ctx)
	defer cancel()

	pod, err := m.client.Clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("reading pod %s/%s: %w", namespace, name, err)
	}

	restarts := make([]remediate.ContainerRestart, 0, len(pod.Status.ContainerStatuses))
	for _, status := range pod.Status.ContainerStatuses {
		if status.RestartCount == 0 {
			continue
		}
		entry := remediate.ContainerRestart{
			Container:    status.Name,
			RestartCount: int(status.RestartCount),
		}
		if status.LastTerminationState.Terminated != nil {
			entry.LastState = status.LastTerminationState.Terminated.Reason
		}
		restarts = append(restarts, entry)
	}
	return restarts, nil
}

// DeletePod deletes a pod so its controller recreates it.
func (m *Mutator) DeletePod(ctx context.Context, namespace, name string) error {
	if err := m.client.waitRateLimit(ctx); err != nil {
		return err
	}
	ctx, cancel := m.client.withTimeout(ctx)
	defer cancel()

	if err := m.client.Clientset.CoreV1().Pods(namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return fmt.Errorf("deleting pod %s/%s: %w", namespace, name, err)
	}
	m.logger.Info("pod deleted for recreation",
		zap.String("namespace", namespace),
		zap.String("pod", name),
	)
	return nil
}

// EnsureCPUAutoscaler returns the name of an existing HorizontalPodAutoscaler
// or creates one for the first deployment found, targeting 70% CPU across
// 1 to 10 replicas.
func (m *Mutator) EnsureCPUAutoscaler(ctx context.Context) (string, error) {
	if err := m.client.waitRateLimit(ctx); err != nil {
		return "", err
	}
	ctx, cancel := m.client.withTimeout(ctx)
	defer cancel()

	hpas, err := m.client.Clientset.AutoscalingV1().HorizontalPodAutoscalers(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("listing autoscalers: %w", err)
	}
	if len(hpas.Items) > 0 {
		return hpas.Items[0].Name, nil
	}

	deployments, err := m.client.Clientset.AppsV1().Deployments(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("listing deployments: %w", err)
	}
	if len(deployments.Items) == 0 {
		return "", fmt.Errorf("no deployments found to scale")
	}

	deployment := deployments.Items[0]
	minReplicas := int32(1)
	targetCPU := int32(70)
	hpa := &autoscalingv1.HorizontalPodAutoscaler{
		ObjectMeta: metav1.ObjectMeta{
			Name:      deployment.Name + "-hpa",
			Namespace: deployment.Namespace,
		},
		Spec: autoscalingv1.HorizontalPodAutoscalerSpec{
			ScaleTargetRef: autoscalingv1.CrossVersionObjectReference{
				APIVersion: "apps/v1",
				Kind:       "Deployment",
				Name:       deployment.Name,
			},
			MinReplicas:                    &minReplicas,
			MaxReplicas:                    10,
			TargetCPUUtilizationPercentage: &targetCPU,
		},
	}

	created, err := m.client.Clientset.AutoscalingV1().HorizontalPodAutoscalers(deployment.Namespace).Create(ctx, hpa, metav1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("creating autoscaler: %w", err)
	}
	m.logger.Info("autoscaler created",
		zap.String("namespace", created.Namespace),
		zap.String("name", created.Name),
	)
	return created.Name, nil
}

// RaiseMemoryLimits multiplies the memory limit of every limited container on
// the node by factor. Containers without a memory limit are left alone.
// Returns how many pods were patched.
func (m *Mutator) RaiseMemoryLimits(ctx context.Context, node string, factor float64) (int, error) {
	if err := m.client.waitRateLimit(ctx); err != nil {
		return 0, err
	}
	ctx, cancel := m.client.withTimeout(ctx)
	defer cancel()

	pods, err := m.client.Clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		FieldSelector: "spec.nodeName=" + node,
	})
	if err != nil {
		return 0, fmt.Errorf("listing pods on node %s: %w", node, err)
	}

	patched := 0
	for _, pod := range pods.Items {
		var containerPatches []map[string]interface{}
		for _, container := range pod.Spec.Containers {
			limit, ok := container.Resources.Limits[corev1.ResourceMemory]
			if !ok {
				continue
			}
			raised := resource.NewQuantity(int64(float64(limit.Value())*factor), resource.BinarySI)
			containerPatches = append(containerPatches, map[string]interface{}{
				"name": container.Name,
				"resources": map[string]interface{}{
					"limits": map[string]string{
						"memory": raised.String(),
					},
				},
			})
		}
		if len(containerPatches) == 0 {
			continue
		}

		if err := m.patchPodContainers(ctx, pod.Namespace, pod.Name, containerPatches); err != nil {
			return patched, err
		}
		patched++
	}
	return patched, nil
}

// RebalancePodResources applies the standard resource profile to every
// container on the node. Returns how many pods were patched.
func (m *Mutator) RebalancePodResources(ctx context.Context, node string) (int, error) {
	if err := m.client.waitRateLimit(ctx); err != nil {
		return 0, err
	}
	ctx, cancel := m.client.withTimeout(ctx)
	defer cancel()

	pods, err := m.client.Clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		FieldSelector: "spec.nodeName=" + node,
	})
	if err != nil {
		return 0, fmt.Errorf("listing pods on node %s: %w", node, err)
	}

	patched := 0
	for _, pod := range pods.Items {
		containerPatches := make([]map[string]interface{}, 0, len(pod.Spec.Containers))
		for _, container := range pod.Spec.Containers {
			containerPatches = append(containerPatches, map[string]interface{}{
				"name": container.Name,
				"resources": map[string]interface{}{
					"limits": map[string]string{
						"cpu":    "1",
						"memory": "1Gi",
					},
					"requests": map[string]string{
						"cpu":    "500m",
						"memory": "512Mi",
					},
				},
			})
		}
		if len(containerPatches) == 0 {
			continue
		}

		if err := m.patchPodContainers(ctx, pod.Namespace, pod.Name, containerPatches); err != nil {
			return patched, err
		}
		patched++
	}
	return patched, nil
}

func (m *Mutator) patchPodContainers(ctx context.Context, namespace, name string, containers []map[string]interface{}) error {
	patch, err := json.Marshal(map[string]interface{}{
		"spec": map[string]interface{}{
			"containers": containers,
		},
	})
	if err != nil {
		return fmt.Errorf("building pod patch: %w", err)
	}
	if _, err := m.client.Clientset.CoreV1().Pods(namespace).Patch(ctx, name, types.StrategicMergePatchType, patch, metav1.PatchOptions{}); err != nil {
		return fmt.Errorf("patching pod %s/%s: %w", namespace, name, err)
	}
	return nil
}
