package remediate

import "context"

// ContainerRestart describes one container's restart state inside a pod,
// collected while investigating a frequently restarting pod.
type ContainerRestart struct {
	Container    string `json:"container"`
	RestartCount int    `json:"restart_count"`
	LastState    string `json:"last_state,omitempty"`
}

// ClusterClient is the capability surface the dispatcher needs from the
// cluster. The production implementation lives in internal/k8s; tests use a
// fake. Implementations map a not-found node to (false, nil) so only real
// API failures surface as errors.
type ClusterClient interface {
	// NodeExists reports whether name identifies a node in the cluster.
	NodeExists(ctx context.Context, name string) (bool, error)

	// CordonNode marks a node unschedulable.
	CordonNode(ctx context.Context, name string) error

	// PodRestartSummary returns per-container restart details for a pod.
	PodRestartSummary(ctx context.Context, namespace, name string) ([]ContainerRestart, error)

	// DeletePod deletes a pod so its controller recreates it.
	DeletePod(ctx context.Context, namespace, name string) error

	// EnsureCPUAutoscaler creates a CPU-target HorizontalPodAutoscaler for a
	// deployment when none exists cluster-wide, and returns the name of the
	// autoscaler that now covers the cluster.
	EnsureCPUAutoscaler(ctx context.Context) (string, error)

	// RaiseMemoryLimits multiplies the memory limit of every limited
	// container on the node by factor and returns how many pods were patched.
	RaiseMemoryLimits(ctx context.Context, node string, factor float64) (int, error)

	// RebalancePodResources applies the standard CPU/memory requests and
	// limits to every container on the node and returns how many pods were
	// patched.
	RebalancePodResources(ctx context.Context, node string) (int, error)
}
