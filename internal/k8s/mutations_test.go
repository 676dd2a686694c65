package k8s

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestNodeExists(t *testing.T) {
	clientset := fake.NewSimpleClientset(testNode("node-1", true, false))
	m := NewMutator(NewClientForTest(clientset), nil)
	ctx := context.Background()

	exists, err := m.NodeExists(ctx, "node-1")
	if err != nil {
		t.Fatalf("NodeExists: %v", err)
	}
	if !exists {
		t.Error("expected node-1 to exist")
	}

	exists, err = m.NodeExists(ctx, "default/web-0")
	if err != nil {
		t.Fatalf("not-found must not be an error: %v", err)
	}
	if exists {
		t.Error("pod name must classify as non-node")
	}
}

func TestCordonNode(t *testing.T) {
	clientset := fake.NewSimpleClientset(testNode("node-1", true, false))
	m := NewMutator(NewClientForTest(clientset), nil)

	if err := m.CordonNode(context.Background(), "node-1"); err != nil {
		t.Fatalf("CordonNode: %v", err)
	}

	node, err := clientset.CoreV1().Nodes().Get(context.Background(), "node-1", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("reading node back: %v", err)
	}
	if !node.Spec.Unschedulable {
		t.Error("expected node to be unschedulable after cordon")
	}
}

func TestPodRestartSummary(t *testing.T) {
	pod := testPod("default", "crashy", 7, corev1.PodRunning)
	pod.Status.ContainerStatuses[0].LastTerminationState = corev1.ContainerState{
		Terminated: &corev1.ContainerStateTerminated{Reason: "OOMKilled"},
	}
	pod.Status.ContainerStatuses = append(pod.Status.ContainerStatuses, corev1.ContainerStatus{
		Name: "sidecar", RestartCount: 0,
	})

	m := NewMutator(NewClientForTest(fake.NewSimpleClientset(pod)), nil)

	restarts, err := m.PodRestartSummary(context.Background(), "default", "crashy")
	if err != nil {
		t.Fatalf("PodRestartSummary: %v", err)
	}
	if len(restarts) != 1 {
		t.Fatalf("only restarted containers are reported, got %d entries", len(restarts))
	}
	if restarts[0].Container != "app" || restarts[0].RestartCount != 7 {
		t.Errorf("unexpected restart entry: %+v", restarts[0])
	}
	if restarts[0].LastState != "OOMKilled" {
		t.Errorf("expected OOMKilled last state, got %q", restarts[0].LastState)
	}
}

func TestDeletePod(t *testing.T) {
	clientset := fake.NewSimpleClientset(testPod("default", "crashy", 7, corev1.PodRunning))
	m := NewMutator(NewClientForTest(clientset), nil)
	ctx := context.Background()

	if err := m.DeletePod(ctx, "default", "crashy"); err != nil {
		t.Fatalf("DeletePod: %v", err)
	}
	if _, err := clientset.CoreV1().Pods("default").Get(ctx, "crashy", metav1.GetOptions{}); err == nil {
		t.Error("expected pod to be gone")
	}
}

func TestEnsureCPUAutoscalerCreates(t *testing.T) {
	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "web"},
	}
	clientset := fake.NewSimpleClientset(deployment)
	m := NewMutator(NewClientForTest(clientset), nil)
	ctx := context.Background()

	name, err := m.EnsureCPUAutoscaler(ctx)
	if err != nil {
		t.Fatalf("EnsureCPUAutoscaler: %v", err)
	}
	if name != "web-hpa" {
		t.Errorf("expected web-hpa, got %s", name)
	}

	hpa, err := clientset.AutoscalingV1().HorizontalPodAutoscalers("default").Get(ctx, "web-hpa", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("reading autoscaler back: %v", err)
	}
	if hpa.Spec.MaxReplicas != 10 {
		t.Errorf("expected max 10 replicas, got %d", hpa.Spec.MaxReplicas)
	}
	if hpa.Spec.TargetCPUUtilizationPercentage == nil || *hpa.Spec.TargetCPUUtilizationPercentage != 70 {
		t.Errorf("expected 70%% CPU target, got %v", hpa.Spec.TargetCPUUtilizationPercentage)
	}

	// Second call finds the existing autoscaler and creates nothing new.
	name, err = m.EnsureCPUAutoscaler(ctx)
	if err != nil {
		t.Fatalf("EnsureCPUAutoscaler second call: %v", err)
	}
	if name != "web-hpa" {
		t.Errorf("expected existing web-hpa, got %s", name)
	}
}

func TestEnsureCPUAutoscalerNoDeployments(t *testing.T) {
	m := NewMutator(NewClientForTest(fake.NewSimpleClientset()), nil)
	if _, err := m.EnsureCPUAutoscaler(context.Background()); err == nil {
		t.Error("expected error when no deployments exist")
	}
}

func podOnNode(namespace, name, node string, memoryLimit string) *corev1.Pod {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec: corev1.PodSpec{
			NodeName: node,
			Containers: []corev1.Container{
				{Name: "app"},
			},
		},
	}
	if memoryLimit != "" {
		pod.Spec.Containers[0].Resources = corev1.ResourceRequirements{
			Limits: corev1.ResourceList{
				corev1.ResourceMemory: resource.MustParse(memoryLimit),
			},
		}
	}
	return pod
}

func TestRaiseMemoryLimits(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		podOnNode("default", "limited", "node-1", "100Mi"),
		podOnNode("default", "unlimited", "node-1", ""),
	)
	m := NewMutator(NewClientForTest(clientset), nil)

	// The fake clientset does not index field selectors, so the listing
	// returns all pods; the limit filter still applies.
	patched, err := m.RaiseMemoryLimits(context.Background(), "node-1", 1.2)
	if err != nil {
		t.Fatalf("RaiseMemoryLimits: %v", err)
	}
	if patched != 1 {
		t.Errorf("only the limited pod should be patched, got %d", patched)
	}
}

func TestRebalancePodResources(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		podOnNode("default", "a", "node-1", ""),
		podOnNode("default", "b", "node-1", "200Mi"),
	)
	m := NewMutator(NewClientForTest(clientset), nil)

	patched, err := m.RebalancePodResources(context.Background(), "node-1")
	if err != nil {
		t.Fatalf("RebalancePodResources: %v", err)
	}
	if patched != 2 {
		t.Errorf("expected both pods patched, got %d", patched)
	}
}
