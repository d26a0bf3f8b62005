package k8s

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

func testFetcher(clientset *fake.Clientset, cfg *config.Config) *Fetcher {
	f := NewFetcher(clientset, cfg)
	f.retry.sleep = func(context.Context, time.Duration) error { return nil }
	return f
}

func fixturePod(namespace, name string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Namespace:         namespace,
			Name:              name,
			CreationTimestamp: metav1.Time{Time: time.Now().Add(-time.Hour)},
		},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			ContainerStatuses: []corev1.ContainerStatus{
				{
					Name:         "app",
					RestartCount: 2,
					State: corev1.ContainerState{
						Waiting: &corev1.ContainerStateWaiting{
							Reason:  "CrashLoopBackOff",
							Message: "back-off 5m0s restarting failed container",
						},
					},
				},
			},
		},
	}
}

func TestSnapshotCollectsAllKinds(t *testing.T) {
	now := time.Now()
	clientset := fake.NewSimpleClientset(
		fixturePod("default", "web-1"),
		&corev1.Node{
			ObjectMeta: metav1.ObjectMeta{Name: "node-a"},
			Spec:       corev1.NodeSpec{Unschedulable: true},
			Status: corev1.NodeStatus{
				Conditions: []corev1.NodeCondition{
					{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
				},
			},
		},
		&corev1.PersistentVolumeClaim{
			ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "data"},
			Status:     corev1.PersistentVolumeClaimStatus{Phase: corev1.ClaimPending},
		},
		&appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "api"},
			Status:     appsv1.DeploymentStatus{AvailableReplicas: 0},
		},
		&corev1.Event{
			ObjectMeta:    metav1.ObjectMeta{Namespace: "default", Name: "evt-1"},
			Type:          corev1.EventTypeWarning,
			Reason:        "FailedScheduling",
			Message:       "0/3 nodes are available",
			LastTimestamp: metav1.Time{Time: now.Add(-5 * time.Minute)},
			InvolvedObject: corev1.ObjectReference{
				Kind: "Pod", Namespace: "default", Name: "web-1",
			},
		},
	)

	snap, err := testFetcher(clientset, config.DefaultConfig()).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(snap.Pods) != 1 {
		t.Fatalf("expected 1 pod, got %d", len(snap.Pods))
	}
	if snap.Pods[0].Containers[0].WaitingReason != "CrashLoopBackOff" {
		t.Fatalf("expected CrashLoopBackOff waiting reason, got %q", snap.Pods[0].Containers[0].WaitingReason)
	}
	if len(snap.Nodes) != 1 || !snap.Nodes[0].Unschedulable {
		t.Fatalf("expected 1 unschedulable node, got %+v", snap.Nodes)
	}
	if len(snap.PVCs) != 1 || snap.PVCs[0].Phase != "Pending" {
		t.Fatalf("expected 1 pending PVC, got %+v", snap.PVCs)
	}
	if len(snap.Deployments) != 1 {
		t.Fatalf("expected 1 deployment, got %d", len(snap.Deployments))
	}
	// fake deployments default spec.replicas to nil, treated as 1
	if snap.Deployments[0].DesiredReplicas != 1 {
		t.Fatalf("expected desired replicas 1, got %d", snap.Deployments[0].DesiredReplicas)
	}
	if len(snap.Events) != 1 || snap.Events[0].InvolvedName != "web-1" {
		t.Fatalf("expected 1 event for web-1, got %+v", snap.Events)
	}
	if len(snap.Omissions) != 0 {
		t.Fatalf("expected no omissions, got %+v", snap.Omissions)
	}
}

func TestSnapshotDegradesOnPartialFailure(t *testing.T) {
	clientset := fake.NewSimpleClientset(fixturePod("default", "web-1"))
	clientset.PrependReactor("list", "persistentvolumeclaims", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, fmt.Errorf("pvc listing exploded")
	})

	snap, err := testFetcher(clientset, config.DefaultConfig()).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("expected degraded snapshot, got error: %v", err)
	}

	if len(snap.Pods) != 1 {
		t.Fatalf("expected pods to survive PVC failure, got %d", len(snap.Pods))
	}
	if len(snap.Omissions) != 1 {
		t.Fatalf("expected 1 omission, got %+v", snap.Omissions)
	}
	if snap.Omissions[0].Kind != models.KindPVC {
		t.Fatalf("expected PVC omission, got %s", snap.Omissions[0].Kind)
	}
}

func TestSnapshotAbortsOnAuthError(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	clientset.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewUnauthorized("token expired")
	})

	_, err := testFetcher(clientset, config.DefaultConfig()).Snapshot(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSnapshotAbortsWhenNothingListable(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	for _, resource := range []string{"pods", "nodes", "persistentvolumeclaims", "deployments", "events"} {
		clientset.PrependReactor("list", resource, func(k8stesting.Action) (bool, runtime.Object, error) {
			return true, nil, fmt.Errorf("no route to host")
		})
	}

	_, err := testFetcher(clientset, config.DefaultConfig()).Snapshot(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestSnapshotFiltersOldEventsAndExcludedNamespaces(t *testing.T) {
	now := time.Now()
	clientset := fake.NewSimpleClientset(
		fixturePod("kube-system", "coredns-1"),
		&corev1.Event{
			ObjectMeta:    metav1.ObjectMeta{Namespace: "default", Name: "stale"},
			Type:          corev1.EventTypeWarning,
			LastTimestamp: metav1.Time{Time: now.Add(-3 * time.Hour)},
		},
		&corev1.Event{
			ObjectMeta:    metav1.ObjectMeta{Namespace: "default", Name: "fresh"},
			Type:          corev1.EventTypeWarning,
			LastTimestamp: metav1.Time{Time: now.Add(-10 * time.Minute)},
		},
	)

	cfg := config.DefaultConfig()
	cfg.ExcludeNamespaces = []string{"kube-*"}
	cfg.Normalize()

	snap, err := testFetcher(clientset, cfg).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(snap.Pods) != 0 {
		t.Fatalf("expected kube-system pod to be excluded, got %d pods", len(snap.Pods))
	}
	if len(snap.Events) != 1 || snap.Events[0].Name != "fresh" {
		t.Fatalf("expected only the fresh event, got %+v", snap.Events)
	}
}

func TestSnapshotNeverIssuesWrites(t *testing.T) {
	clientset := fake.NewSimpleClientset(fixturePod("default", "web-1"))

	if _, err := testFetcher(clientset, config.DefaultConfig()).Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	for _, action := range clientset.Actions() {
		verb := action.GetVerb()
		if verb != "list" && verb != "get" && verb != "watch" {
			t.Fatalf("diagnostic run issued a %q request against %s", verb, action.GetResource().Resource)
		}
	}
}
