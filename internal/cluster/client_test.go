package cluster

import (
	"context"
	"errors"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestNamespaceExists(t *testing.T) {
	clientset := fake.NewClientset(&corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "cloud2edge"},
	})
	client := NewFromClientset(clientset)
	ctx := context.Background()

	exists, err := client.NamespaceExists(ctx, "cloud2edge")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("expected namespace to exist")
	}

	exists, err = client.NamespaceExists(ctx, "absent")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("expected namespace to be absent")
	}
}

func TestEnsureNamespace_Idempotent(t *testing.T) {
	client := NewFromClientset(fake.NewClientset())
	ctx := context.Background()

	if err := client.EnsureNamespace(ctx, "cloud2edge"); err != nil {
		t.Fatal(err)
	}
	// Second call must be a no-op, not an AlreadyExists failure.
	if err := client.EnsureNamespace(ctx, "cloud2edge"); err != nil {
		t.Fatal(err)
	}

	exists, err := client.NamespaceExists(ctx, "cloud2edge")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("namespace not created")
	}
}

func TestListPods(t *testing.T) {
	clientset := fake.NewClientset(
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "a", Namespace: "cloud2edge"}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "b", Namespace: "cloud2edge"}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "other", Namespace: "default"}},
	)
	client := NewFromClientset(clientset)

	pods, err := client.ListPods(context.Background(), "cloud2edge")
	if err != nil {
		t.Fatal(err)
	}
	if len(pods) != 2 {
		t.Errorf("expected 2 pods, got %d", len(pods))
	}
}

func TestDeletePod_ToleratesNotFound(t *testing.T) {
	client := NewFromClientset(fake.NewClientset())

	if err := client.DeletePod(context.Background(), "cloud2edge", "ghost"); err != nil {
		t.Errorf("NotFound should be tolerated, got %v", err)
	}
}

func TestServiceNodePort(t *testing.T) {
	clientset := fake.NewClientset(
		&corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: "c2e-ditto-nginx", Namespace: "cloud2edge"},
			Spec: corev1.ServiceSpec{
				Type: corev1.ServiceTypeNodePort,
				Ports: []corev1.ServicePort{
					{Port: 8080, NodePort: 31000},
				},
			},
		},
		&corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: "internal-only", Namespace: "cloud2edge"},
			Spec: corev1.ServiceSpec{
				Type:  corev1.ServiceTypeClusterIP,
				Ports: []corev1.ServicePort{{Port: 1883}},
			},
		},
	)
	client := NewFromClientset(clientset)
	ctx := context.Background()

	port, err := client.ServiceNodePort(ctx, "cloud2edge", "c2e-ditto-nginx")
	if err != nil {
		t.Fatal(err)
	}
	if port != 31000 {
		t.Errorf("expected port 31000, got %d", port)
	}

	_, err = client.ServiceNodePort(ctx, "cloud2edge", "internal-only")
	if !errors.Is(err, ErrNoNodePort) {
		t.Errorf("expected ErrNoNodePort, got %v", err)
	}

	_, err = client.ServiceNodePort(ctx, "cloud2edge", "absent")
	if err == nil {
		t.Error("expected error for absent service")
	}
}
