package deploy

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/fleetlab/twinstack/internal/cluster"
	"github.com/fleetlab/twinstack/internal/config"
)

func nodePortService(name string, nodePort int32) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: testNamespace},
		Spec: corev1.ServiceSpec{
			Type:  corev1.ServiceTypeNodePort,
			Ports: []corev1.ServicePort{{Port: 8080, NodePort: nodePort}},
		},
	}
}

func testSpecs() []config.EndpointConfig {
	return []config.EndpointConfig{
		{Name: config.EndpointDigitalTwin, Service: "c2e-ditto-nginx", Required: true},
		{Name: config.EndpointDeviceRegistry, Service: "c2e-service-device-registry-ext"},
		{Name: config.EndpointMQTTAdapter, Service: "c2e-adapter-mqtt"},
	}
}

func TestResolveEndpoints_AllPresent(t *testing.T) {
	clientset := fake.NewClientset(
		nodePortService("c2e-ditto-nginx", 31000),
		nodePortService("c2e-service-device-registry-ext", 31500),
		nodePortService("c2e-adapter-mqtt", 31883),
	)

	endpoints, err := ResolveEndpoints(context.Background(), cluster.NewFromClientset(clientset), testNamespace, testSpecs())
	if err != nil {
		t.Fatal(err)
	}

	if got := endpoints[config.EndpointDigitalTwin].Port; got != 31000 {
		t.Errorf("digital twin port = %d, want 31000", got)
	}
	if got := endpoints[config.EndpointMQTTAdapter].Port; got != 31883 {
		t.Errorf("mqtt adapter port = %d, want 31883", got)
	}
}

func TestResolveEndpoints_OptionalMissingIsTolerated(t *testing.T) {
	clientset := fake.NewClientset(nodePortService("c2e-ditto-nginx", 31000))

	endpoints, err := ResolveEndpoints(context.Background(), cluster.NewFromClientset(clientset), testNamespace, testSpecs())
	if err != nil {
		t.Fatal(err)
	}

	registry := endpoints[config.EndpointDeviceRegistry]
	if registry.Resolved() {
		t.Error("missing optional endpoint should be unresolved")
	}
	if registry.Port != 0 {
		t.Errorf("unresolved endpoint must carry port 0, got %d", registry.Port)
	}
}

func TestResolveEndpoints_RequiredMissingFailsFast(t *testing.T) {
	// Only the optional services exist; the required lookup must fail
	// before any optional lookup is attempted.
	clientset := fake.NewClientset(
		nodePortService("c2e-service-device-registry-ext", 31500),
		nodePortService("c2e-adapter-mqtt", 31883),
	)

	var queried []string
	clientset.PrependReactor("get", "services", func(action k8stesting.Action) (bool, runtime.Object, error) {
		queried = append(queried, action.(k8stesting.GetAction).GetName())
		return false, nil, nil
	})

	_, err := ResolveEndpoints(context.Background(), cluster.NewFromClientset(clientset), testNamespace, testSpecs())
	if err == nil {
		t.Fatal("expected fatal error for missing required endpoint")
	}

	if len(queried) != 1 || queried[0] != "c2e-ditto-nginx" {
		t.Errorf("expected exactly one query for the required service, got %v", queried)
	}
}

func TestResolveEndpoints_RequiredWithoutNodePortIsFatal(t *testing.T) {
	svc := nodePortService("c2e-ditto-nginx", 0)
	svc.Spec.Type = corev1.ServiceTypeClusterIP
	clientset := fake.NewClientset(svc)

	_, err := ResolveEndpoints(context.Background(), cluster.NewFromClientset(clientset), testNamespace, testSpecs())
	if err == nil {
		t.Fatal("a required service without a node port must be fatal")
	}
}
