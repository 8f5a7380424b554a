// Package cluster wraps the Kubernetes client with the small set of
// operations the deployment pipeline needs: reachability, namespace
// handling, pod listing and deletion, and NodePort lookup.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"os"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// Sentinel errors for the precondition taxonomy.
var (
	ErrClusterUnreachable = errors.New("cluster API not reachable")
	ErrNamespaceNotFound  = errors.New("namespace not found")
	ErrNoNodePort         = errors.New("service has no node port")
)

// Client provides cluster operations for the deployment pipeline.
type Client struct {
	clientset  kubernetes.Interface
	kubeconfig []byte
}

// NewClient creates a Client from a kubeconfig file path.
func NewClient(kubeconfigPath string) (*Client, error) {
	// #nosec G304
	data, err := os.ReadFile(kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read kubeconfig: %w", err)
	}
	return NewClientFromBytes(data)
}

// NewClientFromBytes creates a Client from in-memory kubeconfig data.
func NewClientFromBytes(kubeconfig []byte) (*Client, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST config from kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	return &Client{clientset: clientset, kubeconfig: kubeconfig}, nil
}

// NewFromClientset creates a Client from a pre-configured clientset.
// Useful for testing with fake clients.
func NewFromClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// Kubeconfig returns the raw kubeconfig used to build this client.
func (c *Client) Kubeconfig() []byte {
	return c.kubeconfig
}

// Ping verifies the cluster API responds. It must be called at the start of
// every run; no Ready state is cached across invocations.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.clientset.Discovery().ServerVersion(); err != nil {
		return fmt.Errorf("%w: %v", ErrClusterUnreachable, err)
	}
	return nil
}

// NamespaceExists reports whether the namespace is present.
func (c *Client) NamespaceExists(ctx context.Context, name string) (bool, error) {
	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get namespace %s: %w", name, err)
	}
	return true, nil
}

// EnsureNamespace creates the namespace when absent. Creation is idempotent;
// an AlreadyExists response from a concurrent creator is tolerated.
func (c *Client) EnsureNamespace(ctx context.Context, name string) error {
	exists, err := c.NamespaceExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	if _, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

// ListPods returns all pods in the namespace.
func (c *Client) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}
	return pods.Items, nil
}

// DeletePod deletes a pod by name. NotFound is tolerated since the
// scheduler may already have replaced the pod.
func (c *Client) DeletePod(ctx context.Context, namespace, name string) error {
	err := c.clientset.CoreV1().Pods(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete pod %s/%s: %w", namespace, name, err)
	}
	return nil
}

// ServiceNodePort returns the first NodePort exposed by the named service.
// Returns ErrNoNodePort when the service exists but exposes none.
func (c *Client) ServiceNodePort(ctx context.Context, namespace, name string) (int32, error) {
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to get service %s/%s: %w", namespace, name, err)
	}

	for _, port := range svc.Spec.Ports {
		if port.NodePort > 0 {
			return port.NodePort, nil
		}
	}
	return 0, fmt.Errorf("service %s/%s: %w", namespace, name, ErrNoNodePort)
}
