// Package helm installs the workload release programmatically through the
// Helm SDK, without shelling out to the helm binary.
package helm

import (
	"context"
	"fmt"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/release"
)

// ChartSpec identifies a chart in a repository.
type ChartSpec struct {
	Repository string
	Name       string
	Version    string
}

// Client provides Helm operations using in-memory kubeconfig.
type Client struct {
	namespace    string
	actionConfig *action.Configuration
}

// NewClient creates a Helm client from kubeconfig bytes.
func NewClient(kubeconfig []byte, namespace string) (*Client, error) {
	actionConfig := new(action.Configuration)
	restGetter := NewInMemoryRESTClientGetter(kubeconfig, namespace)

	// Suppress Helm's debug output.
	if err := actionConfig.Init(restGetter, namespace, "secret", func(format string, v ...interface{}) {}); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}

	return &Client{namespace: namespace, actionConfig: actionConfig}, nil
}

// ReleaseExists checks if a release with this name exists in the namespace.
func (c *Client) ReleaseExists(releaseName string) (bool, error) {
	histClient := action.NewHistory(c.actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(releaseName); err != nil {
		return false, nil
	}
	return true, nil
}

// InstallOrUpgrade installs the chart when the release is absent and
// upgrades it otherwise. Applying identical values twice is idempotent:
// the upgrade recomputes the same manifests and produces no pod churn.
func (c *Client) InstallOrUpgrade(ctx context.Context, releaseName string, spec ChartSpec, values Values, timeout time.Duration) (*release.Release, error) {
	exists, err := c.ReleaseExists(releaseName)
	if err != nil {
		return nil, err
	}
	if exists {
		return c.upgrade(ctx, releaseName, spec, values, timeout)
	}
	return c.install(ctx, releaseName, spec, values, timeout)
}

func (c *Client) install(ctx context.Context, releaseName string, spec ChartSpec, values Values, timeout time.Duration) (*release.Release, error) {
	installClient := action.NewInstall(c.actionConfig)
	installClient.ReleaseName = releaseName
	installClient.Namespace = c.namespace
	installClient.Wait = true
	installClient.Timeout = timeout

	chrt, err := loadChart(&installClient.ChartPathOptions, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart: %w", err)
	}

	return installClient.RunWithContext(ctx, chrt, values)
}

func (c *Client) upgrade(ctx context.Context, releaseName string, spec ChartSpec, values Values, timeout time.Duration) (*release.Release, error) {
	upgradeClient := action.NewUpgrade(c.actionConfig)
	upgradeClient.Namespace = c.namespace
	upgradeClient.Wait = true
	upgradeClient.Timeout = timeout
	upgradeClient.ReuseValues = false

	chrt, err := loadChart(&upgradeClient.ChartPathOptions, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart: %w", err)
	}

	return upgradeClient.RunWithContext(ctx, releaseName, chrt, values)
}

// loadChart resolves the chart archive through the repository index and
// loads it from the local chart cache.
func loadChart(opts *action.ChartPathOptions, spec ChartSpec) (*chart.Chart, error) {
	settings := cli.New()

	opts.RepoURL = spec.Repository
	opts.Version = spec.Version

	chartPath, err := opts.LocateChart(spec.Name, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to locate chart %s in repo %s: %w", spec.Name, spec.Repository, err)
	}

	return loader.Load(chartPath)
}
