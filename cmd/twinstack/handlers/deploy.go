// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of the
// CLI layer. External collaborators are created through package-level
// factory variables so tests can substitute fakes.
package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"helm.sh/helm/v3/pkg/release"

	"github.com/fleetlab/twinstack/internal/cluster"
	"github.com/fleetlab/twinstack/internal/config"
	"github.com/fleetlab/twinstack/internal/deploy"
	"github.com/fleetlab/twinstack/internal/envfile"
	"github.com/fleetlab/twinstack/internal/helm"
	"github.com/fleetlab/twinstack/internal/util/precheck"
)

// releaseInstaller is the Helm surface the pipeline needs.
type releaseInstaller interface {
	ReleaseExists(releaseName string) (bool, error)
	InstallOrUpgrade(ctx context.Context, releaseName string, spec helm.ChartSpec, values helm.Values, timeout time.Duration) (*release.Release, error)
}

// accessibilityChecker is the smoke-check surface of deploy.Verifier.
type accessibilityChecker interface {
	Check(ctx context.Context) error
	Close() error
}

// Factory function variables - replaced in tests for dependency injection.
var (
	loadConfigFile = config.LoadFile

	newClusterClient = func(kubeconfigPath string) (*cluster.Client, error) {
		return cluster.NewClient(kubeconfigPath)
	}

	newHelmClient = func(kubeconfig []byte, namespace string) (releaseInstaller, error) {
		return helm.NewClient(kubeconfig, namespace)
	}

	newVerifier = func(baseURL, username, password string, attempts int, interval time.Duration) accessibilityChecker {
		return deploy.NewVerifier(baseURL, username, password, attempts, interval)
	}
)

// Deploy runs the full deployment pipeline: precondition checks, cluster
// access, release install/upgrade, convergence with remediation, endpoint
// and host address discovery, artifact materialization, and the final
// accessibility smoke check.
//
// Every stage up to and including the artifact write is fatal on error.
// The smoke check is not: the twin API may still be initializing
// asynchronously after unit-level convergence, so its failure is reported
// as a warning and the run still succeeds.
func Deploy(ctx context.Context, configPath string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	if err := precheck.Run(precheck.Deployment(cfg.MarkerFile, cfg.Cluster.Kubeconfig)).Error(); err != nil {
		return err
	}

	client, err := newClusterClient(cfg.Cluster.Kubeconfig)
	if err != nil {
		return err
	}

	var (
		endpoints map[string]deploy.Endpoint
		host      string
		artifact  *envfile.Artifact
	)

	stages := []deploy.Stage{
		{Name: "cluster access", Run: func(ctx context.Context) error {
			return ensureClusterAccess(ctx, client, cfg)
		}},
		{Name: "install release", Run: func(ctx context.Context) error {
			return installRelease(ctx, client, cfg)
		}},
		{Name: "converge", Run: func(ctx context.Context) error {
			poller := deploy.NewPoller(client, cfg.Cluster.Namespace,
				cfg.Timeouts.PollInterval.Std(), cfg.Timeouts.Converge.Std())
			return poller.Wait(ctx)
		}},
		{Name: "resolve endpoints", Run: func(ctx context.Context) error {
			endpoints, err = deploy.ResolveEndpoints(ctx, client, cfg.Cluster.Namespace, cfg.Endpoints)
			return err
		}},
		{Name: "resolve host address", Run: func(_ context.Context) error {
			host, err = deploy.ResolveHostAddress(cfg.Network.ExcludedCIDRs)
			return err
		}},
		{Name: "write artifact", Run: func(_ context.Context) error {
			artifact, err = deploy.BuildArtifact(cfg, host, endpoints)
			if err != nil {
				return err
			}
			return artifact.Write(cfg.Output)
		}},
	}

	if err := deploy.RunStages(ctx, stages); err != nil {
		return err
	}

	verifyAccessibility(ctx, cfg, host, endpoints)

	log.Printf("[deploy] done: %s written, downstream services can start", cfg.Output)
	return nil
}

// ensureClusterAccess verifies reachability and the target namespace. No
// Ready state is cached: this runs at the start of every invocation.
func ensureClusterAccess(ctx context.Context, client *cluster.Client, cfg *config.Config) error {
	if err := client.Ping(ctx); err != nil {
		return err
	}

	if cfg.Cluster.CreateNamespace {
		return client.EnsureNamespace(ctx, cfg.Cluster.Namespace)
	}

	exists, err := client.NamespaceExists(ctx, cfg.Cluster.Namespace)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", cluster.ErrNamespaceNotFound, cfg.Cluster.Namespace)
	}
	return nil
}

// installRelease performs the idempotent install-or-upgrade. A failure here
// is fatal with the packaging layer's error surfaced verbatim; transient
// unit-level trouble is left to the convergence poller.
func installRelease(ctx context.Context, client *cluster.Client, cfg *config.Config) error {
	fileValues, err := helm.LoadFiles(cfg.Release.ValueFiles)
	if err != nil {
		return err
	}
	values := helm.Merge(fileValues, cfg.Release.Values)

	helmClient, err := newHelmClient(client.Kubeconfig(), cfg.Cluster.Namespace)
	if err != nil {
		return err
	}

	spec := helm.ChartSpec{
		Repository: cfg.Release.Repository,
		Name:       cfg.Release.Chart,
		Version:    cfg.Release.Version,
	}

	rel, err := helmClient.InstallOrUpgrade(ctx, cfg.Release.Name, spec, values, cfg.Timeouts.Install.Std())
	if err != nil {
		return err
	}

	log.Printf("[deploy] release %s revision %d (%s)", rel.Name, rel.Version, rel.Info.Status)
	return nil
}

// verifyAccessibility runs the bounded smoke check against the required
// digital twin endpoint. Warning only.
func verifyAccessibility(ctx context.Context, cfg *config.Config, host string, endpoints map[string]deploy.Endpoint) {
	twin, ok := endpoints[config.EndpointDigitalTwin]
	if !ok || !twin.Resolved() {
		log.Printf("[deploy] WARNING: skipping accessibility check, digital twin endpoint unresolved")
		return
	}

	baseURL := fmt.Sprintf("http://%s:%d", host, twin.Port)
	verifier := newVerifier(baseURL, cfg.Credentials.DittoUser, cfg.Credentials.DittoPass,
		cfg.Timeouts.VerifyAttempts, cfg.Timeouts.VerifyInterval.Std())
	defer func() {
		_ = verifier.Close()
	}()

	if err := verifier.Check(ctx); err != nil {
		log.Printf("[deploy] WARNING: twin API not yet reachable at %s: %v", baseURL, err)
	}
}
