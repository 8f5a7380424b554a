package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/fleetlab/twinstack/internal/deploy"
)

// Status reports the current deployment state: cluster reachability,
// release existence, per-unit phases, and endpoint resolution. It performs
// read queries only and never mutates the cluster.
func Status(ctx context.Context, configPath string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	client, err := newClusterClient(cfg.Cluster.Kubeconfig)
	if err != nil {
		return err
	}

	if err := client.Ping(ctx); err != nil {
		return err
	}

	exists, err := client.NamespaceExists(ctx, cfg.Cluster.Namespace)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Printf("namespace %s: absent\n", cfg.Cluster.Namespace)
		return nil
	}

	helmClient, err := newHelmClient(client.Kubeconfig(), cfg.Cluster.Namespace)
	if err != nil {
		return err
	}
	released, err := helmClient.ReleaseExists(cfg.Release.Name)
	if err != nil {
		return err
	}
	fmt.Printf("release %s: installed=%v\n", cfg.Release.Name, released)

	pods, err := client.ListPods(ctx, cfg.Cluster.Namespace)
	if err != nil {
		return err
	}
	units := deploy.Snapshot(pods)
	healthy := 0
	for _, u := range units {
		if u.Phase.Healthy() {
			healthy++
		}
		fmt.Printf("unit %-50s %s\n", u.Name, u.Phase)
	}
	fmt.Printf("units healthy: %d/%d\n", healthy, len(units))

	for _, spec := range cfg.Endpoints {
		port, err := client.ServiceNodePort(ctx, cfg.Cluster.Namespace, spec.Service)
		if err != nil {
			if spec.Required {
				log.Printf("[status] WARNING: required endpoint %s unresolved: %v", spec.Name, err)
			}
			fmt.Printf("endpoint %-20s unresolved\n", spec.Name)
			continue
		}
		fmt.Printf("endpoint %-20s port %d\n", spec.Name, port)
	}

	return nil
}
