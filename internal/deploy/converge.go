package deploy

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/fleetlab/twinstack/internal/cluster"
)

// maxRemediationsPerUnit bounds how often a unit with the same base name is
// deleted before remediation gives up on it. A unit that keeps crashing
// past this bound simply consumes poll cycles until the global timeout.
const maxRemediationsPerUnit = 3

// Poller drives the release to convergence: it samples pod phases on a
// fixed interval until every unit is Running or Completed, remediating
// crash-looping units along the way, or until the global timeout elapses.
type Poller struct {
	client    *cluster.Client
	namespace string

	Interval time.Duration
	Timeout  time.Duration

	// remediated tracks pod UIDs already deleted so a terminating pod is
	// not deleted again on the next tick.
	remediated map[types.UID]bool

	// remediationCount tracks deletions per unit name across recreations.
	remediationCount map[string]int
}

// NewPoller creates a convergence poller for the namespace.
func NewPoller(client *cluster.Client, namespace string, interval, timeout time.Duration) *Poller {
	return &Poller{
		client:           client,
		namespace:        namespace,
		Interval:         interval,
		Timeout:          timeout,
		remediated:       make(map[types.UID]bool),
		remediationCount: make(map[string]int),
	}
}

// Wait polls until convergence or timeout. On timeout the last observed
// unit listing is included in the returned error for diagnosis; a timeout
// is fatal to the run. Transient list errors do not abort the poll.
func (p *Poller) Wait(ctx context.Context) error {
	var last []UnitStatus

	err := wait.PollUntilContextTimeout(ctx, p.Interval, p.Timeout, true,
		func(ctx context.Context) (bool, error) {
			pods, err := p.client.ListPods(ctx, p.namespace)
			if err != nil {
				log.Printf("[converge] WARNING: failed to list pods: %v", err)
				return false, nil
			}

			units := Snapshot(pods)
			last = units

			if converged(units) {
				return true, nil
			}

			log.Printf("[converge] waiting: %s", formatUnits(units))
			p.remediate(ctx, units)
			return false, nil
		},
	)
	if err != nil {
		return fmt.Errorf("convergence timed out after %s, last unit states: %s: %w",
			p.Timeout, formatUnits(last), err)
	}

	log.Printf("[converge] all %d units healthy", len(last))
	return nil
}

// converged requires a non-empty unit set with every phase terminal-success.
func converged(units []UnitStatus) bool {
	if len(units) == 0 {
		return false
	}
	for _, u := range units {
		if !u.Phase.Healthy() {
			return false
		}
	}
	return true
}

// remediate deletes units stuck in a terminal-failure phase so the
// scheduler recreates them. Best effort: a failed deletion is logged and
// the poll continues. Each pod instance is deleted at most once, and a
// unit name that keeps producing crashing pods is given up on after a
// bounded number of deletions.
func (p *Poller) remediate(ctx context.Context, units []UnitStatus) {
	for _, u := range units {
		if !u.Phase.NeedsRemediation() || p.remediated[u.UID] {
			continue
		}
		if p.remediationCount[u.Name] >= maxRemediationsPerUnit {
			log.Printf("[converge] WARNING: unit %s still failing after %d restarts, leaving it to the timeout",
				u.Name, p.remediationCount[u.Name])
			continue
		}

		log.Printf("[converge] remediating unit %s (phase %s): deleting so the scheduler recreates it", u.Name, u.Phase)
		if err := p.client.DeletePod(ctx, p.namespace, u.Name); err != nil {
			log.Printf("[converge] WARNING: failed to delete unit %s: %v", u.Name, err)
			continue
		}
		p.remediated[u.UID] = true
		p.remediationCount[u.Name]++
	}
}

func formatUnits(units []UnitStatus) string {
	if len(units) == 0 {
		return "(no units)"
	}
	parts := make([]string, 0, len(units))
	for _, u := range units {
		parts = append(parts, u.String())
	}
	return strings.Join(parts, ", ")
}
