// Package deploy implements the deployment convergence engine: release
// convergence polling with remediation, endpoint discovery, host address
// resolution, artifact materialization, and the post-deploy smoke check.
package deploy

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
)

// Phase is the engine's view of a pod's lifecycle state.
type Phase string

const (
	PhasePending   Phase = "Pending"
	PhaseRunning   Phase = "Running"
	PhaseCompleted Phase = "Completed"
	PhaseCrashLoop Phase = "CrashLoop"
	PhaseFailed    Phase = "Failed"
	PhaseUnknown   Phase = "Unknown"
)

// Healthy reports whether the phase counts toward convergence.
func (p Phase) Healthy() bool {
	return p == PhaseRunning || p == PhaseCompleted
}

// NeedsRemediation reports whether the unit should be deleted so the
// scheduler recreates it.
func (p Phase) NeedsRemediation() bool {
	return p == PhaseCrashLoop || p == PhaseFailed
}

// UnitStatus is the observed state of a single deployed pod.
type UnitStatus struct {
	Name  string
	UID   types.UID
	Phase Phase
}

func (u UnitStatus) String() string {
	return fmt.Sprintf("%s=%s", u.Name, u.Phase)
}

// ClassifyPod maps a pod's status onto the engine's phase enum. Container
// level error indicators (CrashLoopBackOff, OOMKilled) take precedence over
// the pod-level phase since a pod stuck in a crash loop still reports
// Running or Pending.
func ClassifyPod(pod *corev1.Pod) Phase {
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Waiting != nil && cs.State.Waiting.Reason == "CrashLoopBackOff" {
			return PhaseCrashLoop
		}
		if cs.LastTerminationState.Terminated != nil && cs.LastTerminationState.Terminated.Reason == "OOMKilled" {
			return PhaseCrashLoop
		}
	}

	switch pod.Status.Phase {
	case corev1.PodPending:
		return PhasePending
	case corev1.PodRunning:
		return PhaseRunning
	case corev1.PodSucceeded:
		return PhaseCompleted
	case corev1.PodFailed:
		return PhaseFailed
	default:
		return PhaseUnknown
	}
}

// Snapshot classifies a pod listing into unit statuses.
func Snapshot(pods []corev1.Pod) []UnitStatus {
	units := make([]UnitStatus, 0, len(pods))
	for i := range pods {
		units = append(units, UnitStatus{
			Name:  pods[i].Name,
			UID:   pods[i].UID,
			Phase: ClassifyPod(&pods[i]),
		})
	}
	return units
}
