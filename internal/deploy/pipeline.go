package deploy

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Stage is a single named step of the deployment pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunStages executes the stages sequentially. Each stage must complete
// before the next begins; a stage error aborts the remaining stages and is
// wrapped with the stage name so the failing stage is identifiable on
// stderr.
func RunStages(ctx context.Context, stages []Stage) error {
	start := time.Now()

	for i, stage := range stages {
		name := fmt.Sprintf("%s (%d/%d)", stage.Name, i+1, len(stages))
		stageStart := time.Now()

		log.Printf("[pipeline] %s starting", name)
		if err := stage.Run(ctx); err != nil {
			log.Printf("[pipeline] %s failed: %v", name, err)
			return fmt.Errorf("%s stage failed: %w", stage.Name, err)
		}
		log.Printf("[pipeline] %s completed in %v", name, time.Since(stageStart).Round(time.Millisecond))
	}

	log.Printf("[pipeline] completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}
