package deploy

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunStages_InOrder(t *testing.T) {
	var order []string
	stage := func(name string) Stage {
		return Stage{Name: name, Run: func(context.Context) error {
			order = append(order, name)
			return nil
		}}
	}

	err := RunStages(context.Background(), []Stage{stage("first"), stage("second"), stage("third")})
	if err != nil {
		t.Fatal(err)
	}

	if strings.Join(order, ",") != "first,second,third" {
		t.Errorf("stages ran out of order: %v", order)
	}
}

func TestRunStages_AbortsOnFailure(t *testing.T) {
	ran := false
	stages := []Stage{
		{Name: "install", Run: func(context.Context) error { return errors.New("chart not found") }},
		{Name: "converge", Run: func(context.Context) error { ran = true; return nil }},
	}

	err := RunStages(context.Background(), stages)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "install stage failed") {
		t.Errorf("error should identify the failing stage: %v", err)
	}
	if ran {
		t.Error("stages after a failure must not run")
	}
}
