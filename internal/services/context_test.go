package services_test

import (
	"context"
	"testing"

	"scribe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "9f6f2f0c")
	ctx = services.WithComponent(ctx, "runner")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "9f6f2f0c" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if component, ok := services.ComponentFromContext(ctx); !ok || component != "runner" {
		t.Fatalf("unexpected component: %v %v", component, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "")
	ctx = services.WithComponent(ctx, "")
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
	if _, ok := services.ComponentFromContext(ctx); ok {
		t.Fatal("expected no component value")
	}
}
