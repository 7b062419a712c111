package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewBuildsBothEnvironments(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := New("debug", env, "stockroom-test")
		if err != nil {
			t.Fatalf("build %s logger: %v", env, err)
		}
		if !logger.Core().Enabled(zap.DebugLevel) {
			t.Fatalf("expected debug level enabled for %s", env)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger from context")
	}
	if FromContext(context.Background()) == nil {
		t.Fatalf("expected fallback logger")
	}
}
