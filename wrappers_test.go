package endpointqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/tzuhan/go-endpoint-queue/core"
)

// TestConstructorsReturnUsableInstances verifies top-level wrappers return working queues
// Given: The package-level constructors with default configuration
// When: A registry, a work queue and a prioritized work queue are created
// Then: Each is non-nil and executes a submitted operation
func TestConstructorsReturnUsableInstances(t *testing.T) {
	// Arrange
	registry := NewQueueRegistry(DefaultRegistryConfig())
	defer registry.Dispose()

	queue := NewWorkQueue("/api/orders", QueueConfig{})
	defer queue.Dispose()

	prioritized := NewPrioritizedWorkQueue("/api/reports", QueueConfig{})
	defer prioritized.Dispose()

	// Act
	viaRegistry, err := registry.Execute(context.Background(), "/api/orders", func(ctx context.Context) (any, error) {
		return "registry", nil
	})

	// Assert
	if err != nil {
		t.Fatalf("registry Execute failed: %v", err)
	}
	if viaRegistry != "registry" {
		t.Fatalf("registry Execute = %v, want %q", viaRegistry, "registry")
	}

	// Act
	viaQueue, err := queue.Enqueue(context.Background(), func(ctx context.Context) (any, error) {
		return "queue", nil
	})

	// Assert
	if err != nil {
		t.Fatalf("queue Enqueue failed: %v", err)
	}
	if viaQueue != "queue" {
		t.Fatalf("queue Enqueue = %v, want %q", viaQueue, "queue")
	}

	// Act
	viaPriority, err := prioritized.Enqueue(context.Background(), func(ctx context.Context) (any, error) {
		return "priority", nil
	}, PriorityHigh)

	// Assert
	if err != nil {
		t.Fatalf("prioritized Enqueue failed: %v", err)
	}
	if viaPriority != "priority" {
		t.Fatalf("prioritized Enqueue = %v, want %q", viaPriority, "priority")
	}
}

// TestExecuteWrapperPreservesType verifies the generic wrapper returns typed results
// Given: A registry and a typed operation
// When: Execute is called through the package-level generic wrapper
// Then: The result has the operation's static type without an assertion
func TestExecuteWrapperPreservesType(t *testing.T) {
	// Arrange
	registry := NewQueueRegistry(DefaultRegistryConfig())
	defer registry.Dispose()

	// Act
	got, err := Execute(context.Background(), registry, "/api/users", func(ctx context.Context) (int, error) {
		return 7, nil
	})

	// Assert
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != 7 {
		t.Fatalf("Execute = %d, want 7", got)
	}
}

// TestReexportedIdentifiersMatchCore verifies aliases and sentinels are the core values
// Given: The re-exported constants and errors
// When: Each is compared against its core counterpart
// Then: They are identical values, so errors.Is works across both import paths
func TestReexportedIdentifiersMatchCore(t *testing.T) {
	// Assert
	if PriorityLow != core.PriorityLow || PriorityNormal != core.PriorityNormal || PriorityHigh != core.PriorityHigh {
		t.Fatal("re-exported priority constants diverge from core")
	}
	if !errors.Is(ErrQueueDisposed, core.ErrQueueDisposed) {
		t.Fatal("ErrQueueDisposed is not the core sentinel")
	}
	if !errors.Is(ErrRegistryDisposed, core.ErrRegistryDisposed) {
		t.Fatal("ErrRegistryDisposed is not the core sentinel")
	}
	if !errors.Is(ErrItemCancelled, core.ErrItemCancelled) {
		t.Fatal("ErrItemCancelled is not the core sentinel")
	}
}
