package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("conversation-%d", i)
		_ = mgr.WithLock(ctx, key, func(context.Context) error { return nil })
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory leak detected: %d locks remain after all turns finished", lockCount)
	}
}
