package middleware

import (
	"context"
	"errors"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
)

// Middleware allows wrapping a Storage to add behavior.
type Middleware func(ports.Storage) ports.Storage

// ErrListUnsupported is returned by List when the wrapped store cannot
// enumerate keys.
var ErrListUnsupported = errors.New("underlying store does not support listing")

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.Storage, mws ...Middleware) ports.Storage {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

func list(ctx context.Context, next ports.Storage, prefix string) ([]string, error) {
	lister, ok := next.(ports.Lister)
	if !ok {
		return nil, ErrListUnsupported
	}
	return lister.List(ctx, prefix)
}
