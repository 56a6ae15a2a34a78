// Package adapter defines the boundary between the fallback engine and
// provider-specific wire formats. The engine only ever sees this interface;
// concrete adapters translate a generic request into one provider's call.
package adapter

import (
	"context"
	"encoding/json"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// Adapter dispatches a generic request against one resource. Failures are
// returned as *domain.AttemptError so the orchestrator can classify them
// without inspecting provider specifics.
type Adapter interface {
	Call(ctx context.Context, res domain.Resource, params map[string]string) (json.RawMessage, error)
}

// Func adapts a plain function to the Adapter interface.
type Func func(ctx context.Context, res domain.Resource, params map[string]string) (json.RawMessage, error)

func (f Func) Call(ctx context.Context, res domain.Resource, params map[string]string) (json.RawMessage, error) {
	return f(ctx, res, params)
}
