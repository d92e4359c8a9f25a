package service

import (
	"context"
	"fmt"
	"sort"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

var _ output.ActionRegistry = (*ActionRegistryImpl)(nil)

type ActionRegistryImpl struct {
	handlers map[entity.ActionKind]output.ActionHandler
}

func NewActionRegistry(handlers ...output.ActionHandler) *ActionRegistryImpl {
	r := &ActionRegistryImpl{
		handlers: make(map[entity.ActionKind]output.ActionHandler),
	}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

func (r *ActionRegistryImpl) Register(h output.ActionHandler) {
	r.handlers[h.Kind()] = h
}

func (r *ActionRegistryImpl) Get(kind entity.ActionKind) (output.ActionHandler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// All returns the handlers ordered by kind so prompts render stably.
func (r *ActionRegistryImpl) All() []output.ActionHandler {
	result := make([]output.ActionHandler, 0, len(r.handlers))
	for _, h := range r.handlers {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind() < result[j].Kind()
	})
	return result
}

// Dispatch runs the handler for cmd. Handler failures and panics become
// error results fed back to the oracle; only classified run errors
// (stop, cancellation, contract violation) are returned.
func (r *ActionRegistryImpl) Dispatch(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (res entity.ActionResult, err error) {
	h, ok := r.handlers[cmd.Kind]
	if !ok {
		return entity.ActionResult{}, entity.NewUnknownActionError(string(cmd.Kind))
	}

	defer func() {
		if p := recover(); p != nil {
			if env.Logger != nil {
				env.Logger.Error("Action panicked", "action", cmd.Kind, "panic", p)
			}
			res = entity.Failure(fmt.Sprintf("Action '%s' failed: %v", cmd.Kind, p))
			err = nil
		}
	}()

	res, err = h.Handle(ctx, env, cmd)
	if err == nil {
		return res, nil
	}
	if entity.IsFatal(err) {
		return entity.ActionResult{}, err
	}

	if env.Logger != nil {
		env.Logger.Warn("Action failed", "action", cmd.Kind, "error", err)
	}
	return entity.Failure(fmt.Sprintf("Action '%s' failed: %v", cmd.Kind, err)), nil
}
