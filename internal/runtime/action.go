package runtime

// Action is a deferred unit of mutation. Every change to stack, memory or
// bus state happens inside an Action executed by the ExecutionContext.
type Action interface {
	Type() string
	Do(ctx *ExecutionContext) error
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc struct {
	Name string
	Fn   func(ctx *ExecutionContext) error
}

// NewAction returns an Action that runs fn.
func NewAction(name string, fn func(ctx *ExecutionContext) error) Action {
	return ActionFunc{Name: name, Fn: fn}
}

// Type returns the action name.
func (a ActionFunc) Type() string { return a.Name }

// Do runs the wrapped function.
func (a ActionFunc) Do(ctx *ExecutionContext) error {
	if a.Fn == nil {
		return nil
	}
	return a.Fn(ctx)
}

// failAction surfaces an error raised where only actions can be returned,
// such as inside an event handler.
func failAction(source string, err error) Action {
	return NewAction("fail:"+source, func(*ExecutionContext) error { return err })
}
