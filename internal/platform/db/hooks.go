package db

import "context"

type commitHooks struct {
	fns []func(ctx context.Context)
}

type hooksKey struct{}

// AfterCommit schedules fn to run once the outermost transaction carried by
// ctx commits. Outside a transaction fn runs immediately. Hooks are dropped
// when the transaction rolls back.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if h, ok := ctx.Value(hooksKey{}).(*commitHooks); ok {
		h.fns = append(h.fns, fn)
		return
	}
	fn(ctx)
}

// WithCommitHooks returns a context collecting AfterCommit hooks and a
// function that runs them in registration order. TxManager implementations
// call run with the caller's context after a successful commit.
func WithCommitHooks(ctx context.Context) (context.Context, func(ctx context.Context)) {
	h := &commitHooks{}
	run := func(ctx context.Context) {
		for _, fn := range h.fns {
			fn(ctx)
		}
	}
	return context.WithValue(ctx, hooksKey{}, h), run
}
