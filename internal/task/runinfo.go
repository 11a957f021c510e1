package task

import "context"

// RunInfo tells an executor where in a run it is being called from.
type RunInfo struct {
	RunID       string
	Instance    string
	Fingerprint string
	// WorkDir is a per-instance scratch directory. Empty means the executor
	// should use the process working directory.
	WorkDir string
}

type runInfoKey struct{}

// WithRunInfo attaches info to ctx.
func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	return context.WithValue(ctx, runInfoKey{}, info)
}

// RunInfoFrom returns the RunInfo attached to ctx, if any.
func RunInfoFrom(ctx context.Context) (RunInfo, bool) {
	info, ok := ctx.Value(runInfoKey{}).(RunInfo)
	return info, ok
}
