package storehouse

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// DirMode is applied to directories created for a target.
	DirMode os.FileMode = 0o755
	// FileMode is applied to every committed file.
	FileMode os.FileMode = 0o644
)

// Stage is a state of the commit pipeline.
type Stage int

const (
	StageIdle Stage = iota
	StageCheckingExists
	StageCreatingDirectory
	StageMaterializing
	StageSettingPermissions
	StageRollingBack
	StageCommitted
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCheckingExists:
		return "checking-exists"
	case StageCreatingDirectory:
		return "creating-directory"
	case StageMaterializing:
		return "materializing"
	case StageSettingPermissions:
		return "setting-permissions"
	case StageRollingBack:
		return "rolling-back"
	case StageCommitted:
		return "committed"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Terminal reports whether no further transition can leave s.
func (s Stage) Terminal() bool {
	return s == StageCommitted || s == StageFailed
}

// FileSystem is the set of filesystem operations the pipeline drives.
type FileSystem interface {
	// Exists reports whether anything (file, directory, symlink) is present
	// at path.
	Exists(ctx context.Context, path string) (bool, error)
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error
	Chmod(ctx context.Context, path string, mode os.FileMode) error
	// Remove deletes path. A missing path is not an error.
	Remove(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (os.FileInfo, error)
}

// RollbackPolicy says what the pipeline does when materialization fails.
type RollbackPolicy int

const (
	// RollbackNone leaves the target alone. Used for moves, which either
	// land whole or not at all.
	RollbackNone RollbackPolicy = iota
	// RollbackRemovePartial removes whatever the materializer left at the
	// target. Used for streamed writes.
	RollbackRemovePartial
)

// untouchedError marks a materializer failure that happened before the
// target was opened.
type untouchedError struct{ err error }

func (e untouchedError) Error() string { return e.err.Error() }
func (e untouchedError) Unwrap() error { return e.err }

// Untouched marks err as raised before the materializer opened the target.
// The pipeline never rolls back such a failure, so whatever was already at
// the target survives.
func Untouched(err error) error {
	if err == nil {
		return nil
	}
	return untouchedError{err: err}
}

func isUntouched(err error) bool {
	var u untouchedError
	return errors.As(err, &u)
}

// Materializer produces the file content at the target.
type Materializer struct {
	Apply    func(ctx context.Context, target string) error
	Rollback RollbackPolicy
}

// FailureHook observes the stage a run failed in.
type FailureHook func(stage Stage, kind ErrorKind)

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithFailureHook registers a hook called once per failed run.
func WithFailureHook(hook FailureHook) PipelineOption {
	return func(p *Pipeline) {
		p.onFailure = hook
	}
}

// Pipeline runs the staged commit of one file. A Pipeline holds no
// per-request state and may be shared between goroutines.
//
// There is no mutual exclusion on the target: two runs against the same
// path can interleave, and both may pass the exists check.
type Pipeline struct {
	fs        FileSystem
	logger    *slog.Logger
	onFailure FailureHook
}

func NewPipeline(fs FileSystem, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{fs: fs, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the stages against target in order and halts on the first
// failure. The returned Commit has Location and Size set; Size is -1 if
// the committed file could not be stat'ed.
//
// Cancellation of ctx does not abort a run once started. Time limits
// belong to the I/O the materializer performs.
func (p *Pipeline) Run(ctx context.Context, target string, overwrite bool, m Materializer) (Commit, error) {
	r := &run{p: p, ctx: context.WithoutCancel(ctx), target: target, stage: StageIdle}
	return r.execute(overwrite, m)
}

type run struct {
	p      *Pipeline
	ctx    context.Context
	target string
	stage  Stage
}

func (r *run) transition(to Stage) {
	r.p.logger.DebugContext(r.ctx, "pipeline transition",
		"target", r.target,
		"from", r.stage.String(),
		"to", to.String(),
	)
	r.stage = to
}

func (r *run) fail(err *Error) (Commit, error) {
	failedIn := r.stage
	r.transition(StageFailed)
	r.p.logger.DebugContext(r.ctx, "pipeline failed",
		"target", r.target,
		"stage", failedIn.String(),
		"kind", string(err.Kind),
		"code", err.Code,
	)
	if r.p.onFailure != nil {
		r.p.onFailure(failedIn, err.Kind)
	}
	return Commit{}, err
}

func (r *run) execute(overwrite bool, m Materializer) (Commit, error) {
	if m.Apply == nil {
		return r.fail(Errorf(KindIO, CodeWriteFile, nil, "no materializer for %s", r.target))
	}

	r.transition(StageCheckingExists)
	exists, err := r.p.fs.Exists(r.ctx, r.target)
	if err != nil {
		return r.fail(Errorf(KindIO, CodeCheckExists, err, "check %s: %v", r.target, err))
	}
	if exists && !overwrite {
		return r.fail(Errorf(KindConflict, CodeFileExists, nil, "%s already exists", r.target))
	}

	r.transition(StageCreatingDirectory)
	if err := r.p.fs.MkdirAll(r.ctx, filepath.Dir(r.target), DirMode); err != nil {
		return r.fail(Errorf(KindIO, CodeCreateDirectory, err, "create directory for %s: %v", r.target, err))
	}

	r.transition(StageMaterializing)
	if err := m.Apply(r.ctx, r.target); err != nil {
		failure := asError(err, KindIO, CodeWriteFile)
		if m.Rollback == RollbackRemovePartial && !isUntouched(err) {
			failure = r.rollback(failure)
		}
		return r.fail(failure)
	}

	r.transition(StageSettingPermissions)
	if err := r.p.fs.Chmod(r.ctx, r.target, FileMode); err != nil {
		return r.fail(Errorf(KindIO, CodeSetPermissions, err, "chmod %s: %v", r.target, err))
	}

	commit := Commit{Location: r.target, Size: -1}
	if info, statErr := r.p.fs.Stat(r.ctx, r.target); statErr == nil {
		commit.Size = info.Size()
	} else {
		r.p.logger.WarnContext(r.ctx, "stat committed file", "target", r.target, "error", statErr)
	}

	r.transition(StageCommitted)
	return commit, nil
}

// rollback removes the partial target. A removal failure is joined into the
// returned error; the kind stays the materializer's.
func (r *run) rollback(failure *Error) *Error {
	r.transition(StageRollingBack)

	rmErr := r.p.fs.Remove(r.ctx, r.target)
	if rmErr == nil || errors.Is(rmErr, fs.ErrNotExist) {
		return failure
	}

	r.p.logger.ErrorContext(r.ctx, "rollback failed", "target", r.target, "error", rmErr)

	joined := *failure
	joined.Err = errors.Join(failure.Err, fmt.Errorf("rollback %s: %w", r.target, rmErr))
	joined.Message = fmt.Sprintf("%s; rollback failed: %v", failure.Message, rmErr)
	return &joined
}

// asError returns err as an *Error, wrapping foreign errors with the given
// kind and code.
func asError(err error, kind ErrorKind, code string) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return Errorf(kind, code, err, "%v", err)
}
