package fg

import "fmt"

// DeclError reports a programmer error made during pass declaration:
// writing/reading through an out-of-version handle, declaring an
// attachment the pass never read or wrote, or declaring a render target
// whose attachments disagree on dimensions or sample count.
type DeclError struct {
	Pass   string
	Reason string
}

func (e *DeclError) Error() string {
	return fmt.Sprintf("framegraph: declaration error in pass %q: %s", e.Pass, e.Reason)
}

func declErrorf(pass string, format string, args ...any) *DeclError {
	return &DeclError{Pass: pass, Reason: fmt.Sprintf(format, args...)}
}

// CycleWarning lists passes that end cull propagation neither culled nor
// side-effecting while holding a refcount of zero. A pass kept alive only by
// a cycle in the post-alias graph (for example one that reads a node it
// wrote itself) keeps a non-zero refcount, is not listed, and simply
// survives cull. The warning is logged, not returned: Compile does not fail
// when it is produced; a caller that wants to treat it as fatal can check
// FrameGraph.LastCompileWarnings after Compile returns.
type CycleWarning struct {
	Passes []string
}

func (w *CycleWarning) Error() string {
	return fmt.Sprintf("framegraph: possible cycle involving passes %v; compiled with conservative no-cull fallback", w.Passes)
}
