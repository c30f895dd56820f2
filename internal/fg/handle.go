package fg

import "fmt"

// Texture is the phantom resource-kind marker for Handle[Texture]. It is
// the only resource kind internal/backend exposes create/destroy
// operations for; a future buffer kind would get its own marker rather
// than a new Handle implementation, since resourceEntry already carries a
// kind tag.
type Texture struct{}

// Handle is an opaque, versioned reference to a virtual resource. It is a
// small value type: a node index into FrameGraph.resNodes plus the version
// the handle was minted at. A handle is valid only while the node it indexes
// is still the newest version of its resource and has not been consumed by
// MoveResource (see FrameGraph.IsValid).
//
// The phantom type parameter T exists purely so the Go compiler keeps
// texture handles and (future) buffer handles from being interchanged; it
// is never read at runtime.
type Handle[T any] struct {
	node    int32
	version uint32
}

// IsNil reports whether h is the zero Handle, i.e. was never assigned by
// CreateTexture/Write/Import. The
// zero Handle is never returned by the builder, so IsNil distinguishes "no
// handle" fields (e.g. an unused render-target attachment slot) from a
// real reference.
func (h Handle[T]) IsNil() bool {
	return h.node == 0 && h.version == 0
}

func (h Handle[T]) String() string {
	return fmt.Sprintf("#%d@%d", h.node, h.version)
}

// nodeIndex and handleVersion give package-internal code (the compiler,
// executor, builder) access to a handle's fields without exporting them.
// Client code treats Handle as opaque.
func (h Handle[T]) nodeIndex() int32    { return h.node }
func (h Handle[T]) handleVersion() uint32 { return h.version }

func newHandle[T any](node int32, version uint32) Handle[T] {
	return Handle[T]{node: node, version: version}
}
