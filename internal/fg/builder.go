package fg

import (
	"github.com/gogpu/gputypes"
	"github.com/vk/framegraph/internal/backend"
)

// Builder is the declaration-phase API passed to a pass's setup callback.
// It is only valid for the duration of that callback; holding onto a
// Builder past AddPass returning is a programmer error the package does
// not attempt to detect.
type Builder struct {
	fg   *FrameGraph
	pidx int32
	pass *passNode
}

// CreateTexture declares a brand-new virtual texture, owned by this pass
// until some pass writes or reads it. The returned handle is at version 0;
// this pass is recorded as v0's producer even though no write() call has
// happened yet, so v0 participates correctly in cull propagation if some
// other pass reads it without anyone ever writing it.
func (b *Builder) CreateTexture(name string, desc backend.TextureDescriptor) TextureHandle {
	fg := b.fg
	entryID := int32(len(fg.entries))
	fg.entries = append(fg.entries, newTextureEntry(entryID, name, desc))
	nodeIdx := int32(len(fg.resNodes))
	fg.resNodes = append(fg.resNodes, newResourceNode(nodeIdx, entryID, 0, b.pidx))
	return newHandle[Texture](nodeIdx, 0)
}

// Read declares that this pass reads h. It increments h's node refcount and
// returns an error if h is out of version.
func (b *Builder) Read(h TextureHandle) error {
	return b.read(h, false)
}

// ReadAsAttachment is like Read, but additionally promises the pass never
// samples h's texture contents directly: it only binds h as a render
// target attachment. The promise is recorded with the pass's read; Compile
// and Execute otherwise treat the read exactly like Read, and it is not
// passed on to the backend.
func (b *Builder) ReadAsAttachment(h TextureHandle) error {
	return b.read(h, true)
}

func (b *Builder) read(h TextureHandle, attachmentOnly bool) error {
	if !b.fg.isValidHandle(h) {
		return declErrorf(b.pass.name, "read() of out-of-version handle %s", h)
	}
	idx := h.nodeIndex()
	b.fg.resNodes[idx].readRefCount++
	b.pass.reads = append(b.pass.reads, readRef{node: idx, doesntNeedTexture: attachmentOnly})
	return nil
}

// Write declares that this pass produces a new version of h. The first
// write always re-versions the entry into a brand-new node and invalidates
// the handle passed in; there is no free-first-write special case here.
// CreateTexture already makes its pass the implicit producer of a resource
// that is never explicitly written, so Write itself never needs one.
// Writing an imported resource marks the pass as having a side effect.
func (b *Builder) Write(h TextureHandle) (TextureHandle, error) {
	fg := b.fg
	if !fg.isValidHandle(h) {
		return TextureHandle{}, declErrorf(b.pass.name, "write() of out-of-version handle %s", h)
	}
	idx := h.nodeIndex()
	node := fg.resNodes[idx]
	entry := fg.entries[node.entry]

	// A write depends on the prior version existing, even when nothing ever
	// issues a content-level Read() against it. Without this, a chain of
	// writes with no reader in between would carry a zero refcount at its
	// tail and fall into the initial cull queue, wrongly culling every
	// earlier writer since nothing else references their output.
	node.readRefCount++

	newIdx := int32(len(fg.resNodes))
	newVersion := node.version + 1
	newNode := newResourceNode(newIdx, node.entry, newVersion, b.pidx)
	fg.resNodes = append(fg.resNodes, newNode)
	b.pass.writes = append(b.pass.writes, newIdx)
	if entry.imported {
		b.pass.hasSideEffect = true
	}
	return newHandle[Texture](newIdx, newVersion), nil
}

// SideEffect marks this pass as having an effect outside the graph (e.g. it
// writes to an imported resource some other system owns, or performs I/O).
// A side-effecting pass always survives cull.
func (b *Builder) SideEffect() {
	b.pass.hasSideEffect = true
}

// CreateRenderTarget declares this pass's virtual render target. Every
// non-nil handle in attachments must already have been Read or Written by
// this pass; all attachments (color, depth and stencil) must agree on
// dimensions and on sample count.
func (b *Builder) CreateRenderTarget(name string, attachments RenderTargetAttachments, clearFlags backend.AttachmentMask, clearColor gputypes.Color) (int32, error) {
	fg := b.fg

	var width, height, samples uint32
	var desc backend.RenderTargetDescriptor
	seen := false

	check := func(h TextureHandle) (*resourceEntry, error) {
		if h.IsNil() {
			return nil, nil
		}
		if !b.declaredInThisPass(h) {
			return nil, declErrorf(b.pass.name, "render target %q attachment %s was not read or written by this pass", name, h)
		}
		e := fg.entries[fg.resNodes[h.nodeIndex()].entry]
		if !seen {
			width, height, samples = e.desc.Width, e.desc.Height, e.desc.SampleCount
			seen = true
		} else if e.desc.Width != width || e.desc.Height != height {
			return nil, declErrorf(b.pass.name, "render target %q attachment dimensions disagree", name)
		} else if e.desc.SampleCount != samples {
			return nil, declErrorf(b.pass.name, "render target %q attachment sample counts disagree", name)
		}
		return e, nil
	}

	vrt := newVirtualRenderTarget(int32(len(fg.rts)), b.pidx, name)

	for i, h := range attachments.Color {
		e, err := check(h)
		if err != nil {
			return -1, err
		}
		if e == nil {
			continue
		}
		vrt.colorNodes[i] = h.nodeIndex()
		desc.Color[i] = &backend.AttachmentDescriptor{Format: e.desc.Format, ClearColor: clearColor}
		if clearFlags&backend.ColorAttachmentMask(i) != 0 {
			desc.Color[i].LoadOp = gputypes.LoadOpClear
		} else {
			desc.Color[i].LoadOp = gputypes.LoadOpLoad
		}
		desc.Color[i].StoreOp = gputypes.StoreOpStore
	}
	if e, err := check(attachments.Depth); err != nil {
		return -1, err
	} else if e != nil {
		vrt.depthNode = attachments.Depth.nodeIndex()
		desc.Depth = &backend.AttachmentDescriptor{Format: e.desc.Format, StoreOp: gputypes.StoreOpStore}
		if clearFlags&backend.AttachmentDepth != 0 {
			desc.Depth.LoadOp = gputypes.LoadOpClear
		} else {
			desc.Depth.LoadOp = gputypes.LoadOpLoad
		}
	}
	if e, err := check(attachments.Stencil); err != nil {
		return -1, err
	} else if e != nil {
		vrt.stencilNode = attachments.Stencil.nodeIndex()
		desc.Stencil = &backend.AttachmentDescriptor{Format: e.desc.Format, StoreOp: gputypes.StoreOpStore}
		if clearFlags&backend.AttachmentStencil != 0 {
			desc.Stencil.LoadOp = gputypes.LoadOpClear
		} else {
			desc.Stencil.LoadOp = gputypes.LoadOpLoad
		}
	}

	desc.Width, desc.Height, desc.SampleCount = width, height, samples
	vrt.width, vrt.height, vrt.sampleCount = width, height, samples
	vrt.descriptor = desc
	vrt.clearFlags = clearFlags

	idx := int32(len(fg.rts))
	fg.rts = append(fg.rts, vrt)
	b.pass.renderTargets = append(b.pass.renderTargets, idx)
	return idx, nil
}

// declaredInThisPass reports whether h's node was named by this pass's
// reads or writes, the precondition CreateRenderTarget enforces for every
// attachment.
func (b *Builder) declaredInThisPass(h TextureHandle) bool {
	idx := h.nodeIndex()
	for _, w := range b.pass.writes {
		if w == idx {
			return true
		}
	}
	for _, r := range b.pass.reads {
		if r.node == idx {
			return true
		}
	}
	return false
}

// IsAttachment reports whether h is declared as an attachment of any
// render target this pass has created so far.
func (b *Builder) IsAttachment(h TextureHandle) bool {
	idx := h.nodeIndex()
	for _, rtIdx := range b.pass.renderTargets {
		vrt := b.fg.rts[rtIdx]
		for _, c := range vrt.colorNodes {
			if c == idx {
				return true
			}
		}
		if vrt.depthNode == idx || vrt.stencilNode == idx {
			return true
		}
	}
	return false
}

// Samples returns the sample count of the render target rtIdx (as returned
// by CreateRenderTarget) declared by this pass.
func (b *Builder) Samples(rtIdx int32) uint32 {
	return b.fg.rts[rtIdx].sampleCount
}

// RenderTargetDescriptor returns the descriptor assembled for rtIdx so far.
func (b *Builder) RenderTargetDescriptor(rtIdx int32) backend.RenderTargetDescriptor {
	return b.fg.rts[rtIdx].descriptor
}
