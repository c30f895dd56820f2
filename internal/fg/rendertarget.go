package fg

import "github.com/vk/framegraph/internal/backend"

// RenderTargetAttachments names the attachment slots of a virtual render
// target. Every non-nil handle must already have been passed to Read or
// Write in the same pass.
type RenderTargetAttachments struct {
	Color   [4]TextureHandle
	Depth   TextureHandle
	Stencil TextureHandle
}

// virtualRenderTarget is the per-pass declared render target. It is
// resolved to a concreteRenderTarget by the compiler's render-target
// pooling step.
type virtualRenderTarget struct {
	id   int32
	name string
	pass int32 // owning pass index

	colorNodes   [4]int32 // resourceNode index per color slot, -1 if unused
	depthNode    int32
	stencilNode  int32
	clearFlags   backend.AttachmentMask

	width, height uint32
	sampleCount   uint32

	imported              bool
	importedConcrete      backend.RenderTarget
	importedDiscardStart  backend.AttachmentMask
	importedDiscardEnd    backend.AttachmentMask

	// descriptor is assembled by Builder.CreateRenderTarget (or
	// FrameGraph.ImportRenderTarget); concrete, discardStart and discardEnd
	// are assigned by compile:
	descriptor   backend.RenderTargetDescriptor
	concrete     int32 // index into FrameGraph.concreteRTs, -1 until pooled
	discardStart backend.AttachmentMask
	discardEnd   backend.AttachmentMask
}

func newVirtualRenderTarget(id, pass int32, name string) *virtualRenderTarget {
	return &virtualRenderTarget{
		id:          id,
		pass:        pass,
		name:        name,
		colorNodes:  [4]int32{-1, -1, -1, -1},
		depthNode:   -1,
		stencilNode: -1,
		concrete:    -1,
	}
}

// concreteRenderTarget is a pool slot: a concrete backend render-target
// object paired with the descriptor it was created for, bookkeeping needed
// to decide whether a later virtual RT may reuse the slot, and the
// attachment identity it was last created against.
type concreteRenderTarget struct {
	id      int32
	desc    backend.RenderTargetDescriptor
	handle  backend.RenderTarget
	created bool

	// attachmentTextures, depthTexture and stencilTexture record the
	// concrete textures the handle was last created against. A pooled
	// slot's owners commonly resolve to different concrete textures
	// between passes, so bindRenderTargets compares the current owner's
	// resolved attachments against these before reusing the handle,
	// recreating it on any mismatch.
	attachmentTextures [4]backend.Texture
	depthTexture       backend.Texture
	stencilTexture     backend.Texture

	lastOwnerLastUse int32 // last-use pass index of the most recent owning virtual RT
	usageCount       int32
}
