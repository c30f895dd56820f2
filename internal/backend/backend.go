// Package backend declares the opaque GPU driver contract the frame graph
// consumes. The frame graph never creates a concrete texture or render
// target itself; it calls through Device at the first-use/last-use
// boundaries the compiler computes, and otherwise treats the returned
// handles as plain values.
//
// Descriptor and enum types are expressed with github.com/gogpu/gputypes so
// that a real wgpu-backed Device (as built by github.com/gogpu/gpucontext
// implementations) and the in-memory internal/fakebackend.Device satisfy the
// same interface without an adapter layer.
package backend

import "github.com/gogpu/gputypes"

// Texture is an opaque handle to a concrete backend texture. Its zero value
// is never returned by CreateTexture.
type Texture uint64

// RenderTarget is an opaque handle to a concrete backend render target.
type RenderTarget uint64

// TextureDescriptor is the immutable, structurally-comparable description of
// a concrete texture. Two descriptors with equal fields describe
// interchangeable textures as far as the frame graph's render-target
// pooling is concerned.
type TextureDescriptor struct {
	Width, Height, Depth uint32
	MipLevels            uint32
	SampleCount          uint32
	Format               gputypes.TextureFormat
	Usage                gputypes.TextureUsage
}

// AttachmentDescriptor describes one render-target attachment slot: what it
// loads and stores, and what it clears to when LoadOp is Clear.
type AttachmentDescriptor struct {
	Format     gputypes.TextureFormat
	LoadOp     gputypes.LoadOp
	StoreOp    gputypes.StoreOp
	ClearColor gputypes.Color
}

// RenderTargetDescriptor is the immutable, structurally-comparable
// description of a concrete render target: its attachment set, dimensions
// and sample count. Color holds up to 4 color attachments; a nil entry is
// an unused slot. Depth and Stencil are optional.
type RenderTargetDescriptor struct {
	Width, Height uint32
	SampleCount   uint32
	Color         [4]*AttachmentDescriptor
	Depth         *AttachmentDescriptor
	Stencil       *AttachmentDescriptor
}

// Device is the backend contract the frame graph drives. Every method may
// be called only between the compiler-assigned first-use and last-use
// boundaries of the resource it concerns; the frame graph never calls
// Create* eagerly and always pairs a Create* with exactly one Destroy* per
// non-imported entry.
type Device interface {
	CreateTexture(desc TextureDescriptor) (Texture, error)
	DestroyTexture(t Texture)

	CreateRenderTarget(desc RenderTargetDescriptor, attachments []Texture) (RenderTarget, error)
	DestroyRenderTarget(rt RenderTarget)

	// BeginRenderPass binds rt for drawing. discardStart is the set of
	// attachment slots (by index into desc.Color, plus depth/stencil) the
	// compiler determined need not be preserved from a prior frame.
	BeginRenderPass(rt RenderTarget, desc RenderTargetDescriptor, discardStart AttachmentMask)

	// EndRenderPass unbinds the current render target. discardEnd is the
	// set of attachment slots that have no later reader and so need not be
	// written back.
	EndRenderPass(discardEnd AttachmentMask)

	// Flush submits all commands recorded since the previous Flush.
	Flush()
}

// AttachmentMask is a bitset over render-target attachment slots: bits 0-3
// are color[0..3], bit 4 is depth, bit 5 is stencil.
type AttachmentMask uint8

const (
	AttachmentColor0 AttachmentMask = 1 << iota
	AttachmentColor1
	AttachmentColor2
	AttachmentColor3
	AttachmentDepth
	AttachmentStencil
)

// ColorAttachmentMask returns the mask bit for color attachment index i.
func ColorAttachmentMask(i int) AttachmentMask {
	return 1 << uint(i)
}
