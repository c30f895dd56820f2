package fg

import (
	"context"
	"fmt"

	"github.com/vk/framegraph/internal/backend"
)

// Execute runs every surviving pass, in declaration order, against device.
// Resources are instantiated just before the pass that first uses them and
// destroyed just after the pass that last uses them; non-imported concrete
// render targets follow the same rule using the pooled lifetime computed by
// Compile. Execute must run after exactly one Compile call.
//
// Passes run in a single loop with no goroutines or channel hand-off:
// per-frame build and execute are single-threaded.
func (fg *FrameGraph) Execute(ctx context.Context, device backend.Device) (err error) {
	if !fg.compiled {
		return fmt.Errorf("framegraph: Execute called before Compile")
	}

	traceID := frameTraceID()
	log := fg.logger(ctx).With("frame_trace_id", traceID)
	log.Debug("framegraph: execute starting")

	cleanup := newCleanupStack()
	defer cleanup.runAll()

	defer func() {
		if err != nil {
			log.Warn("framegraph: execute failed, tearing down instantiated resources", "error", err)
		}
	}()

	for passIdx := int32(1); passIdx < int32(len(fg.passes)); passIdx++ {
		p := fg.passes[passIdx]
		if p.culled {
			continue
		}

		if err = fg.instantiateForPass(device, passIdx, cleanup); err != nil {
			return fmt.Errorf("framegraph: instantiating resources for pass %q: %w", p.name, err)
		}

		boundRTs, err2 := fg.bindRenderTargets(device, passIdx, p)
		if err2 != nil {
			return fmt.Errorf("framegraph: binding render targets for pass %q: %w", p.name, err2)
		}

		log.Debug("framegraph: running pass", "pass", p.name)
		if p.execute != nil {
			if runErr := p.execute(ctx, &Resources{fg: fg, pass: p}); runErr != nil {
				err = fmt.Errorf("pass %q: %w", p.name, runErr)
				fg.unbindRenderTargets(device, boundRTs)
				return err
			}
		}
		fg.unbindRenderTargets(device, boundRTs)

		fg.destroyAfterPass(device, passIdx, cleanup)
	}

	device.Flush()
	log.Debug("framegraph: execute finished")
	return nil
}

// instantiateForPass creates the concrete backend texture for every entry
// whose firstUse is exactly passIdx.
func (fg *FrameGraph) instantiateForPass(device backend.Device, passIdx int32, cleanup *cleanupStack) error {
	for _, e := range fg.entries[1:] {
		if e.imported || e.instantiated || e.culled() || e.firstUse != passIdx {
			continue
		}
		tex, err := device.CreateTexture(e.desc)
		if err != nil {
			return fmt.Errorf("creating texture %q: %w", e.name, err)
		}
		e.concreteTex = tex
		e.instantiated = true
		entry := e
		cleanup.push(func() {
			if entry.instantiated {
				device.DestroyTexture(entry.concreteTex)
				entry.instantiated = false
			}
		})
	}
	return nil
}

// destroyAfterPass destroys every entry whose lastUse is exactly passIdx,
// and every pooled concrete render target whose final owner's lastUse is
// exactly passIdx.
func (fg *FrameGraph) destroyAfterPass(device backend.Device, passIdx int32, cleanup *cleanupStack) {
	for _, e := range fg.entries[1:] {
		if e.imported || !e.instantiated || e.lastUse != passIdx {
			continue
		}
		device.DestroyTexture(e.concreteTex)
		e.instantiated = false
	}
	for _, cr := range fg.concreteRTs {
		if cr.created && cr.lastOwnerLastUse == passIdx {
			device.DestroyRenderTarget(cr.handle)
			cr.created = false
		}
	}
}

type boundRT struct {
	mask backend.AttachmentMask
}

// bindRenderTargets binds every render target this pass declared. A pooled
// concrete render target is created on first use; on later uses, if the
// current owner's resolved attachments differ from what the slot's handle
// was last created against (a prior owner's textures have since been
// destroyed and replaced by a new owner's), the handle is destroyed and
// recreated against the current attachments before binding.
func (fg *FrameGraph) bindRenderTargets(device backend.Device, passIdx int32, p *passNode) ([]boundRT, error) {
	var bound []boundRT
	for _, rtIdx := range p.renderTargets {
		vrt := fg.rts[rtIdx]

		var handle backend.RenderTarget
		var desc backend.RenderTargetDescriptor
		var discardStart, discardEnd backend.AttachmentMask

		if vrt.imported {
			handle, desc = vrt.importedConcrete, vrt.descriptor
			discardStart, discardEnd = vrt.discardStart, vrt.discardEnd
		} else {
			cr := fg.concreteRTs[vrt.concrete]
			color, depth, stencil := fg.resolveAttachmentIdentity(vrt)
			if !cr.created || color != cr.attachmentTextures || depth != cr.depthTexture || stencil != cr.stencilTexture {
				if cr.created {
					device.DestroyRenderTarget(cr.handle)
				}
				h, err := device.CreateRenderTarget(cr.desc, nonEmptyColorTextures(vrt, color))
				if err != nil {
					return nil, fmt.Errorf("creating render target %q: %w", vrt.name, err)
				}
				cr.handle = h
				cr.created = true
				cr.attachmentTextures = color
				cr.depthTexture = depth
				cr.stencilTexture = stencil
			}
			handle, desc = cr.handle, cr.desc
			discardStart, discardEnd = vrt.discardStart, vrt.discardEnd
		}

		device.BeginRenderPass(handle, desc, discardStart)
		bound = append(bound, boundRT{mask: discardEnd})
	}
	return bound, nil
}

func (fg *FrameGraph) unbindRenderTargets(device backend.Device, bound []boundRT) {
	for _, b := range bound {
		device.EndRenderPass(b.mask)
	}
}

// resolveAttachmentIdentity resolves the instantiated concrete textures
// backing vrt's color, depth and stencil attachments, in color-slot order,
// with an unused color slot or missing depth/stencil attachment left at
// the zero backend.Texture. The result identifies which concrete textures
// a pooled render target's handle was created against.
func (fg *FrameGraph) resolveAttachmentIdentity(vrt *virtualRenderTarget) (color [4]backend.Texture, depth, stencil backend.Texture) {
	for i, n := range vrt.colorNodes {
		if n < 0 {
			continue
		}
		color[i] = fg.entries[fg.resNodes[n].entry].concreteTex
	}
	if vrt.depthNode >= 0 {
		depth = fg.entries[fg.resNodes[vrt.depthNode].entry].concreteTex
	}
	if vrt.stencilNode >= 0 {
		stencil = fg.entries[fg.resNodes[vrt.stencilNode].entry].concreteTex
	}
	return color, depth, stencil
}

// nonEmptyColorTextures returns color's used slots as a slice, in order,
// skipping vrt's unused color slots.
func nonEmptyColorTextures(vrt *virtualRenderTarget, color [4]backend.Texture) []backend.Texture {
	var textures []backend.Texture
	for i, n := range vrt.colorNodes {
		if n < 0 {
			continue
		}
		textures = append(textures, color[i])
	}
	return textures
}

// cleanupStack is a LIFO list of deferred teardown actions, run in reverse
// order if Execute exits early, so partially instantiated state is unwound
// on error.
type cleanupStack struct {
	fns []func()
}

func newCleanupStack() *cleanupStack {
	return &cleanupStack{}
}

func (c *cleanupStack) push(fn func()) {
	c.fns = append(c.fns, fn)
}

// runAll is registered once via defer in Execute. In the success path every
// resource has already been destroyed at its last-use boundary, so this is
// a no-op; it only matters when Execute returns early on error, at which
// point any resource instantiated but not yet destroyed is torn down here.
func (c *cleanupStack) runAll() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
}
