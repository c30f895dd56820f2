package fg

import (
	"context"
	"sort"
)

// Compile runs the six-step compilation pipeline: alias resolution, initial
// refcount computation, cull propagation, lifetime assignment, render-target
// pooling, and discard-flag computation. It must be called exactly once per
// frame, after every pass has been declared and before Execute.
func (fg *FrameGraph) Compile(ctx context.Context) error {
	log := fg.logger(ctx)
	log.Debug("framegraph: compile starting", "passes", len(fg.passes)-1)

	fg.lastWarnings = nil

	fg.resolveAliases()
	fg.computeInitialRefCounts()
	fg.propagateCull(log)
	fg.assignLifetimes()
	fg.poolRenderTargets()
	fg.computeDiscardFlags()

	fg.compiled = true

	survivors := 0
	for _, p := range fg.passes[1:] {
		if !p.culled {
			survivors++
		}
	}
	log.Info("framegraph: compile finished", "survivors", survivors, "culled", len(fg.passes)-1-survivors)
	return nil
}

// resolveAliases is compile step 1. For each recorded MoveResource(from,
// to): every resourceNode currently pointing at to's entry, including to
// itself, is redirected onto from's entry. The writers of to's *original*
// entry (the one being superseded by the redirect) are disconnected, not
// the writers of from; see DESIGN.md for the reasoning.
func (fg *FrameGraph) resolveAliases() {
	for _, al := range fg.aliases {
		fromEntry := fg.resNodes[al.fromNode].entry
		toEntry := fg.resNodes[al.toNode].entry
		if fromEntry == toEntry {
			continue
		}

		// Reads declared against to's entry now depend on from's content,
		// not on to's now-orphaned producer. Fold their accumulated
		// refcount onto from's current node so the dependency still
		// protects from's writer from cull, and mark every node in to's
		// chain disconnected so it is never independently queued or
		// decremented once the cull pass runs.
		var carried int32
		for _, n := range fg.resNodes {
			if n.entry != toEntry {
				continue
			}
			carried += n.readRefCount
			n.readRefCount = 0
			n.disconnected = true
			n.entry = fromEntry
		}
		fg.resNodes[al.fromNode].readRefCount += carried
	}
}

// computeInitialRefCounts is compile step 2: every node's refcount is its
// declared-read count (already accumulated at declaration time by
// Builder.Read/Builder.Write/FrameGraph.Present, and adjusted by alias
// resolution); every pass's refcount is the number of
// its writes to entries not disconnected by alias resolution, plus one if
// it has a side effect.
func (fg *FrameGraph) computeInitialRefCounts() {
	for _, p := range fg.passes[1:] {
		p.refCount = 0
		if p.hasSideEffect {
			p.refCount++
		}
		for _, w := range p.writes {
			if !fg.resNodes[w].disconnected {
				p.refCount++
			}
		}
	}
}

// propagateCull is compile step 3. It is a worklist algorithm over nodes
// with zero refcount: popping one decrements its writer pass's refcount;
// when a pass's refcount reaches zero (and it has no side effect) every
// node it reads has its refcount decremented in turn, possibly queuing
// more nodes. Passes whose *initial* refcount is already zero are seeded
// directly, since nothing would otherwise trigger their cascade.
func (fg *FrameGraph) propagateCull(log slogLoggerShim) {
	var queue []int32
	for i, n := range fg.resNodes {
		if i == 0 {
			continue
		}
		if n.readRefCount == 0 {
			queue = append(queue, int32(i))
		}
	}

	cullPass := func(p *passNode) {
		if p.culled || p.hasSideEffect {
			return
		}
		p.culled = true
		for _, r := range p.reads {
			n := fg.resNodes[r.node]
			n.readRefCount--
			if n.readRefCount <= 0 {
				queue = append(queue, r.node)
			}
		}
	}

	for _, p := range fg.passes[1:] {
		if p.refCount == 0 && !p.hasSideEffect {
			cullPass(p)
		}
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		n := fg.resNodes[idx]
		if n.writerPass < 0 || n.disconnected {
			continue
		}
		p := fg.passes[n.writerPass]
		if p.culled {
			continue
		}
		p.refCount--
		if p.refCount <= 0 {
			cullPass(p)
		}
	}

	var survivingWithZero []string
	for _, p := range fg.passes[1:] {
		if !p.culled && p.refCount <= 0 && !p.hasSideEffect {
			survivingWithZero = append(survivingWithZero, p.name)
		}
	}
	if len(survivingWithZero) > 0 {
		sort.Strings(survivingWithZero)
		w := &CycleWarning{Passes: survivingWithZero}
		fg.lastWarnings = append(fg.lastWarnings, w)
		log.Warn("framegraph: "+w.Error(), "passes", survivingWithZero)
	}
}

// assignLifetimes is compile step 4: walk surviving passes in declaration
// order, extending each referenced entry's [firstUse, lastUse] interval.
func (fg *FrameGraph) assignLifetimes() {
	for pi, p := range fg.passes[1:] {
		passIdx := int32(pi + 1)
		if p.culled {
			continue
		}
		for _, r := range p.reads {
			fg.entries[fg.resNodes[r.node].entry].touch(passIdx)
		}
		for _, w := range p.writes {
			fg.entries[fg.resNodes[w].entry].touch(passIdx)
		}
	}
}

// poolRenderTargets is compile step 5. Two virtual render targets may share
// one concrete pool slot iff their descriptors are structurally equal and
// their owning passes' lifetimes do not overlap. Slot assignment here is
// descriptor/lifetime only; a reused slot's actual attachment textures
// commonly differ between owners, and bindRenderTargets recreates the
// concrete render target against the current owner's attachments whenever
// they've changed since the slot was last bound.
func (fg *FrameGraph) poolRenderTargets() {
	for _, p := range fg.passes[1:] {
		if p.culled {
			continue
		}
		for _, rtIdx := range p.renderTargets {
			vrt := fg.rts[rtIdx]
			if vrt.imported {
				continue
			}
			passIdx := vrt.pass
			var best *concreteRenderTarget
			for _, c := range fg.concreteRTs {
				if !renderTargetDescriptorsEqual(c.desc, vrt.descriptor) {
					continue
				}
				if c.lastOwnerLastUse >= passIdx {
					continue
				}
				best = c
				break
			}
			if best == nil {
				best = &concreteRenderTarget{
					id:   int32(len(fg.concreteRTs)),
					desc: vrt.descriptor,
				}
				fg.concreteRTs = append(fg.concreteRTs, best)
			}
			best.lastOwnerLastUse = passIdx
			best.usageCount++
			vrt.concrete = best.id
		}
	}
}

// computeDiscardFlags is compile step 6. Every non-imported virtual render
// target is its own pass's distinct declaration, so discardStart is
// computed per vrt rather than once per pooled slot: an attachment slot is
// discard-eligible at start iff its owning pass did not also declare a Read
// of the same entry (i.e. it is pure overwrite, not read-modify-write).
// discardEnd is computed at the concrete slot's final owner's pass: a slot
// is discard-eligible at end iff the backing entry's lastUse is exactly
// that pass (no later reader anywhere in the surviving graph). Imported
// render targets keep their caller-supplied flags.
func (fg *FrameGraph) computeDiscardFlags() {
	type slot struct {
		node int32
		bit  uint8
	}

	for i, vrt := range fg.rts {
		if i == 0 {
			continue
		}
		if vrt.imported {
			vrt.discardStart = vrt.importedDiscardStart
			vrt.discardEnd = vrt.importedDiscardEnd
			continue
		}
		if vrt.concrete < 0 {
			continue
		}
		pass := fg.passes[vrt.pass]
		slots := []slot{}
		for ci, n := range vrt.colorNodes {
			if n >= 0 {
				slots = append(slots, slot{node: n, bit: uint8(ci)})
			}
		}
		if vrt.depthNode >= 0 {
			slots = append(slots, slot{node: vrt.depthNode, bit: 4})
		}
		if vrt.stencilNode >= 0 {
			slots = append(slots, slot{node: vrt.stencilNode, bit: 5})
		}

		for _, s := range slots {
			if !passReadsEntry(pass, fg.resNodes[s.node].entry, fg) {
				vrt.discardStart |= 1 << s.bit
			}
		}

		cr := fg.concreteRTs[vrt.concrete]
		if cr.lastOwnerLastUse == vrt.pass {
			for _, s := range slots {
				entry := fg.entries[fg.resNodes[s.node].entry]
				if entry.lastUse == vrt.pass {
					vrt.discardEnd |= 1 << s.bit
				}
			}
		}
	}
}

// passReadsEntry reports whether pass declared a Read against any node
// backed by entry (post alias-resolution).
func passReadsEntry(p *passNode, entry int32, fg *FrameGraph) bool {
	for _, r := range p.reads {
		if fg.resNodes[r.node].entry == entry {
			return true
		}
	}
	return false
}

// slogLoggerShim narrows the logger interface Compile needs to the methods
// used here, so tests can stub it without pulling in log/slog directly.
type slogLoggerShim interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}
