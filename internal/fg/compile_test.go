package fg

import (
	"context"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/vk/framegraph/internal/backend"
)

func texDesc(w, h uint32) backend.TextureDescriptor {
	return backend.TextureDescriptor{
		Width: w, Height: h, Depth: 1, MipLevels: 1, SampleCount: 1,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
	}
}

func mustWrite(t *testing.T, b *Builder, h TextureHandle) TextureHandle {
	t.Helper()
	out, err := b.Write(h)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return out
}

// A pass that creates and writes a texture nothing ever reads or presents
// is culled, and so is its entry.
func TestCompile_UnreferencedPassIsCulled(t *testing.T) {
	g := New()
	var unused TextureHandle
	p := g.AddPass("orphan", func(b *Builder) {
		unused = b.CreateTexture("orphan-tex", texDesc(64, 64))
		unused = mustWrite(t, b, unused)
	}, nil)

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !p.Culled() {
		t.Fatalf("expected orphan pass to be culled")
	}
	if !g.entries[g.resNodes[unused.nodeIndex()].entry].culled() {
		t.Fatalf("expected orphan entry to be culled")
	}
}

// A pass pinned by a side effect always survives even with zero declared
// reads of its writes.
func TestCompile_SideEffectPassSurvives(t *testing.T) {
	g := New()
	imported := g.Import("swapchain", texDesc(64, 64), 1)
	p := g.AddPass("present", func(b *Builder) {
		if _, err := b.Write(imported); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}, nil)

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if p.Culled() {
		t.Fatalf("expected side-effecting pass to survive")
	}
}

// A.write(x0)->x1; B.write(x1)->x2; present(x2). Both A and B survive; x0
// is stale after B.
func TestCompile_WriteChainBothPassesSurvive(t *testing.T) {
	g := New()
	var x0, x1, x2 TextureHandle
	pa := g.AddPass("A", func(b *Builder) {
		x0 = b.CreateTexture("x", texDesc(64, 64))
		x1 = mustWrite(t, b, x0)
	}, nil)
	pb := g.AddPass("B", func(b *Builder) {
		x2 = mustWrite(t, b, x1)
	}, nil)
	g.Present(x2)

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if pa.Culled() {
		t.Fatalf("expected A to survive")
	}
	if pb.Culled() {
		t.Fatalf("expected B to survive")
	}
	if g.IsValid(x0) {
		t.Fatalf("expected x0 to be invalid after B re-versioned the entry")
	}
	if !g.IsValid(x2) {
		t.Fatalf("expected x2 (the presented handle) to remain valid")
	}
}

// A.write(x0)->x1; B.write(y0)->y1; moveResource(y1, x1); C.read(x1);
// present via C. A is disconnected and culled; C reads what B produced.
func TestCompile_MoveResourceDisconnectsOriginalWriter(t *testing.T) {
	g := New()
	var x, y TextureHandle
	pa := g.AddPass("A", func(b *Builder) {
		x = b.CreateTexture("x", texDesc(64, 64))
		x = mustWrite(t, b, x)
	}, nil)
	pb := g.AddPass("B", func(b *Builder) {
		y = b.CreateTexture("y", texDesc(64, 64))
		y = mustWrite(t, b, y)
	}, nil)

	if err := g.MoveResource(y, x); err != nil {
		t.Fatalf("MoveResource: %v", err)
	}

	pc := g.AddPass("C", func(b *Builder) {
		if err := b.Read(x); err != nil {
			t.Fatalf("Read: %v", err)
		}
		b.SideEffect()
	}, nil)
	g.Present(x)

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !pa.Culled() {
		t.Fatalf("expected A to be disconnected and culled")
	}
	if pb.Culled() {
		t.Fatalf("expected B to survive")
	}
	if pc.Culled() {
		t.Fatalf("expected C to survive")
	}
}

// Two passes produce textures with identical descriptors and
// non-overlapping lifetimes; the compiler reuses one concrete render
// target for both.
func TestCompile_PoolsNonOverlappingRenderTargets(t *testing.T) {
	g := New()
	var t1, t2 TextureHandle
	var rt1, rt2 int32

	p1 := g.AddPass("produce-t1", func(b *Builder) {
		t1 = b.CreateTexture("t1", texDesc(256, 256))
		t1 = mustWrite(t, b, t1)
		var err error
		rt1, err = b.CreateRenderTarget("rt1", RenderTargetAttachments{Color: [4]TextureHandle{t1}}, backend.AttachmentColor0, gputypes.Color{})
		if err != nil {
			t.Fatalf("CreateRenderTarget: %v", err)
		}
		b.SideEffect()
	}, nil)

	p2 := g.AddPass("produce-t2", func(b *Builder) {
		t2 = b.CreateTexture("t2", texDesc(256, 256))
		t2 = mustWrite(t, b, t2)
		var err error
		rt2, err = b.CreateRenderTarget("rt2", RenderTargetAttachments{Color: [4]TextureHandle{t2}}, backend.AttachmentColor0, gputypes.Color{})
		if err != nil {
			t.Fatalf("CreateRenderTarget: %v", err)
		}
		b.SideEffect()
	}, nil)

	g.AddPass("present", func(b *Builder) {
		if err := b.Read(t2); err != nil {
			t.Fatalf("Read: %v", err)
		}
		b.SideEffect()
	}, nil)
	g.Present(t2)

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if p1.Culled() || p2.Culled() {
		t.Fatalf("expected both render-target-producing passes to survive")
	}
	if g.rts[rt1].concrete != g.rts[rt2].concrete {
		t.Fatalf("expected t1 and t2's render targets to share a pooled concrete slot, got %d and %d",
			g.rts[rt1].concrete, g.rts[rt2].concrete)
	}
}

// A chain of passes with no side effect and no present anywhere down the
// line is fully culled transitively, with Compile still reporting success:
// cull propagation is never itself a fatal condition.
func TestCompile_TransitiveDeadChainFullyCulled(t *testing.T) {
	g := New()
	var a, b TextureHandle
	pa := g.AddPass("A", func(bld *Builder) {
		a = bld.CreateTexture("a", texDesc(32, 32))
		a = mustWrite(t, bld, a)
	}, nil)
	pb := g.AddPass("B", func(bld *Builder) {
		if err := bld.Read(a); err != nil {
			t.Fatalf("Read: %v", err)
		}
		b = bld.CreateTexture("b", texDesc(32, 32))
		b = mustWrite(t, bld, b)
	}, nil)
	_ = b

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !pa.Culled() || !pb.Culled() {
		t.Fatalf("expected both A and B to be culled, got A=%v B=%v", pa.Culled(), pb.Culled())
	}
	if len(g.LastCompileWarnings()) != 0 {
		t.Fatalf("expected no compile warnings for a fully-resolved dead chain, got %v", g.LastCompileWarnings())
	}
}

// For all handles h returned by write, the prior handle is no longer
// valid, including the very first write.
func TestCompile_FirstWriteInvalidatesPriorHandle(t *testing.T) {
	g := New()
	var v0, v1 TextureHandle
	g.AddPass("A", func(b *Builder) {
		v0 = b.CreateTexture("a", texDesc(32, 32))
		v1 = mustWrite(t, b, v0)
	}, nil)

	if g.IsValid(v0) {
		t.Fatalf("expected v0 to be invalidated by the first write")
	}
	if !g.IsValid(v1) {
		t.Fatalf("expected v1 to be valid immediately after write")
	}
}

// After a move, the `from` handle is invalid immediately at declaration
// time, before Compile even runs.
func TestCompile_MoveInvalidatesFromImmediately(t *testing.T) {
	g := New()
	var x, y TextureHandle
	g.AddPass("A", func(b *Builder) {
		x = b.CreateTexture("x", texDesc(32, 32))
		x = mustWrite(t, b, x)
	}, nil)
	g.AddPass("B", func(b *Builder) {
		y = b.CreateTexture("y", texDesc(32, 32))
		y = mustWrite(t, b, y)
	}, nil)

	if err := g.MoveResource(y, x); err != nil {
		t.Fatalf("MoveResource: %v", err)
	}
	if g.IsValid(y) {
		t.Fatalf("expected the move's from handle to be invalid immediately, before Compile")
	}
	if !g.IsValid(x) {
		t.Fatalf("expected the move's to handle to remain valid")
	}
}

// Round-trip property: calling Compile twice in a row without redeclaring
// anything in between is idempotent.
func TestCompile_IsIdempotent(t *testing.T) {
	g := New()
	var x TextureHandle
	p := g.AddPass("A", func(b *Builder) {
		x = b.CreateTexture("x", texDesc(32, 32))
		x = mustWrite(t, b, x)
	}, nil)
	g.Present(x)

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("first Compile: %v", err)
	}
	firstCulled := p.Culled()

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("second Compile: %v", err)
	}
	if p.Culled() != firstCulled {
		t.Fatalf("expected repeated Compile to leave cull decisions unchanged, got %v then %v", firstCulled, p.Culled())
	}
}

// A pure-overwrite render target attachment (no Read of the same entry in
// the owning pass) is discard-eligible at start; a pooled slot's second
// owner gets its own discardStart computed too, not just the slot's first
// owner.
func TestCompile_PooledOwnersBothGetDiscardStart(t *testing.T) {
	g := New()
	var t1, t2 TextureHandle
	var rt1, rt2 int32

	g.AddPass("produce-t1", func(b *Builder) {
		t1 = b.CreateTexture("t1", texDesc(256, 256))
		t1 = mustWrite(t, b, t1)
		var err error
		rt1, err = b.CreateRenderTarget("rt1", RenderTargetAttachments{Color: [4]TextureHandle{t1}}, backend.AttachmentColor0, gputypes.Color{})
		if err != nil {
			t.Fatalf("CreateRenderTarget: %v", err)
		}
		b.SideEffect()
	}, nil)

	g.AddPass("produce-t2", func(b *Builder) {
		t2 = b.CreateTexture("t2", texDesc(256, 256))
		t2 = mustWrite(t, b, t2)
		var err error
		rt2, err = b.CreateRenderTarget("rt2", RenderTargetAttachments{Color: [4]TextureHandle{t2}}, backend.AttachmentColor0, gputypes.Color{})
		if err != nil {
			t.Fatalf("CreateRenderTarget: %v", err)
		}
		b.SideEffect()
	}, nil)

	g.AddPass("present", func(b *Builder) {
		if err := b.Read(t2); err != nil {
			t.Fatalf("Read: %v", err)
		}
		b.SideEffect()
	}, nil)
	g.Present(t2)

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if g.rts[rt1].concrete != g.rts[rt2].concrete {
		t.Fatalf("expected rt1 and rt2 to share a pooled concrete slot")
	}
	if g.rts[rt1].discardStart&backend.AttachmentColor0 == 0 {
		t.Fatalf("expected rt1's pure-overwrite color slot to be discard-eligible at start")
	}
	if g.rts[rt2].discardStart&backend.AttachmentColor0 == 0 {
		t.Fatalf("expected rt2 (the pooled slot's second owner) to also get discardStart computed")
	}
}

// An attachment read by the same pass that also declares it (read-modify-
// write) is not discard-eligible at start.
func TestCompile_DiscardStartExcludesReadModifyWrite(t *testing.T) {
	g := New()
	var x TextureHandle
	var rtIdx int32

	g.AddPass("clear-then-blend", func(b *Builder) {
		x = mustWrite(t, b, b.CreateTexture("x", texDesc(64, 64)))
		if err := b.ReadAsAttachment(x); err != nil {
			t.Fatalf("ReadAsAttachment: %v", err)
		}
		var err error
		rtIdx, err = b.CreateRenderTarget("rt", RenderTargetAttachments{Color: [4]TextureHandle{x}}, backend.AttachmentColor0, gputypes.Color{})
		if err != nil {
			t.Fatalf("CreateRenderTarget: %v", err)
		}
		b.SideEffect()
	}, nil)

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if g.rts[rtIdx].discardStart&backend.AttachmentColor0 != 0 {
		t.Fatalf("expected a read-modify-write attachment to not be discard-eligible at start")
	}
}

// A render target's color attachment whose backing entry has no reader
// after the owning pass is discard-eligible at end.
func TestCompile_DiscardEndSetWhenNoLaterReader(t *testing.T) {
	g := New()
	var x TextureHandle
	var rtIdx int32

	g.AddPass("A", func(b *Builder) {
		x = mustWrite(t, b, b.CreateTexture("x", texDesc(64, 64)))
		var err error
		rtIdx, err = b.CreateRenderTarget("rt", RenderTargetAttachments{Color: [4]TextureHandle{x}}, backend.AttachmentColor0, gputypes.Color{})
		if err != nil {
			t.Fatalf("CreateRenderTarget: %v", err)
		}
		b.SideEffect()
	}, nil)

	if err := g.Compile(context.Background()); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if g.rts[rtIdx].discardEnd&backend.AttachmentColor0 == 0 {
		t.Fatalf("expected the attachment's color slot to be discard-eligible at end")
	}
}
