package fg

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
	"github.com/vk/framegraph/internal/backend"
)

func TestBuilder_WriteOfOutOfVersionHandleFails(t *testing.T) {
	g := New()
	var stale TextureHandle
	g.AddPass("A", func(b *Builder) {
		stale = b.CreateTexture("x", texDesc(32, 32))
		if _, err := b.Write(stale); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}, nil)

	g.AddPass("B", func(b *Builder) {
		if _, err := b.Write(stale); err == nil {
			t.Fatalf("expected Write of the superseded v0 handle to fail")
		}
	}, nil)
}

func TestBuilder_ReadOfOutOfVersionHandleFails(t *testing.T) {
	g := New()
	var stale TextureHandle
	g.AddPass("A", func(b *Builder) {
		stale = b.CreateTexture("x", texDesc(32, 32))
		if _, err := b.Write(stale); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}, nil)

	g.AddPass("B", func(b *Builder) {
		if err := b.Read(stale); err == nil {
			t.Fatalf("expected Read of the superseded v0 handle to fail")
		}
	}, nil)
}

func TestBuilder_RenderTargetAttachmentMustBeDeclaredInSamePass(t *testing.T) {
	g := New()
	var scene TextureHandle
	g.AddPass("A", func(b *Builder) {
		scene = b.CreateTexture("scene", texDesc(32, 32))
		scene = mustWrite(t, b, scene)
	}, nil)

	g.AddPass("B", func(b *Builder) {
		_, err := b.CreateRenderTarget("rt", RenderTargetAttachments{Color: [4]TextureHandle{scene}}, 0, gputypes.Color{})
		if err == nil {
			t.Fatalf("expected CreateRenderTarget to reject an attachment not declared in this pass")
		}
	}, nil)
}

func TestBuilder_RenderTargetAttachmentDimensionMismatchFails(t *testing.T) {
	g := New()
	g.AddPass("A", func(b *Builder) {
		small := mustWrite(t, b, b.CreateTexture("small", texDesc(32, 32)))
		big := mustWrite(t, b, b.CreateTexture("big", texDesc(64, 64)))
		_, err := b.CreateRenderTarget("rt", RenderTargetAttachments{Color: [4]TextureHandle{small, big}}, 0, gputypes.Color{})
		if err == nil {
			t.Fatalf("expected CreateRenderTarget to reject attachments with mismatched dimensions")
		}
	}, nil)
}

func TestBuilder_ReadAsAttachmentAndIsAttachment(t *testing.T) {
	g := New()
	var scene TextureHandle
	g.AddPass("A", func(b *Builder) {
		scene = mustWrite(t, b, b.CreateTexture("scene", texDesc(32, 32)))
	}, nil)

	g.AddPass("B", func(b *Builder) {
		if err := b.ReadAsAttachment(scene); err != nil {
			t.Fatalf("ReadAsAttachment: %v", err)
		}
		if b.IsAttachment(scene) {
			t.Fatalf("expected IsAttachment to be false before any CreateRenderTarget call in this pass")
		}
		if _, err := b.CreateRenderTarget("rt", RenderTargetAttachments{Color: [4]TextureHandle{scene}}, 0, gputypes.Color{}); err != nil {
			t.Fatalf("CreateRenderTarget: %v", err)
		}
		if !b.IsAttachment(scene) {
			t.Fatalf("expected scene to be recorded as an attachment of the render target just created")
		}
	}, nil)
}

func TestBuilder_CreateRenderTargetAssemblesExpectedDescriptor(t *testing.T) {
	g := New()
	g.AddPass("A", func(b *Builder) {
		scene := mustWrite(t, b, b.CreateTexture("scene", texDesc(128, 64)))
		rtIdx, err := b.CreateRenderTarget("rt", RenderTargetAttachments{Color: [4]TextureHandle{scene}}, backend.AttachmentColor0, gputypes.Color{R: 1})
		if err != nil {
			t.Fatalf("CreateRenderTarget: %v", err)
		}

		want := backend.RenderTargetDescriptor{
			Width: 128, Height: 64, SampleCount: 1,
			Color: [4]*backend.AttachmentDescriptor{
				{Format: gputypes.TextureFormatRGBA8Unorm, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore, ClearColor: gputypes.Color{R: 1}},
			},
		}
		got := b.RenderTargetDescriptor(rtIdx)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("unexpected render target descriptor (-want +got):\n%s", diff)
		}
	}, nil)
}

func TestFrameGraph_ImportReturnsInstantiatedEntry(t *testing.T) {
	g := New()
	imported := g.Import("swapchain", texDesc(64, 64), backend.Texture(7))
	entry := g.entries[g.resNodes[imported.nodeIndex()].entry]
	if !entry.imported || !entry.instantiated || entry.concreteTex != 7 {
		t.Fatalf("expected Import to return an already-instantiated imported entry wrapping the given concrete handle")
	}
}
