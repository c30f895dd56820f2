package fg

import (
	"github.com/vk/framegraph/internal/backend"
	"github.com/zclconf/go-cty/cty"
)

// Descriptor equality backs the render-target pooling rule: two virtual
// render targets may share one concrete entry iff their descriptors are
// structurally equal. Rather than hand-roll a recursive comparison,
// descriptors are projected into a cty.Value and compared with RawEquals,
// the same content-addressable equality zclconf/go-cty gives HCL-based
// manifest validators comparing declared vs. inferred types.

var attachmentObjType = cty.Object(map[string]cty.Type{
	"format":      cty.Number,
	"load_op":     cty.Number,
	"store_op":    cty.Number,
	"clear_color": cty.Object(map[string]cty.Type{"r": cty.Number, "g": cty.Number, "b": cty.Number, "a": cty.Number}),
})

func attachmentCtyValue(a *backend.AttachmentDescriptor) cty.Value {
	if a == nil {
		return cty.NullVal(attachmentObjType)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"format":   cty.NumberIntVal(int64(a.Format)),
		"load_op":  cty.NumberIntVal(int64(a.LoadOp)),
		"store_op": cty.NumberIntVal(int64(a.StoreOp)),
		"clear_color": cty.ObjectVal(map[string]cty.Value{
			"r": cty.NumberFloatVal(float64(a.ClearColor.R)),
			"g": cty.NumberFloatVal(float64(a.ClearColor.G)),
			"b": cty.NumberFloatVal(float64(a.ClearColor.B)),
			"a": cty.NumberFloatVal(float64(a.ClearColor.A)),
		}),
	})
}

// textureDescriptorCtyValue projects a backend.TextureDescriptor.
func textureDescriptorCtyValue(d backend.TextureDescriptor) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"width":        cty.NumberIntVal(int64(d.Width)),
		"height":       cty.NumberIntVal(int64(d.Height)),
		"depth":        cty.NumberIntVal(int64(d.Depth)),
		"mip_levels":   cty.NumberIntVal(int64(d.MipLevels)),
		"sample_count": cty.NumberIntVal(int64(d.SampleCount)),
		"format":       cty.NumberIntVal(int64(d.Format)),
		"usage":        cty.NumberIntVal(int64(d.Usage)),
	})
}

// textureDescriptorsEqual reports whether two texture descriptors are
// structurally equal.
func textureDescriptorsEqual(a, b backend.TextureDescriptor) bool {
	return textureDescriptorCtyValue(a).RawEquals(textureDescriptorCtyValue(b))
}

// renderTargetDescriptorCtyValue projects a backend.RenderTargetDescriptor.
// It does not reflect resolved attachment textures: two virtual render
// targets with equal descriptors may still resolve to different concrete
// textures between owners of the same pooled slot, which bindRenderTargets
// accounts for separately at bind time.
func renderTargetDescriptorCtyValue(d backend.RenderTargetDescriptor) cty.Value {
	color := make([]cty.Value, len(d.Color))
	for i, a := range d.Color {
		color[i] = attachmentCtyValue(a)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"width":        cty.NumberIntVal(int64(d.Width)),
		"height":       cty.NumberIntVal(int64(d.Height)),
		"sample_count": cty.NumberIntVal(int64(d.SampleCount)),
		"color":        cty.TupleVal(color),
		"depth":        attachmentCtyValue(d.Depth),
		"stencil":      attachmentCtyValue(d.Stencil),
	})
}

// renderTargetDescriptorsEqual reports whether two render-target
// descriptors are structurally equal: same attachment formats/ops, same
// dimensions, same sample count.
func renderTargetDescriptorsEqual(a, b backend.RenderTargetDescriptor) bool {
	return renderTargetDescriptorCtyValue(a).RawEquals(renderTargetDescriptorCtyValue(b))
}
