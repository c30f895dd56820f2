package fg

import "github.com/vk/framegraph/internal/backend"

// resourceKind tags which concrete-resource family an entry belongs to.
// Only kindTexture has a concrete backend lifecycle today (see
// internal/backend.Device); the tag exists so a future buffer kind can be
// added without reshaping resourceNode/passNode.
type resourceKind uint8

const kindTexture resourceKind = 0

// resourceEntry owns the concrete backend resource once instantiated. An
// entry is created by Builder.CreateTexture or FrameGraph.Import/
// ImportRenderTarget and lives until Reset. Multiple resourceNodes (one per
// write) may point at the same entry.
type resourceEntry struct {
	id   int32
	kind resourceKind
	name string
	desc backend.TextureDescriptor

	imported     bool
	importedTex  backend.Texture
	concreteTex  backend.Texture
	instantiated bool

	// firstUse/lastUse are pass indices in declaration order, assigned by
	// the compiler's lifetime-assignment step. -1 means no surviving pass
	// uses this entry: the entry was culled.
	firstUse int32
	lastUse  int32
}

func newTextureEntry(id int32, name string, desc backend.TextureDescriptor) *resourceEntry {
	return &resourceEntry{
		id:       id,
		kind:     kindTexture,
		name:     name,
		desc:     desc,
		firstUse: -1,
		lastUse:  -1,
	}
}

func newImportedEntry(id int32, name string, desc backend.TextureDescriptor, concrete backend.Texture) *resourceEntry {
	e := newTextureEntry(id, name, desc)
	e.imported = true
	e.importedTex = concrete
	e.concreteTex = concrete
	e.instantiated = true
	return e
}

// culled reports whether no surviving pass ever touches this entry.
func (e *resourceEntry) culled() bool {
	return e.firstUse < 0
}

// touch extends the entry's [firstUse, lastUse] interval to include pass p,
// so every surviving pass referencing an entry falls within its lifetime.
func (e *resourceEntry) touch(pass int32) {
	if e.firstUse < 0 || pass < e.firstUse {
		e.firstUse = pass
	}
	if pass > e.lastUse {
		e.lastUse = pass
	}
}
