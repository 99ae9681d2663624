package world

// MeshID refers to a mesh buffer owned by the renderer. 0 is no mesh.
type MeshID uint32

// TextureID refers to a texture owned by the renderer. 0 is no texture.
type TextureID uint32

// WhiteTextureID is the renderer's 1x1 white texture, used for objects that have no
// diffuse texture of their own
const WhiteTextureID TextureID = 1

// WorldObject is a renderable object: a transform plus references to a mesh and an
// optional diffuse texture. The references are not owned; the renderer must keep them
// alive for as long as any object uses them.
type WorldObject struct {
	transform            Transform
	mesh                 MeshID
	customDiffuseTexture TextureID
}

// Init resets the object to an identity transform with no mesh and no texture. The pool
// calls it on every object it creates.
func (o *WorldObject) Init() {
	*o = WorldObject{transform: NewTransform()}
}

// Finalize drops the object's mesh and texture references
func (o *WorldObject) Finalize() {
	o.mesh = 0
	o.customDiffuseTexture = 0
}

func (o *WorldObject) Transform() *Transform {
	return &o.transform
}

func (o *WorldObject) HasMesh() bool       { return o.mesh != 0 }
func (o *WorldObject) Mesh() MeshID        { return o.mesh }
func (o *WorldObject) SetMesh(mesh MeshID) { o.mesh = mesh }
func (o *WorldObject) ClearMesh()          { o.mesh = 0 }

// DiffuseTexture returns the custom diffuse texture, or WhiteTextureID if there is none
func (o *WorldObject) DiffuseTexture() TextureID {
	if o.customDiffuseTexture != 0 {
		return o.customDiffuseTexture
	}

	return WhiteTextureID
}

func (o *WorldObject) SetDiffuseTexture(texture TextureID) { o.customDiffuseTexture = texture }
func (o *WorldObject) ClearDiffuseTexture()                { o.customDiffuseTexture = 0 }
func (o *WorldObject) HasCustomDiffuseTexture() bool       { return o.customDiffuseTexture != 0 }
func (o *WorldObject) CustomDiffuseTexture() TextureID     { return o.customDiffuseTexture }
