package gpuapi

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// Texture is a GPU texture.
type Texture struct {
	handle[gpucore.TextureID]
	desc  TextureDescriptor
	owned bool
}

// Size returns the texture extent.
func (t *Texture) Size() gputypes.Extent3D { return t.desc.Size }

// Format returns the texel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }

// Usage returns the usage the texture was created with.
func (t *Texture) Usage() gputypes.TextureUsage { return t.desc.Usage }

// Owned reports whether releasing the texture drops it in the backend.
func (t *Texture) Owned() bool { return t.owned }

// CreateView creates a view of the texture. A nil desc views the whole
// texture with its own format.
func (t *Texture) CreateView(desc *TextureViewDescriptor) (*TextureView, error) {
	if desc == nil {
		desc = &TextureViewDescriptor{}
	}
	id, err := t.backend.TextureCreateView(t.live(), desc)
	if err != nil {
		return nil, fmt.Errorf("create texture view %q: %w", desc.Label, err)
	}
	return newTextureView(t.backend, id, true), nil
}

// Release drops the texture if it is owned.
func (t *Texture) Release() {
	if r := recover(); r != nil {
		panic(t.unwind(r))
	}
	t.release()
}

// TextureView is a view of a texture. Views handed out by a swap chain
// are not owned and are never dropped by Release.
type TextureView struct {
	handle[gpucore.TextureViewID]
	owned bool
}

func newTextureView(b *sharedBackend, id gpucore.TextureViewID, owned bool) *TextureView {
	v := &TextureView{owned: owned}
	drop := gpucore.Backend.TextureViewDrop
	if !owned {
		drop = nil
	}
	v.init(b, id, "texture view", drop)
	return v
}

// Owned reports whether releasing the view drops it in the backend.
func (v *TextureView) Owned() bool { return v.owned }

func (v *TextureView) toCore() gpucore.BindingResource {
	return gpucore.TextureViewBinding{View: v.live()}
}

// Release drops the view if it is owned. Releasing a view handed out by
// a swap chain does nothing; it stays valid until its frame is presented.
func (v *TextureView) Release() {
	if !v.owned {
		return
	}
	if r := recover(); r != nil {
		panic(v.unwind(r))
	}
	v.release()
}
