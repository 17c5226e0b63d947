package imagecache

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Descriptor describes the GPU-side shape of a cached texture.
type Descriptor struct {
	Label         string
	Size          gputypes.Extent3D
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
	MipLevelCount uint32
}

// Sampler holds the sampling state a texture is drawn with. Linear
// min/mag/mip filters give trilinear filtering; anisotropy keeps panels
// sharp when they are seen at oblique angles.
type Sampler struct {
	AddressModeU  gputypes.AddressMode
	AddressModeV  gputypes.AddressMode
	MagFilter     gputypes.FilterMode
	MinFilter     gputypes.FilterMode
	MipmapFilter  gputypes.FilterMode
	MaxAnisotropy uint16
}

// TrilinearSampler returns clamp-to-edge trilinear sampling with the given anisotropy.
func TrilinearSampler(anisotropy int) Sampler {
	if anisotropy < 1 {
		anisotropy = 1
	}
	return Sampler{
		AddressModeU:  gputypes.AddressModeClampToEdge,
		AddressModeV:  gputypes.AddressModeClampToEdge,
		MagFilter:     gputypes.FilterModeLinear,
		MinFilter:     gputypes.FilterModeLinear,
		MipmapFilter:  gputypes.FilterModeLinear,
		MaxAnisotropy: uint16(anisotropy),
	}
}

// Texture is a decoded image ready for display. Levels[0] is the
// displayed resolution; further levels form the mip chain.
type Texture struct {
	Descriptor Descriptor
	Sampler    Sampler
	Levels     []*image.RGBA

	// Handle is the renderer's own resource, if the factory created one.
	Handle any

	once     sync.Once
	release  func(*Texture)
	released atomic.Bool
}

// Width returns the width of the displayed level.
func (t *Texture) Width() int { return int(t.Descriptor.Size.Width) }

// Height returns the height of the displayed level.
func (t *Texture) Height() int { return int(t.Descriptor.Size.Height) }

// Image returns the displayed level.
func (t *Texture) Image() *image.RGBA {
	if len(t.Levels) == 0 {
		return nil
	}
	return t.Levels[0]
}

// Release frees the texture. It is safe to call more than once.
func (t *Texture) Release() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		if t.release != nil {
			t.release(t)
		}
		t.Levels = nil
		t.Handle = nil
		t.released.Store(true)
	})
}

// Released reports whether Release has been called.
func (t *Texture) Released() bool {
	return t != nil && t.released.Load()
}

// TextureFactory turns decoded pixels into renderer resources. The cache
// only calls it from the goroutine that owns the main-thread queue.
type TextureFactory interface {
	CreateTexture(desc Descriptor, sampler Sampler, levels []*image.RGBA) (any, error)
	ReleaseTexture(handle any)
}

// NewDescriptor builds the descriptor for an RGBA mip chain.
func NewDescriptor(label string, levels []*image.RGBA) Descriptor {
	d := Descriptor{
		Label:         label,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		MipLevelCount: uint32(len(levels)),
	}
	if len(levels) > 0 {
		b := levels[0].Bounds()
		d.Size = gputypes.Extent3D{Width: uint32(b.Dx()), Height: uint32(b.Dy()), DepthOrArrayLayers: 1}
	}
	return d
}

// MemoryFactory keeps textures in system memory. It is the default factory
// and counts live textures so leaks show up in tests and stats.
type MemoryFactory struct {
	live    atomic.Int64
	created atomic.Int64
}

// CreateTexture implements TextureFactory.
func (f *MemoryFactory) CreateTexture(desc Descriptor, _ Sampler, _ []*image.RGBA) (any, error) {
	f.live.Add(1)
	f.created.Add(1)
	return desc.Label, nil
}

// ReleaseTexture implements TextureFactory.
func (f *MemoryFactory) ReleaseTexture(any) {
	f.live.Add(-1)
}

// Live returns the number of textures created and not yet released.
func (f *MemoryFactory) Live() int { return int(f.live.Load()) }

// Created returns the total number of textures ever created.
func (f *MemoryFactory) Created() int { return int(f.created.Load()) }
