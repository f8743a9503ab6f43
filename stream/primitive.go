package stream

import "github.com/andreiashu/geoworld/world"

// Primitive is a device-side render object built from one tessellation.
type Primitive interface {
	Release()
}

// PrimitiveBuilder creates primitives. It is called on the frame goroutine,
// lazily, the first time a decoded tessellation is drawn.
type PrimitiveBuilder interface {
	BuildPrimitive(t *world.GeoTessellation) (Primitive, error)
}

// Mesh is the primitive MeshBuilder produces: the tessellation itself.
type Mesh struct {
	*world.GeoTessellation
}

// Release is a no-op.
func (Mesh) Release() {}

// MeshBuilder wraps tessellations without touching any device. It is used
// when Attach is given a nil builder.
type MeshBuilder struct{}

func (MeshBuilder) BuildPrimitive(t *world.GeoTessellation) (Primitive, error) {
	return Mesh{t}, nil
}
