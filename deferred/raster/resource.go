package raster

import "fmt"

type ResourceState int

const (
	Unbound ResourceState = iota
	BoundForWriting
	BoundForReading
)

func (s ResourceState) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case BoundForWriting:
		return "writing"
	case BoundForReading:
		return "reading"
	}
	return fmt.Sprintf("ResourceState(%d)", int(s))
}

// ImageResource is an image usable either as a render target or as a
// shader input, never both at once. Every transition goes through Unbound;
// misuse panics.
type ImageResource struct {
	Name  string
	image *Image
	state ResourceState
}

func NewImageResource(name string, width, height int) *ImageResource {
	return &ImageResource{Name: name, image: NewImage(width, height)}
}

func (r *ImageResource) State() ResourceState { return r.state }

func (r *ImageResource) transition(from, to ResourceState) {
	if r.state != from {
		panic(fmt.Sprintf("image resource %q: cannot go to %v while %v", r.Name, to, r.state))
	}
	r.state = to
}

func (r *ImageResource) BindForWriting() { r.transition(Unbound, BoundForWriting) }
func (r *ImageResource) BindForReading() { r.transition(Unbound, BoundForReading) }

// Unbind releases whichever binding is held. Unbinding an unbound resource
// is a no-op.
func (r *ImageResource) Unbind() { r.state = Unbound }

// Target returns the image for rendering into. Panics unless bound for writing.
func (r *ImageResource) Target() *Image {
	if r.state != BoundForWriting {
		panic(fmt.Sprintf("image resource %q: used as render target while %v", r.Name, r.state))
	}
	return r.image
}

// Input returns the image for sampling. Panics unless bound for reading.
func (r *ImageResource) Input() *Image {
	if r.state != BoundForReading {
		panic(fmt.Sprintf("image resource %q: sampled while %v", r.Name, r.state))
	}
	return r.image
}

// Peek returns the image regardless of binding, for inspection outside a frame.
func (r *ImageResource) Peek() *Image { return r.image }
