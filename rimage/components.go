package rimage

import (
	"image"
)

// ConnectedComponent is an 8-connected set of foreground pixels.
type ConnectedComponent struct {
	Points []image.Point
	// Bounds is the bounding box of Points; Max is exclusive.
	Bounds image.Rectangle
}

// Width of the bounding box.
func (cc *ConnectedComponent) Width() int {
	return cc.Bounds.Dx()
}

// Height of the bounding box.
func (cc *ConnectedComponent) Height() int {
	return cc.Bounds.Dy()
}

// AspectRatio is width over height of the bounding box.
func (cc *ConnectedComponent) AspectRatio() float64 {
	if cc.Height() == 0 {
		return 0
	}
	return float64(cc.Width()) / float64(cc.Height())
}

// Size is the larger bounding box dimension.
func (cc *ConnectedComponent) Size() int {
	return max(cc.Width(), cc.Height())
}

// NumPixels is the number of foreground pixels in the component.
func (cc *ConnectedComponent) NumPixels() int {
	return len(cc.Points)
}

// ComponentConstraints bounds the shape of an acceptable component.
type ComponentConstraints struct {
	MinAspectRatio float64
	MaxAspectRatio float64
	MinSize        float64
	MaxSize        float64
}

// NewComponentConstraints derives size bounds as fractions of the smaller frame dimension.
func NewComponentConstraints(width, height int, minSizeFrac, maxSizeFrac, minAspect, maxAspect float64) ComponentConstraints {
	smaller := float64(min(width, height))
	return ComponentConstraints{
		MinAspectRatio: minAspect,
		MaxAspectRatio: maxAspect,
		MinSize:        minSizeFrac * smaller,
		MaxSize:        maxSizeFrac * smaller,
	}
}

// DefaultGridConstraints are the constraints for a puzzle grid in a width x height frame: roughly
// square and between 30% and 90% of the smaller frame dimension.
func DefaultGridConstraints(width, height int) ComponentConstraints {
	return NewComponentConstraints(width, height, 0.3, 0.9, 0.5, 1.5)
}

func (c ComponentConstraints) accepts(bounds image.Rectangle) bool {
	w, h := bounds.Dx(), bounds.Dy()
	if h == 0 {
		return false
	}
	size := float64(max(w, h))
	aspect := float64(w) / float64(h)
	return size >= c.MinSize && size <= c.MaxSize &&
		aspect >= c.MinAspectRatio && aspect <= c.MaxAspectRatio
}

// Accepts returns whether the component satisfies every constraint.
func (c ComponentConstraints) Accepts(cc *ConnectedComponent) bool {
	return c.accepts(cc.Bounds)
}

// LargestComponent labels the 8-connected foreground regions of bin inside region and returns
// the one with the most pixels that satisfies constraints. Each pixel is visited once, so the
// cost is linear in the area of region.
func LargestComponent(bin *image.Gray, region image.Rectangle, constraints ComponentConstraints) (*ConnectedComponent, bool) {
	region = region.Intersect(bin.Bounds())
	if region.Empty() {
		return nil, false
	}
	rw, rh := region.Dx(), region.Dy()
	visited := make([]bool, rw*rh)

	var (
		best  *ConnectedComponent
		stack []image.Point
		buf   []image.Point
	)
	isInk := func(x, y int) bool {
		return bin.Pix[bin.PixOffset(x, y)] != 0
	}

	for sy := region.Min.Y; sy < region.Max.Y; sy++ {
		for sx := region.Min.X; sx < region.Max.X; sx++ {
			idx := (sy-region.Min.Y)*rw + (sx - region.Min.X)
			if visited[idx] || !isInk(sx, sy) {
				continue
			}
			visited[idx] = true

			buf = buf[:0]
			stack = append(stack[:0], image.Point{sx, sy})
			bounds := image.Rect(sx, sy, sx+1, sy+1)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				buf = append(buf, p)
				bounds = bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if (dx == 0 && dy == 0) || nx < region.Min.X || ny < region.Min.Y || nx >= region.Max.X || ny >= region.Max.Y {
							continue
						}
						nidx := (ny-region.Min.Y)*rw + (nx - region.Min.X)
						if visited[nidx] || !isInk(nx, ny) {
							continue
						}
						visited[nidx] = true
						stack = append(stack, image.Point{nx, ny})
					}
				}
			}

			if !constraints.accepts(bounds) || (best != nil && len(buf) <= best.NumPixels()) {
				continue
			}
			points := make([]image.Point, len(buf))
			copy(points, buf)
			best = &ConnectedComponent{Points: points, Bounds: bounds}
		}
	}
	return best, best != nil
}
