package math

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vec3
}

// BoxOf returns the bounding box of points.
// An empty slice yields the zero box at the origin.
func BoxOf(points []Vec3) Box {
	if len(points) == 0 {
		return Box{}
	}
	b := Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// Size returns the extent along each axis.
func (b Box) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Contains reports whether p lies inside b, boundaries included.
func (b Box) Contains(p Vec3) bool {
	return b.Min.X <= p.X && b.Min.Y <= p.Y && b.Min.Z <= p.Z &&
		p.X <= b.Max.X && p.Y <= b.Max.Y && p.Z <= b.Max.Z
}

// ContainsBox reports whether other lies entirely inside b.
func (b Box) ContainsBox(other Box) bool {
	return b.Contains(other.Min) && b.Contains(other.Max)
}

// Clamp returns p moved onto the nearest point of b.
func (b Box) Clamp(p Vec3) Vec3 {
	return p.Max(b.Min).Min(b.Max)
}

// Intersect returns the overlap of b and other. The result may be inverted
// when the boxes are disjoint.
func (b Box) Intersect(other Box) Box {
	return Box{Min: b.Min.Max(other.Min), Max: b.Max.Min(other.Max)}
}

// Cube returns the box of half-width r centred at c.
func Cube(c Vec3, r float32) Box {
	d := Vec3{r, r, r}
	return Box{Min: c.Sub(d), Max: c.Add(d)}
}
