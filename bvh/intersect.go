package bvh

// IntersectAABB is the slab-test box intersection the direct RT core's
// box pipeline evaluates: returns ray.TMax (a guaranteed non-hit
// sentinel) on a miss, or the entry distance on a hit. Grounded on
// rtm/intersect.hpp's AABB/ray overload.
func IntersectAABB(min, max [3]float32, ray Ray) float32 {
	tmin := ray.TMin
	tmax := ray.TMax

	for a := 0; a < 3; a++ {
		t0 := (min[a] - ray.Origin[a]) * ray.InvDir[a]
		t1 := (max[a] - ray.Origin[a]) * ray.InvDir[a]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
	}

	if tmin > tmax || tmax < ray.TMin {
		return ray.TMax
	}
	return tmin
}

// IntersectTriangle is the triangle pipeline's per-cycle-8 evaluation
// (latency 22, II 8 per spec.md §4.5): Möller-Trumbore, grounded
// directly on rtm/intersect.hpp's enabled branch. hit.T is updated and
// true returned only on a closer hit than the slot currently holds.
func IntersectTriangle(tri Triangle, ray Ray, hit *Hit) bool {
	e0 := sub(tri.V1, tri.V2)
	e1 := sub(tri.V0, tri.V2)

	r1 := cross(ray.Dir, e0)
	denom := dot(e1, r1)
	if denom == 0 {
		return false
	}
	rcpDenom := 1.0 / denom

	s := sub(ray.Origin, tri.V2)
	b1 := dot(s, r1) * rcpDenom
	if b1 < 0 || b1 > 1 {
		return false
	}

	r2 := cross(s, e1)
	b2 := dot(ray.Dir, r2) * rcpDenom
	if b2 < 0 || b1+b2 > 1 {
		return false
	}

	t := dot(e0, r2) * rcpDenom
	if t < ray.TMin || t > hit.T {
		return false
	}

	hit.T = t
	hit.U = b1
	hit.V = b2
	hit.PrimID = tri.ID
	hit.Found = true
	return true
}

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
