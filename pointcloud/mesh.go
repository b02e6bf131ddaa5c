// Package pointcloud holds the sampled-geometry containers consumed by the
// fitting, alignment, and symmetry cores: an immutable mesh-sample view, a
// basic mutable implementation, and a KD-tree for nearest-neighbor queries.
package pointcloud

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/reframe3d/scan2cad/spatialmath"
)

// MeshSample is read access to a scanned sample: ordered vertices, optional
// triangles indexing them, optional per-vertex unit normals, plus cached
// aggregates. A zero-vertex sample is legal; fits fail cleanly on it.
type MeshSample interface {
	// Size returns the number of vertices.
	Size() int

	// FaceCount returns the number of triangles, zero for bare clouds.
	FaceCount() int

	// Vertices returns the vertex positions. Callers must treat the slice
	// as read-only.
	Vertices() []r3.Vector

	// Normals returns per-vertex unit normals parallel to Vertices, or nil
	// when the sample carries none.
	Normals() []r3.Vector

	// Faces returns the triangle index triples. Each index is < Size().
	Faces() [][3]int

	// FaceNormal returns the unit normal of triangle i.
	FaceNormal(i int) r3.Vector

	// Centroid returns the mean vertex position.
	Centroid() r3.Vector

	// MetaData returns the accumulated bounding-box data.
	MetaData() MetaData
}

// MetaData is the axis-aligned bounding data of a sample, accumulated as
// vertices are added.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
	count                  int
}

// NewMetaData returns MetaData ready to accumulate points.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64, MaxX: -math.MaxFloat64,
		MinY: math.MaxFloat64, MaxY: -math.MaxFloat64,
		MinZ: math.MaxFloat64, MaxZ: -math.MaxFloat64,
	}
}

// Merge folds a point into the bounding data.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
	meta.totalX += v.X
	meta.totalY += v.Y
	meta.totalZ += v.Z
	meta.count++
}

// Center returns the mean of merged points.
func (meta MetaData) Center() r3.Vector {
	if meta.count == 0 {
		return r3.Vector{}
	}
	n := float64(meta.count)
	return r3.Vector{X: meta.totalX / n, Y: meta.totalY / n, Z: meta.totalZ / n}
}

// BoundingBoxDiagonal is the Euclidean length of maxCorner - minCorner, the
// natural length scale for relative thresholds.
func (meta MetaData) BoundingBoxDiagonal() float64 {
	if meta.count == 0 {
		return 0
	}
	return r3.Vector{
		X: meta.MaxX - meta.MinX,
		Y: meta.MaxY - meta.MinY,
		Z: meta.MaxZ - meta.MinZ,
	}.Norm()
}

// BasicMesh is the basic mutable MeshSample backed by flat slices.
type BasicMesh struct {
	vertices []r3.Vector
	normals  []r3.Vector
	faces    [][3]int
	meta     MetaData
}

// NewBasicMesh returns an empty mesh preallocated for size vertices.
func NewBasicMesh(size int) *BasicMesh {
	return &BasicMesh{
		vertices: make([]r3.Vector, 0, size),
		meta:     NewMetaData(),
	}
}

// NewBasicMeshFromPoints builds a bare cloud from positions, with optional
// parallel normals.
func NewBasicMeshFromPoints(points, normals []r3.Vector) (*BasicMesh, error) {
	if normals != nil && len(normals) != len(points) {
		return nil, errors.Errorf("normal count %d does not match vertex count %d", len(normals), len(points))
	}
	mesh := NewBasicMesh(len(points))
	for i, p := range points {
		if normals != nil {
			mesh.AddVertexNormal(p, normals[i])
		} else {
			mesh.AddVertex(p)
		}
	}
	return mesh, nil
}

// AddVertex appends a vertex and returns its index.
func (m *BasicMesh) AddVertex(p r3.Vector) int {
	m.vertices = append(m.vertices, p)
	m.meta.Merge(p)
	return len(m.vertices) - 1
}

// AddVertexNormal appends a vertex with a unit normal.
func (m *BasicMesh) AddVertexNormal(p, n r3.Vector) int {
	idx := m.AddVertex(p)
	for len(m.normals) < idx {
		m.normals = append(m.normals, r3.Vector{})
	}
	m.normals = append(m.normals, n)
	return idx
}

// AddFace appends a triangle after validating its indices.
func (m *BasicMesh) AddFace(a, b, c int) error {
	var err error
	for _, idx := range []int{a, b, c} {
		if idx < 0 || idx >= len(m.vertices) {
			err = multierr.Append(err, errors.Errorf("face index %d out of range [0, %d)", idx, len(m.vertices)))
		}
	}
	if err != nil {
		return err
	}
	m.faces = append(m.faces, [3]int{a, b, c})
	return nil
}

// Size implements MeshSample.
func (m *BasicMesh) Size() int { return len(m.vertices) }

// FaceCount implements MeshSample.
func (m *BasicMesh) FaceCount() int { return len(m.faces) }

// Vertices implements MeshSample.
func (m *BasicMesh) Vertices() []r3.Vector { return m.vertices }

// Normals implements MeshSample.
func (m *BasicMesh) Normals() []r3.Vector {
	if len(m.normals) != len(m.vertices) {
		return nil
	}
	return m.normals
}

// Faces implements MeshSample.
func (m *BasicMesh) Faces() [][3]int { return m.faces }

// FaceNormal implements MeshSample, computing the normal from the triangle
// winding.
func (m *BasicMesh) FaceNormal(i int) r3.Vector {
	f := m.faces[i]
	return spatialmath.PlaneNormal(m.vertices[f[0]], m.vertices[f[1]], m.vertices[f[2]])
}

// Centroid implements MeshSample.
func (m *BasicMesh) Centroid() r3.Vector { return m.meta.Center() }

// MetaData implements MeshSample.
func (m *BasicMesh) MetaData() MetaData { return m.meta }

// ApplyTransform moves every vertex by the homogeneous transform and every
// normal by its rotation block, rebuilding the bounding data.
func (m *BasicMesh) ApplyTransform(t mgl64.Mat4) {
	meta := NewMetaData()
	for i, v := range m.vertices {
		moved := spatialmath.TransformPoint(t, v)
		m.vertices[i] = moved
		meta.Merge(moved)
	}
	for i, n := range m.normals {
		rotated := spatialmath.RotateVector(t, n)
		if rotated.Norm() > 0 {
			rotated = rotated.Normalize()
		}
		m.normals[i] = rotated
	}
	m.meta = meta
}

// Clone deep-copies the mesh.
func (m *BasicMesh) Clone() *BasicMesh {
	out := &BasicMesh{
		vertices: append([]r3.Vector(nil), m.vertices...),
		faces:    append([][3]int(nil), m.faces...),
		meta:     m.meta,
	}
	if m.normals != nil {
		out.normals = append([]r3.Vector(nil), m.normals...)
	}
	return out
}
