package world

import (
	"math"
	"sort"
)

func sortedKeysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dist(a, b Vec2) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Hypot(dx, dy)
}

func normalize(v Vec2) Vec2 {
	l := math.Hypot(v.X, v.Y)
	if l < 1e-9 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// sortedTiles orders map iteration for deterministic output.
func sortedTiles[V any](m map[Tile]V) []Tile {
	out := make([]Tile, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return lessTile(out[i], out[j]) })
	return out
}

// chebyshevChunks is the chunk-grid distance used for both visibility and
// keep-alive radii.
func chebyshevChunks(a, b ChunkKey) int {
	return maxAbs(a.CX-b.CX, a.CY-b.CY)
}
