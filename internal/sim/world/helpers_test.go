package world

import (
	"os"
	"path/filepath"
	"testing"

	"wildmere.gg/internal/sim/catalogs"
	"wildmere.gg/internal/sim/tuning"
)

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find repo root from %s", dir)
		}
		dir = parent
	}
}

func newTestWorld(t *testing.T, seed int64) *World {
	t.Helper()
	root := findRepoRoot(t)
	cats, err := catalogs.Load(filepath.Join(root, "data"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return New(Config{Seed: seed, Tun: tuning.Default()}, cats, BootState{})
}

// joinTestPlayer puts a player into the world through the same path the
// transport uses, then returns the live record and its outbound queue.
func joinTestPlayer(t *testing.T, w *World, id, name string) (*Player, chan []byte) {
	t.Helper()
	out := make(chan []byte, 256)
	resp := make(chan JoinResponse, 1)
	w.step([]JoinRequest{{PlayerID: id, Name: name, Out: out, Resp: resp}}, nil, nil)
	select {
	case r := <-resp:
		if r.Welcome.PlayerID != id {
			t.Fatalf("welcome for %q, want %q", r.Welcome.PlayerID, id)
		}
	default:
		t.Fatalf("no join response for %s", id)
	}
	p := w.players[id]
	if p == nil {
		t.Fatalf("player %s missing after join", id)
	}
	return p, out
}

func stepN(w *World, n int) {
	for i := 0; i < n; i++ {
		w.step(nil, nil, nil)
	}
}

func drain(ch chan []byte) [][]byte {
	var out [][]byte
	for {
		select {
		case b := <-ch:
			out = append(out, b)
		default:
			return out
		}
	}
}

// findOpenArea scans outward for the corner of a size x size block of
// walkable land with nothing built on it.
func findOpenArea(t *testing.T, w *World, size int) Tile {
	t.Helper()
	for r := 0; r < 400; r++ {
		for _, corner := range []Tile{{X: r, Y: r}, {X: -r - size, Y: r}, {X: r, Y: -r - size}, {X: -r - size, Y: -r - size}} {
			open := true
			for dy := 0; dy < size && open; dy++ {
				for dx := 0; dx < size; dx++ {
					tl := Tile{X: corner.X + dx, Y: corner.Y + dy}
					if w.chunks.TileKind(tl.X, tl.Y) == TileWater || w.structAt[tl] != nil || w.npcAt(tl) {
						open = false
						break
					}
				}
			}
			if open {
				return corner
			}
		}
	}
	t.Fatalf("no open %dx%d area near origin", size, size)
	return Tile{}
}

func centerOf(tl Tile) Vec2 {
	return Vec2{X: float64(tl.X) + 0.5, Y: float64(tl.Y) + 0.5}
}
