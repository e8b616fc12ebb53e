package store

import (
	"context"
	"path/filepath"
	"testing"

	"wildmere.gg/internal/sim/world"
)

func TestStore_PlayerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wildmere.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.SavePlayer(world.PlayerSnapshot{
		ID: "P1", Name: "Ada", X: 3.5, Y: -2.25, HP: 7,
		Inventory: map[string]int{"wood": 12, "basic_axe": 1},
		Completed: []string{"firewood_for_maren"},
		Community: "C000001",
	})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	snap, err := s2.LoadPlayer(context.Background(), "P1")
	if err != nil {
		t.Fatalf("LoadPlayer: %v", err)
	}
	if snap == nil {
		t.Fatalf("P1 not persisted")
	}
	if snap.Name != "Ada" || snap.HP != 7 || snap.X != 3.5 || snap.Y != -2.25 {
		t.Fatalf("snapshot mismatch: %+v", snap)
	}
	if snap.Inventory["wood"] != 12 {
		t.Fatalf("inventory lost: %v", snap.Inventory)
	}
	if len(snap.Completed) != 1 || snap.Completed[0] != "firewood_for_maren" {
		t.Fatalf("quests lost: %v", snap.Completed)
	}

	missing, err := s2.LoadPlayer(context.Background(), "P999")
	if err != nil {
		t.Fatalf("LoadPlayer missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("unknown player should load as nil, got %+v", missing)
	}
}

func TestStore_LoadAllRecoversSharedState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wildmere.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.SaveCommunities([]world.CommunitySnapshot{{
		ID: "C000001", Name: "Elm", Members: []string{"P1", "P2"},
		Areas: []world.ClaimArea{{CX: 4, CY: 4, R: 8}},
	}})
	s.SaveStructures([]world.StructureSnapshot{
		{GroupID: "S000001", Kind: "house", Owner: "P1", Tiles: []world.Tile{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}}},
		{GroupID: "S000002", Kind: "silo", Owner: "C000001", Tiles: []world.Tile{{X: 5, Y: 5}}, Storage: "ST000001"},
	})
	s.SaveStorage(world.StorageSnapshot{ID: "ST000001", Community: "C000001", Items: map[string]int{"wood": 40}})
	s.DeleteStructureGroup("S000001")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	boot, err := s2.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(boot.Communities) != 1 || boot.Communities[0].Name != "Elm" {
		t.Fatalf("communities: %+v", boot.Communities)
	}
	if len(boot.Structures) != 1 || boot.Structures[0].GroupID != "S000002" {
		t.Fatalf("deleted structure came back: %+v", boot.Structures)
	}
	if boot.Structures[0].Storage != "ST000001" {
		t.Fatalf("structure lost its storage link: %+v", boot.Structures[0])
	}
	if len(boot.Storages) != 1 || boot.Storages[0].Items["wood"] != 40 {
		t.Fatalf("storages: %+v", boot.Storages)
	}
}

func TestStore_LatestWriteWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wildmere.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.SavePlayer(world.PlayerSnapshot{ID: "P1", Name: "Ada", HP: 10})
	s.SavePlayer(world.PlayerSnapshot{ID: "P1", Name: "Ada", HP: 4})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	snap, err := s2.LoadPlayer(context.Background(), "P1")
	if err != nil || snap == nil {
		t.Fatalf("LoadPlayer: %v %+v", err, snap)
	}
	if snap.HP != 4 {
		t.Fatalf("hp = %d, want the later write", snap.HP)
	}
}
