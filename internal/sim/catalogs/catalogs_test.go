package catalogs

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "data"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := c.Items.Defs["basic_axe"]; !ok {
		t.Fatalf("items missing basic_axe")
	}
	if c.Items.Digest == "" || c.Resources.Digest == "" {
		t.Fatalf("missing digests")
	}
	tree, ok := c.Resources.Defs["tree"]
	if !ok {
		t.Fatalf("resources missing tree")
	}
	if tree.Tool != "axe" || tree.MaxSize < 1 {
		t.Fatalf("bad tree def: %+v", tree)
	}
	for id, q := range c.Quests.Defs {
		if _, ok := c.NPCs.Defs[q.NPC]; !ok {
			t.Fatalf("quest %s references unknown npc %s", id, q.NPC)
		}
	}
	total := 0
	for _, m := range c.Monsters.Defs {
		if m.SpawnWeight <= 0 {
			t.Fatalf("monster %s has no spawn weight", m.ID)
		}
		total += m.SpawnWeight
	}
	if total == 0 {
		t.Fatalf("empty spawn weight table")
	}
}
