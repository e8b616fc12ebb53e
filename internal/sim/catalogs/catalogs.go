package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Catalogs holds the immutable reference tables. They are loaded once at
// startup and shared read-only across the server; nothing mutates them at
// runtime.
type Catalogs struct {
	Items     ItemCatalog
	Resources ResourceCatalog
	Monsters  MonsterCatalog
	Quests    QuestCatalog
	NPCs      NPCCatalog
}

type ItemCatalog struct {
	Defs   map[string]ItemDef
	Digest string
}

// ItemDef describes one item id. Kind is "tool", "weapon", "material" or
// "food". Tools carry ToolKind+Power, weapons Damage (plus Ranged/Ammo for
// bows), food Heal.
type ItemDef struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	ToolKind string `json:"tool_kind,omitempty"`
	Power    int    `json:"power,omitempty"`
	Damage   int    `json:"damage,omitempty"`
	Ranged   bool   `json:"ranged,omitempty"`
	Ammo     string `json:"ammo,omitempty"`
	Heal     int    `json:"heal,omitempty"`
}

type ResourceCatalog struct {
	Defs   map[string]ResourceDef
	Digest string
}

// ResourceDef describes one harvestable species. Tool names the required
// tool kind; MaxSize > 1 marks a multi-stage species whose drops scale with
// size and whose gather power is reduced by remaining size.
type ResourceDef struct {
	ID        string      `json:"id"`
	Tool      string      `json:"tool"`
	HP        int         `json:"hp"`
	RespawnMs int         `json:"respawn_ms"`
	GrowthMs  int         `json:"growth_ms,omitempty"`
	MaxSize   int         `json:"max_size"`
	Drops     []ItemCount `json:"drops"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type MonsterCatalog struct {
	Defs   map[string]MonsterDef
	Digest string
}

type MonsterDef struct {
	ID          string     `json:"id"`
	HP          int        `json:"hp"`
	Speed       float64    `json:"speed"`
	Damage      int        `json:"damage"`
	Drop        *ItemCount `json:"drop,omitempty"`
	SpawnWeight int        `json:"spawn_weight"`
}

type QuestCatalog struct {
	Defs   map[string]QuestDef
	Digest string
}

type QuestDef struct {
	ID       string      `json:"id"`
	NPC      string      `json:"npc"`
	Requires []ItemCount `json:"requires"`
	Rewards  []ItemCount `json:"rewards"`
}

type NPCCatalog struct {
	Defs   map[string]NPCDef
	Digest string
}

type NPCDef struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Dialog []string `json:"dialog"`
}

func Load(dataDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadTable(filepath.Join(dataDir, "items.json"), &c.Items.Defs, &c.Items.Digest, func(d ItemDef) string { return d.ID }); err != nil {
		return nil, err
	}
	if err := loadTable(filepath.Join(dataDir, "resources.json"), &c.Resources.Defs, &c.Resources.Digest, func(d ResourceDef) string { return d.ID }); err != nil {
		return nil, err
	}
	if err := loadTable(filepath.Join(dataDir, "monsters.json"), &c.Monsters.Defs, &c.Monsters.Digest, func(d MonsterDef) string { return d.ID }); err != nil {
		return nil, err
	}
	if err := loadTable(filepath.Join(dataDir, "quests.json"), &c.Quests.Defs, &c.Quests.Digest, func(d QuestDef) string { return d.ID }); err != nil {
		return nil, err
	}
	if err := loadTable(filepath.Join(dataDir, "npcs.json"), &c.NPCs.Defs, &c.NPCs.Digest, func(d NPCDef) string { return d.ID }); err != nil {
		return nil, err
	}

	for id, r := range c.Resources.Defs {
		if r.MaxSize < 1 {
			return nil, fmt.Errorf("resources.json: %s: max_size must be >= 1", id)
		}
	}
	for id, q := range c.Quests.Defs {
		if _, ok := c.NPCs.Defs[q.NPC]; !ok {
			return nil, fmt.Errorf("quests.json: %s: unknown npc %q", id, q.NPC)
		}
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadTable[T any](path string, out *map[string]T, digest *string, id func(T) string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	*digest = sha256Hex(raw)

	var defs []T
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	*out = make(map[string]T, len(defs))
	for _, d := range defs {
		key := id(d)
		if key == "" {
			return fmt.Errorf("%s: empty id", filepath.Base(path))
		}
		if _, dup := (*out)[key]; dup {
			return fmt.Errorf("%s: duplicate id %q", filepath.Base(path), key)
		}
		(*out)[key] = d
	}
	return nil
}
