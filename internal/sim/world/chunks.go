package world

import (
	"sort"

	"wildmere.gg/internal/sim/catalogs"
	"wildmere.gg/internal/sim/tuning"
)

type ChunkKey struct {
	CX int
	CY int
}

// Chunk is one materialized region: its tile grid, its live resource
// nodes, and whether its initial monster population has been rolled.
type Chunk struct {
	Key       ChunkKey
	Tiles     []TileKind // row-major, size*size
	Resources map[Tile]*ResourceNode
	Spawned   bool

	lastNeeded uint64
}

// ResourceNode lives on exactly one tile; the tile doubles as its key.
// RespawnAt == 0 means the node is alive.
type ResourceNode struct {
	Tile       Tile
	Species    string
	HP         int
	Size       int
	RespawnAt  uint64
	NextGrowth uint64
}

// ChunkStore owns all materialized chunks. Only the world goroutine may
// touch it.
type ChunkStore struct {
	seed   int64
	size   int
	noise  terrainNoise
	params TerrainParams
	cats   *catalogs.Catalogs

	chunks map[ChunkKey]*Chunk
}

func NewChunkStore(seed int64, tun tuning.Tuning, cats *catalogs.Catalogs) *ChunkStore {
	return &ChunkStore{
		seed:  seed,
		size:  tun.ChunkSize,
		noise: newTerrainNoise(seed),
		params: TerrainParams{
			WaterLevel:   tun.Terrain.WaterLevel,
			ShoreLevel:   tun.Terrain.ShoreLevel,
			RiverBand:    tun.Terrain.RiverBand,
			RiverMaxElev: tun.Terrain.RiverMaxElev,
			SandMoisture: tun.Terrain.SandMoisture,
			SandMaxElev:  tun.Terrain.SandMaxElev,
			DirtSoil:     tun.Terrain.DirtSoil,
			DirtMoisture: tun.Terrain.DirtMoisture,
			FlowerScore:  tun.Terrain.FlowerScore,
		},
		cats:   cats,
		chunks: map[ChunkKey]*Chunk{},
	}
}

func (cs *ChunkStore) ChunkSize() int { return cs.size }

func (cs *ChunkStore) Loaded() int { return len(cs.chunks) }

func (cs *ChunkStore) KeyFor(x, y int) ChunkKey {
	return ChunkKey{CX: floorDiv(x, cs.size), CY: floorDiv(y, cs.size)}
}

// TileKind needs no chunk: it goes straight to the oracle, so callers can
// classify tiles in chunks that were never materialized.
func (cs *ChunkStore) TileKind(x, y int) TileKind {
	return cs.noise.tileKindAt(cs.params, x, y)
}

// GetOrGen materializes a chunk on first reference. isNew reports whether
// this call generated it; the caller owes the chunk its monster roll in
// that case. blocked tells generation which tiles a structure or landmark
// already occupies.
func (cs *ChunkStore) GetOrGen(key ChunkKey, nowTick uint64, blocked func(Tile) bool, growthTicks func(species string) uint64) (*Chunk, bool) {
	if c, ok := cs.chunks[key]; ok {
		c.lastNeeded = nowTick
		return c, false
	}
	c := &Chunk{
		Key:        key,
		Tiles:      make([]TileKind, cs.size*cs.size),
		Resources:  map[Tile]*ResourceNode{},
		lastNeeded: nowTick,
	}
	baseX := key.CX * cs.size
	baseY := key.CY * cs.size
	for row := 0; row < cs.size; row++ {
		for col := 0; col < cs.size; col++ {
			c.Tiles[row*cs.size+col] = cs.TileKind(baseX+col, baseY+row)
		}
	}
	cs.generateResources(c, nowTick, blocked, growthTicks)
	cs.chunks[key] = c
	return c, true
}

func (cs *ChunkStore) Get(key ChunkKey) *Chunk { return cs.chunks[key] }

func (cs *ChunkStore) Evict(key ChunkKey) { delete(cs.chunks, key) }

// Range visits chunks in key order so per-tick event emission is
// reproducible from the same state.
func (cs *ChunkStore) Range(f func(key ChunkKey, c *Chunk) bool) {
	keys := make([]ChunkKey, 0, len(cs.chunks))
	for k := range cs.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CX < keys[j].CX
	})
	for _, k := range keys {
		if !f(k, cs.chunks[k]) {
			return
		}
	}
}

// generateResources rolls every tile once, deterministically from the
// world seed, so an evicted chunk regrows the exact same initial layout.
func (cs *ChunkStore) generateResources(c *Chunk, nowTick uint64, blocked func(Tile) bool, growthTicks func(species string) uint64) {
	seed := uint64(cs.seed)
	baseX := c.Key.CX * cs.size
	baseY := c.Key.CY * cs.size
	for row := 0; row < cs.size; row++ {
		for col := 0; col < cs.size; col++ {
			x := baseX + col
			y := baseY + row
			kind := c.Tiles[row*cs.size+col]
			if kind == TileWater {
				continue
			}
			t := Tile{X: x, Y: y}
			if blocked != nil && blocked(t) {
				continue
			}
			species := cs.rollSpecies(kind, x, y)
			if species == "" {
				continue
			}
			def, ok := cs.cats.Resources.Defs[species]
			if !ok {
				continue
			}
			node := &ResourceNode{
				Tile:    t,
				Species: species,
				HP:      def.HP,
				Size:    initialSize(seed, x, y, def.MaxSize),
			}
			if node.Size < def.MaxSize && def.GrowthMs > 0 && growthTicks != nil {
				node.NextGrowth = nowTick + growthTicks(species)
			}
			c.Resources[t] = node
		}
	}
}

// rollSpecies decides what, if anything, grows on a tile. Density scores
// blend the dedicated noise channel with moisture or elevation; the hash
// roll keeps placements sparse inside dense score regions.
func (cs *ChunkStore) rollSpecies(kind TileKind, x, y int) string {
	seed := uint64(cs.seed)
	fx := float64(x)
	fy := float64(y)

	switch kind {
	case TileGrass, TileFlower, TileDirt:
		score := cs.noise.tree.at(fx, fy) + cs.noise.moisture.at(fx, fy)*0.25
		if score > 0.25 && hash01(seed, x, y) < score*0.45+0.1 {
			if kind == TileDirt {
				return "pine"
			}
			if hash01(seed+5, x, y) < 0.18 {
				return "apple_tree"
			}
			return "tree"
		}
	case TileSand:
		score := cs.noise.tree.at(fx, fy) + cs.noise.moisture.at(fx, fy)*0.25
		if score > 0.4 && hash01(seed, x, y) < score*0.3 {
			return "palm"
		}
	}

	if kind != TileSand {
		score := cs.noise.rock.at(fx, fy) + cs.noise.elevation.at(fx, fy)*0.2
		if score > 0.48 && hash01(seed+991, x, y) < score*0.4+0.05 {
			return "rock"
		}
	}
	return ""
}

func initialSize(seed uint64, x, y, maxSize int) int {
	if maxSize <= 1 {
		return 1
	}
	s := 1 + int(hash01(seed+7, x, y)*float64(maxSize))
	if s > maxSize {
		s = maxSize
	}
	return s
}

// monsterRoll returns the initial species list for a chunk: 0-2 monsters
// weighted by the catalog spawn table, each with a deterministic in-chunk
// position suggestion.
func (cs *ChunkStore) monsterRoll(key ChunkKey) []monsterSpawn {
	seed := uint64(cs.seed)
	base := hash2(seed^0xD1B54A32, uint64(int64(key.CX)), uint64(int64(key.CY)))
	count := int(base % 3)
	if count == 0 {
		return nil
	}

	total := 0
	ids := make([]string, 0, len(cs.cats.Monsters.Defs))
	for _, id := range sortedKeysOf(cs.cats.Monsters.Defs) {
		ids = append(ids, id)
		total += cs.cats.Monsters.Defs[id].SpawnWeight
	}
	if total == 0 {
		return nil
	}

	out := make([]monsterSpawn, 0, count)
	for i := 0; i < count; i++ {
		local := hashU64(base + uint64(i)*0x9E3779B97F4A7C15)
		col := int(local % uint64(cs.size))
		row := int((local >> 8) % uint64(cs.size))
		x := key.CX*cs.size + col
		y := key.CY*cs.size + row
		if cs.TileKind(x, y) == TileWater {
			continue
		}
		pick := int((local >> 16) % uint64(total))
		species := ids[0]
		for _, id := range ids {
			pick -= cs.cats.Monsters.Defs[id].SpawnWeight
			if pick < 0 {
				species = id
				break
			}
		}
		out = append(out, monsterSpawn{
			Species: species,
			Pos:     Vec2{X: float64(x) + 0.5, Y: float64(y) + 0.5},
		})
	}
	return out
}

type monsterSpawn struct {
	Species string
	Pos     Vec2
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorInt(v float64) int {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}
