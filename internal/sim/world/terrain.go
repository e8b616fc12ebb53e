package world

import "math"

type TileKind uint8

const (
	TileGrass TileKind = iota
	TileWater
	TileSand
	TileDirt
	TileFlower
)

func (k TileKind) Code() string {
	switch k {
	case TileWater:
		return "w"
	case TileSand:
		return "s"
	case TileDirt:
		return "d"
	case TileFlower:
		return "f"
	default:
		return "g"
	}
}

// terrainNoise is the set of independently seeded fractal channels the
// classifier reads. Pure per (seed, x, y); nothing here touches world
// state, so classification is referentially transparent and safe to call
// from tests directly.
type terrainNoise struct {
	elevation fbm
	moisture  fbm
	soil      fbm
	river     fbm
	tree      fbm
	rock      fbm
	flower    fbm
}

func newTerrainNoise(seed int64) terrainNoise {
	s := uint64(seed)
	return terrainNoise{
		elevation: newFBM(s+11, 0.008, 4),
		moisture:  newFBM(s+23, 0.01, 3),
		soil:      newFBM(s+37, 0.02, 2),
		river:     newFBM(s+41, 0.02, 2),
		tree:      newFBM(s+59, 0.045, 3),
		rock:      newFBM(s+71, 0.06, 2),
		flower:    newFBM(s+83, 0.07, 2),
	}
}

// fbm is multi-octave value noise with amplitude halving per octave,
// normalized back to roughly [-1, 1].
type fbm struct {
	seed    uint64
	freq    float64
	octaves int
}

func newFBM(seed uint64, freq float64, octaves int) fbm {
	return fbm{seed: seed, freq: freq, octaves: octaves}
}

func (f fbm) at(x, y float64) float64 {
	sum := 0.0
	amp := 1.0
	norm := 0.0
	fx := x * f.freq
	fy := y * f.freq
	for o := 0; o < f.octaves; o++ {
		sum += amp * valueNoise(f.seed+uint64(o)*0x9E37, fx, fy)
		norm += amp
		amp *= 0.5
		fx *= 2
		fy *= 2
	}
	return sum / norm
}

// valueNoise interpolates hashed lattice values with smoothstep weights.
// The lattice hash has full avalanche mixing, so there are no visible
// diagonal artifacts even at low frequency.
func valueNoise(seed uint64, x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	tx := smooth(x - x0)
	ty := smooth(y - y0)
	ix := int64(x0)
	iy := int64(y0)

	v00 := latticeVal(seed, ix, iy)
	v10 := latticeVal(seed, ix+1, iy)
	v01 := latticeVal(seed, ix, iy+1)
	v11 := latticeVal(seed, ix+1, iy+1)

	a := v00 + (v10-v00)*tx
	b := v01 + (v11-v01)*tx
	return a + (b-a)*ty
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func latticeVal(seed uint64, x, y int64) float64 {
	h := hash2(seed, uint64(x), uint64(y))
	return float64(h%20001)/10000.0 - 1.0
}

// tileKindAt classifies one world tile. First match wins: water (deep or
// river band), shore sand, dry sand, fertile dirt, grass upgraded to
// flower.
func (n terrainNoise) tileKindAt(t TerrainParams, x, y int) TileKind {
	fx := float64(x)
	fy := float64(y)
	elev := n.elevation.at(fx, fy)
	if elev < t.WaterLevel {
		return TileWater
	}
	if elev < t.RiverMaxElev && math.Abs(n.river.at(fx, fy)) < t.RiverBand {
		return TileWater
	}
	if elev < t.ShoreLevel {
		return TileSand
	}
	moist := n.moisture.at(fx, fy)
	if moist < t.SandMoisture && elev < t.SandMaxElev {
		return TileSand
	}
	if n.soil.at(fx, fy) > t.DirtSoil && moist > t.DirtMoisture {
		return TileDirt
	}
	if n.flower.at(fx, fy) > t.FlowerScore {
		return TileFlower
	}
	return TileGrass
}

// TerrainParams mirrors tuning.Terrain without importing it here.
type TerrainParams struct {
	WaterLevel   float64
	ShoreLevel   float64
	RiverBand    float64
	RiverMaxElev float64
	SandMoisture float64
	SandMaxElev  float64
	DirtSoil     float64
	DirtMoisture float64
	FlowerScore  float64
}

// hashU64 is splitmix64 finalization: cheap and avalanching.
func hashU64(v uint64) uint64 {
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func hash2(seed, x, y uint64) uint64 {
	return hashU64(seed ^ x*0x9E3779B97F4A7C15 ^ y*0xC2B2AE3D27D4EB4F)
}

func hashStr(s string) uint64 {
	h := uint64(1469598103934665603)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return hashU64(h)
}

// hash01 maps (seed, x, y) to [0, 1) for reproducible per-tile rolls.
func hash01(seed uint64, x, y int) float64 {
	return float64(hash2(seed, uint64(int64(x)), uint64(int64(y)))%10000) / 10000.0
}
