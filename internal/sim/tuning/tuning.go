package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`
	ChunkSize  int `yaml:"chunk_size"`
	MaxHP      int `yaml:"max_hp"`

	PlayerSpeed float64 `yaml:"player_speed"`

	GatherRange        float64 `yaml:"gather_range"`
	GatherCooldownMs   int     `yaml:"gather_cooldown_ms"`
	AttackCooldownMs   int     `yaml:"attack_cooldown_ms"`
	InteractRange      float64 `yaml:"interact_range"`
	InteractCooldownMs int     `yaml:"interact_cooldown_ms"`
	MeleeRange         float64 `yaml:"melee_range"`

	MonsterAggroRange   float64 `yaml:"monster_aggro_range"`
	MonsterAttackRange  float64 `yaml:"monster_attack_range"`
	MonsterAttackCdMs   int     `yaml:"monster_attack_cd_ms"`
	MonsterWanderMs     int     `yaml:"monster_wander_ms"`
	MonsterWanderSpeedK float64 `yaml:"monster_wander_speed_k"`

	ProjectileSpeed    float64 `yaml:"projectile_speed"`
	ProjectileTTLMs    int     `yaml:"projectile_ttl_ms"`
	ProjectileHitRange float64 `yaml:"projectile_hit_range"`
	ProjectileOffset   float64 `yaml:"projectile_offset"`
	KillAwardRange     float64 `yaml:"kill_award_range"`

	VisibilityRadiusChunks int `yaml:"visibility_radius_chunks"`
	KeepRadiusChunks       int `yaml:"keep_radius_chunks"`
	ChunkEvictTTLMs        int `yaml:"chunk_evict_ttl_ms"`

	SaveIntervalMs    int `yaml:"save_interval_ms"`
	ApprovalTimeoutMs int `yaml:"approval_timeout_ms"`
	TypingTimeoutMs   int `yaml:"typing_timeout_ms"`
	ChatMaxLen        int `yaml:"chat_max_len"`

	Terrain Terrain `yaml:"terrain"`
}

// Terrain holds the classification thresholds. Changing any of these
// changes the world that a given seed produces.
type Terrain struct {
	WaterLevel   float64 `yaml:"water_level"`
	ShoreLevel   float64 `yaml:"shore_level"`
	RiverBand    float64 `yaml:"river_band"`
	RiverMaxElev float64 `yaml:"river_max_elev"`
	SandMoisture float64 `yaml:"sand_moisture"`
	SandMaxElev  float64 `yaml:"sand_max_elev"`
	DirtSoil     float64 `yaml:"dirt_soil"`
	DirtMoisture float64 `yaml:"dirt_moisture"`
	FlowerScore  float64 `yaml:"flower_score"`
}

// Default returns the authoritative tuning values. A tuning.yaml file
// overrides them wholesale for the fields it sets.
func Default() Tuning {
	return Tuning{
		TickRateHz: 10,
		ChunkSize:  16,
		MaxHP:      10,

		PlayerSpeed: 3.4,

		GatherRange:        1.1,
		GatherCooldownMs:   400,
		AttackCooldownMs:   400,
		InteractRange:      1.2,
		InteractCooldownMs: 500,
		MeleeRange:         0.8,

		MonsterAggroRange:   5.0,
		MonsterAttackRange:  0.8,
		MonsterAttackCdMs:   800,
		MonsterWanderMs:     1200,
		MonsterWanderSpeedK: 0.4,

		ProjectileSpeed:    7.0,
		ProjectileTTLMs:    1200,
		ProjectileHitRange: 0.5,
		ProjectileOffset:   0.6,
		KillAwardRange:     2.0,

		VisibilityRadiusChunks: 2,
		KeepRadiusChunks:       3,
		ChunkEvictTTLMs:        30000,

		SaveIntervalMs:    5000,
		ApprovalTimeoutMs: 60000,
		TypingTimeoutMs:   2500,
		ChatMaxLen:        160,

		Terrain: Terrain{
			WaterLevel:   -0.18,
			ShoreLevel:   -0.08,
			RiverBand:    0.06,
			RiverMaxElev: 0.35,
			SandMoisture: -0.55,
			SandMaxElev:  0.4,
			DirtSoil:     0.45,
			DirtMoisture: -0.2,
			FlowerScore:  0.62,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
