package protocol

// CHUNK (server -> client): terrain rows plus everything anchored in the
// chunk. Tiles[row][col] is a one-letter terrain code.
type ChunkMsg struct {
	Type       string         `json:"type"`
	CX         int            `json:"cx"`
	CY         int            `json:"cy"`
	Tiles      [][]string     `json:"tiles"`
	Resources  []ResourceObs  `json:"resources"`
	Structures []StructureObs `json:"structures"`
}

// STATE (server -> client): the per-tick visibility diff. Update lists carry
// the full visible set; removed lists name ids that left the visible set.
type StateMsg struct {
	Type               string          `json:"type"`
	Tick               uint64          `json:"tick"`
	AckSeq             uint64          `json:"ack_seq"`
	Players            []PlayerObs     `json:"players"`
	Monsters           []MonsterObs    `json:"monsters"`
	Projectiles        []ProjectileObs `json:"projectiles"`
	RemovedPlayers     []string        `json:"removed_players,omitempty"`
	RemovedMonsters    []string        `json:"removed_monsters,omitempty"`
	RemovedProjectiles []string        `json:"removed_projectiles,omitempty"`
}

type PlayerObs struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	FacingX   float64 `json:"fx"`
	FacingY   float64 `json:"fy"`
	HP        int     `json:"hp"`
	Community string  `json:"community,omitempty"`
	Typing    bool    `json:"typing,omitempty"`
}

type MonsterObs struct {
	ID      string  `json:"id"`
	Species string  `json:"species"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	HP      int     `json:"hp"`
}

type ProjectileObs struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type ResourceObs struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Species string `json:"species"`
	HP      int    `json:"hp"`
	Size    int    `json:"size"`
}

type StructureObs struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Kind    string `json:"kind"`
	GroupID string `json:"group_id"`
	Owner   string `json:"owner,omitempty"`
}

// RESOURCE (server -> client): State is "spawned", "removed" or "hit".
type ResourceMsg struct {
	Type     string      `json:"type"`
	State    string      `json:"state"`
	Resource ResourceObs `json:"resource"`
}

// STRUCTURE (server -> client): State is "built" or "removed".
type StructureMsg struct {
	Type       string         `json:"type"`
	State      string         `json:"state"`
	Structures []StructureObs `json:"structures"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type InventoryMsg struct {
	Type  string      `json:"type"`
	Items []ItemStack `json:"items"`
}

type StorageMsg struct {
	Type      string      `json:"type"`
	StorageID string      `json:"storage_id"`
	Items     []ItemStack `json:"items"`
}

type DialogMsg struct {
	Type  string   `json:"type"`
	NPC   string   `json:"npc"`
	Lines []string `json:"lines"`
}

// SYSTEM (server -> client): Code identifies the notice for machine use,
// Text is already localized for the client's language tag.
type SystemMsg struct {
	Type string `json:"type"`
	Code string `json:"code,omitempty"`
	Text string `json:"text"`
}

// APPROVAL (server -> client): State is "proposed", "resolved", "declined"
// or "expired". Prompts carry the expiry tick so clients can show a timer.
type ApprovalMsg struct {
	Type       string `json:"type"`
	ApprovalID string `json:"approval_id"`
	Kind       string `json:"kind"`
	State      string `json:"state"`
	Text       string `json:"text,omitempty"`
	ExpiresAt  uint64 `json:"expires_at,omitempty"`
}

// Event is a loose record for audit logging.
type Event map[string]interface{}
