package protocol

// HELLO (client -> server). SessionID comes from the /api/session bootstrap;
// an empty one makes the server mint a fresh identity.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id,omitempty"`
	Name            string `json:"name,omitempty"`
	Locale          string `json:"locale,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	PlayerID        string         `json:"player_id"`
	Name            string         `json:"name"`
	TickRateHz      int            `json:"tick_rate_hz"`
	ChunkSize       int            `json:"chunk_size"`
	MaxHP           int            `json:"max_hp"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	Items     DigestRef `json:"items"`
	Resources DigestRef `json:"resources"`
	Monsters  DigestRef `json:"monsters"`
	Quests    DigestRef `json:"quests"`
	NPCs      DigestRef `json:"npcs"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// INPUT (client -> server): latest-value-wins movement and action flags.
type InputMsg struct {
	Type      string      `json:"type"`
	Seq       uint64      `json:"seq"`
	DX        float64     `json:"dx"`
	DY        float64     `json:"dy"`
	Attack    bool        `json:"attack,omitempty"`
	Gather    bool        `json:"gather,omitempty"`
	Interact  bool        `json:"interact,omitempty"`
	Predicted *[2]float64 `json:"predicted,omitempty"`
}

type ChatMsg struct {
	Type string `json:"type"`
	From string `json:"from,omitempty"`
	Name string `json:"name,omitempty"`
	Text string `json:"text"`
}

type TypingMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id,omitempty"`
	Typing   bool   `json:"typing"`
}

type SetNameMsg struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type UseItemMsg struct {
	Type string `json:"type"`
	Item string `json:"item"`
}

// BUILD (client -> server). X,Y is the structure anchor tile.
type BuildMsg struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type DemolishMsg struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type StoreMsg struct {
	Type      string `json:"type"`
	StorageID string `json:"storage_id"`
	Item      string `json:"item"`
	Count     int    `json:"count"`
}

type ApprovalVoteMsg struct {
	Type       string `json:"type"`
	ApprovalID string `json:"approval_id"`
	Approve    bool   `json:"approve"`
}

// COMMUNITY (client -> server). Op is FOUND, INVITE or LEAVE.
type CommunityMsg struct {
	Type     string `json:"type"`
	Op       string `json:"op"`
	Name     string `json:"name,omitempty"`
	TargetID string `json:"target_id,omitempty"`
}

type ChunkRequestMsg struct {
	Type string `json:"type"`
	CX   int    `json:"cx"`
	CY   int    `json:"cy"`
}

type SetLocaleMsg struct {
	Type   string `json:"type"`
	Locale string `json:"locale"`
}

type PingMsg struct {
	Type string `json:"type"`
	T    int64  `json:"t,omitempty"`
}

type PongMsg struct {
	Type string `json:"type"`
	T    int64  `json:"t,omitempty"`
	Tick uint64 `json:"tick"`
}
