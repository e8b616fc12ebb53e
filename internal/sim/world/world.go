package world

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/text/language"

	"wildmere.gg/internal/protocol"
	"wildmere.gg/internal/sim/catalogs"
	"wildmere.gg/internal/sim/tuning"
)

type Config struct {
	Seed int64
	Tun  tuning.Tuning
}

// JoinRequest enters the world loop from the transport. Saved is the
// player's persisted snapshot, loaded by the caller before joining; nil
// means a brand-new player.
type JoinRequest struct {
	PlayerID string
	Name     string
	Locale   string
	Saved    *PlayerSnapshot
	Out      chan []byte
	Resp     chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

// LeaveRequest names both the player and the connection that is going
// away. A reconnect replaces the client entry, so the old socket's leave
// must not evict the new session.
type LeaveRequest struct {
	PlayerID string
	Out      chan []byte
}

// IntentEnvelope carries one decoded client message into the loop. Raw is
// re-unmarshalled per type inside the tick; the transport only validates
// the base frame.
type IntentEnvelope struct {
	PlayerID string
	Type     string
	Raw      json.RawMessage
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg  Config
	tun  tuning.Tuning
	cats *catalogs.Catalogs

	tick atomic.Uint64

	chunks *ChunkStore

	players     map[string]*Player
	clients     map[string]*clientState
	monsters    map[string]*Monster
	projectiles map[string]*Projectile

	structures map[string]*Structure
	structAt   map[Tile]*Structure

	communities map[string]*Community
	storages    map[string]*Storage

	approvals      map[string]*Approval
	pendingTargets map[string]string // suppression: target key -> approval id

	inbox chan IntentEnvelope
	join  chan JoinRequest
	leave chan LeaveRequest
	stop  chan struct{}

	nextMonsterNum    atomic.Uint64
	nextProjectileNum atomic.Uint64
	nextCommunityNum  atomic.Uint64
	nextStorageNum    atomic.Uint64
	nextApprovalNum   atomic.Uint64
	nextGroupNum      atomic.Uint64

	// Optional write-behind sink (may be nil). Implemented in
	// internal/persistence/store; every call must return without blocking.
	saver Saver

	// Optional loggers (may be nil). Implemented in internal/persistence/log.
	tickLogger  TickLogger
	auditLogger AuditLogger

	communitiesDirty bool
	structuresDirty  bool

	stats atomic.Pointer[Metrics]
}

// Metrics is a point-in-time view published once per tick. Queue depths
// are sampled at read time; everything else is from the last finished step.
type Metrics struct {
	Tick         uint64
	Players      int
	Clients      int
	Monsters     int
	LoadedChunks int
	Approvals    int
	StepMS       float64

	InboxDepth int
	JoinDepth  int
	LeaveDepth int
}

// Saver is the write-behind persistence bridge. Implementations enqueue and
// return immediately.
type Saver interface {
	SavePlayer(snap PlayerSnapshot)
	SaveCommunities(snaps []CommunitySnapshot)
	SaveStructures(snaps []StructureSnapshot)
	SaveStorage(snap StorageSnapshot)
	DeleteStructureGroup(groupID string)
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick    uint64   `json:"tick"`
	Joins   []string `json:"joins,omitempty"`
	Leaves  []string `json:"leaves,omitempty"`
	Intents int      `json:"intents,omitempty"`
	Players int      `json:"players"`
}

type AuditEntry struct {
	Tick   uint64         `json:"tick"`
	Actor  string         `json:"actor"`
	Action string         `json:"action"` // e.g. "BUILD", "APPROVAL_RESOLVED"
	Detail protocol.Event `json:"detail,omitempty"`
}

// PlayerSnapshot is the persisted shape of a player. Live state is
// authoritative; this is the write-behind copy.
type PlayerSnapshot struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	HP        int            `json:"hp"`
	Inventory map[string]int `json:"inventory"`
	Completed []string       `json:"completed_quests"`
	Community string         `json:"community,omitempty"`
	Locale    string         `json:"locale,omitempty"`
}

type CommunitySnapshot struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Members []string    `json:"members"`
	Areas   []ClaimArea `json:"areas"`
}

type StructureSnapshot struct {
	GroupID string `json:"group_id"`
	Kind    string `json:"kind"`
	Owner   string `json:"owner"`
	Tiles   []Tile `json:"tiles"`
	Storage string `json:"storage,omitempty"`
}

type StorageSnapshot struct {
	ID        string         `json:"id"`
	Community string         `json:"community"`
	Items     map[string]int `json:"items"`
}

// BootState is everything load-all recovers at startup.
type BootState struct {
	Communities []CommunitySnapshot
	Structures  []StructureSnapshot
	Storages    []StorageSnapshot
}

type clientState struct {
	Out    chan []byte
	Locale language.Tag

	seenPlayers     map[string]struct{}
	seenMonsters    map[string]struct{}
	seenProjectiles map[string]struct{}
}

func New(cfg Config, cats *catalogs.Catalogs, boot BootState) *World {
	w := &World{
		cfg:  cfg,
		tun:  cfg.Tun,
		cats: cats,

		players:     map[string]*Player{},
		clients:     map[string]*clientState{},
		monsters:    map[string]*Monster{},
		projectiles: map[string]*Projectile{},

		structures: map[string]*Structure{},
		structAt:   map[Tile]*Structure{},

		communities: map[string]*Community{},
		storages:    map[string]*Storage{},

		approvals:      map[string]*Approval{},
		pendingTargets: map[string]string{},

		inbox: make(chan IntentEnvelope, 1024),
		join:  make(chan JoinRequest, 64),
		leave: make(chan LeaveRequest, 64),
		stop:  make(chan struct{}),
	}
	w.chunks = NewChunkStore(cfg.Seed, cfg.Tun, cats)
	w.restore(boot)
	return w
}

func (w *World) restore(boot BootState) {
	for i := range boot.Communities {
		s := boot.Communities[i]
		c := &Community{ID: s.ID, Name: s.Name, Members: map[string]bool{}, Areas: s.Areas}
		for _, m := range s.Members {
			c.Members[m] = true
		}
		w.communities[s.ID] = c
		bumpCounter(&w.nextCommunityNum, s.ID, "C")
	}
	for i := range boot.Structures {
		s := boot.Structures[i]
		kind, ok := ParseStructureKind(s.Kind)
		if !ok {
			continue
		}
		st := &Structure{GroupID: s.GroupID, Kind: kind, Owner: s.Owner, Tiles: s.Tiles, Storage: s.Storage}
		w.structures[s.GroupID] = st
		for _, t := range s.Tiles {
			w.structAt[t] = st
		}
		bumpCounter(&w.nextGroupNum, s.GroupID, "S")
	}
	for i := range boot.Storages {
		s := boot.Storages[i]
		items := s.Items
		if items == nil {
			items = map[string]int{}
		}
		w.storages[s.ID] = &Storage{ID: s.ID, Community: s.Community, Items: items}
		bumpCounter(&w.nextStorageNum, s.ID, "ST")
	}
}

// bumpCounter advances an id counter past a restored id so freshly minted
// ids never collide with persisted ones.
func bumpCounter(c *atomic.Uint64, id, prefix string) {
	n, err := strconv.ParseUint(strings.TrimPrefix(id, prefix), 10, 64)
	if err != nil {
		return
	}
	for {
		cur := c.Load()
		if cur >= n || c.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (w *World) SetSaver(s Saver)             { w.saver = s }
func (w *World) SetTickLogger(l TickLogger)   { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

func (w *World) Inbox() chan<- IntentEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- LeaveRequest   { return w.leave }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Metrics is safe to call from any goroutine.
func (w *World) Metrics() Metrics {
	var m Metrics
	if p := w.stats.Load(); p != nil {
		m = *p
	}
	m.InboxDepth = len(w.inbox)
	m.JoinDepth = len(w.join)
	m.LeaveDepth = len(w.leave)
	return m
}

func (w *World) TickRateHz() int { return w.tun.TickRateHz }

// msToTicks converts a millisecond tuning value to whole ticks, rounding up
// so short cooldowns never collapse to zero.
func (w *World) msToTicks(ms int) uint64 {
	tickMs := 1000 / w.tun.TickRateHz
	n := (ms + tickMs - 1) / tickMs
	if n < 1 {
		n = 1
	}
	return uint64(n)
}

func (w *World) audit(tick uint64, actor, action string, detail protocol.Event) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{Tick: tick, Actor: actor, Action: action, Detail: detail})
}
