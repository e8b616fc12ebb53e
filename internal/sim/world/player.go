package world

import (
	"encoding/json"
	"fmt"

	"wildmere.gg/internal/locale"
	"wildmere.gg/internal/protocol"
)

type Vec2 struct {
	X float64
	Y float64
}

type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func tileOf(p Vec2) Tile {
	return Tile{X: floorInt(p.X), Y: floorInt(p.Y)}
}

// InputState is the latest-value-wins intent from the client. It stays set
// until the next INPUT replaces it; action flags are edge-triggered by the
// per-action cooldowns, not by clearing the flag.
type InputState struct {
	Seq       uint64
	Dir       Vec2
	Attack    bool
	Gather    bool
	Interact  bool
	Predicted *Vec2
}

type Player struct {
	ID        string
	Name      string
	Pos       Vec2
	Facing    Vec2
	HP        int
	Inventory map[string]int
	Completed map[string]bool
	Community string // community id, "" when unaffiliated

	Input InputState

	lastGatherTick   uint64
	lastAttackTick   uint64
	lastInteractTick uint64

	typingUntil  uint64
	lastSaveTick uint64
	saveDigest   string
}

func (p *Player) initDefaults() {
	if p.Inventory == nil {
		p.Inventory = map[string]int{}
	}
	if p.Completed == nil {
		p.Completed = map[string]bool{}
	}
	if p.Facing == (Vec2{}) {
		p.Facing = Vec2{X: 0, Y: 1}
	}
}

func (w *World) handleLeave(req LeaveRequest) {
	// A reconnect replaced the client entry; the old socket's leave is
	// stale and must not evict the live session.
	if cl := w.clients[req.PlayerID]; cl != nil && req.Out != nil && cl.Out != req.Out {
		return
	}
	p := w.players[req.PlayerID]
	if p == nil {
		delete(w.clients, req.PlayerID)
		return
	}
	if w.saver != nil {
		w.saver.SavePlayer(w.snapshotPlayer(p))
	}
	delete(w.players, req.PlayerID)
	delete(w.clients, req.PlayerID)
}

func (w *World) handleJoin(req JoinRequest, nowTick uint64) {
	if p := w.players[req.PlayerID]; p != nil {
		// Reconnect: the simulation state is live and authoritative, the
		// new connection just takes over the client slot.
		w.attachClient(p, req)
		w.welcome(p, req)
		w.audit(nowTick, p.ID, "REJOIN", protocol.Event{"name": p.Name})
		return
	}

	p := &Player{
		ID: req.PlayerID,
		HP: w.tun.MaxHP,
	}
	if req.Saved != nil {
		s := req.Saved
		p.Name = s.Name
		p.Pos = Vec2{X: s.X, Y: s.Y}
		p.HP = s.HP
		p.Inventory = s.Inventory
		for _, q := range s.Completed {
			if p.Completed == nil {
				p.Completed = map[string]bool{}
			}
			p.Completed[q] = true
		}
		if c := w.communities[s.Community]; c != nil && c.Members[p.ID] {
			p.Community = s.Community
		}
	} else {
		p.Name = req.Name
		p.Pos = w.safeSpawn()
		p.Inventory = map[string]int{
			"basic_axe":   1,
			"basic_pick":  1,
			"rusty_sword": 1,
		}
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("Adventurer%04d", (hashU64(uint64(w.cfg.Seed))^hashStr(p.ID))%10000)
	}
	p.initDefaults()
	if p.HP <= 0 || p.HP > w.tun.MaxHP {
		p.HP = w.tun.MaxHP
	}
	// Never rejoin inside water or a structure (terrain may differ if the
	// seed changed between runs).
	if !w.canWalk(p.Community, p.Pos) {
		p.Pos = w.safeSpawn()
	}

	w.players[p.ID] = p
	w.attachClient(p, req)
	w.welcome(p, req)
	w.audit(nowTick, p.ID, "JOIN", protocol.Event{"name": p.Name})
}

func (w *World) attachClient(p *Player, req JoinRequest) {
	if req.Out == nil {
		return
	}
	w.clients[p.ID] = &clientState{
		Out:             req.Out,
		Locale:          locale.Match(req.Locale),
		seenPlayers:     map[string]struct{}{},
		seenMonsters:    map[string]struct{}{},
		seenProjectiles: map[string]struct{}{},
	}
}

func (w *World) welcome(p *Player, req JoinRequest) {
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        p.ID,
		Name:            p.Name,
		TickRateHz:      w.tun.TickRateHz,
		ChunkSize:       w.tun.ChunkSize,
		MaxHP:           w.tun.MaxHP,
		Catalogs: protocol.CatalogDigests{
			Items:     protocol.DigestRef{Digest: w.cats.Items.Digest, Count: len(w.cats.Items.Defs)},
			Resources: protocol.DigestRef{Digest: w.cats.Resources.Digest, Count: len(w.cats.Resources.Defs)},
			Monsters:  protocol.DigestRef{Digest: w.cats.Monsters.Digest, Count: len(w.cats.Monsters.Defs)},
			Quests:    protocol.DigestRef{Digest: w.cats.Quests.Digest, Count: len(w.cats.Quests.Defs)},
			NPCs:      protocol.DigestRef{Digest: w.cats.NPCs.Digest, Count: len(w.cats.NPCs.Defs)},
		},
	}
	if req.Resp != nil {
		req.Resp <- JoinResponse{Welcome: welcome}
	}
	w.sendInventory(p)
}

func (w *World) snapshotPlayer(p *Player) PlayerSnapshot {
	inv := make(map[string]int, len(p.Inventory))
	for k, v := range p.Inventory {
		inv[k] = v
	}
	completed := sortedKeysOf(p.Completed)
	snap := PlayerSnapshot{
		ID:        p.ID,
		Name:      p.Name,
		X:         p.Pos.X,
		Y:         p.Pos.Y,
		HP:        p.HP,
		Inventory: inv,
		Completed: completed,
		Community: p.Community,
	}
	if cl := w.clients[p.ID]; cl != nil {
		snap.Locale = cl.Locale.String()
	}
	return snap
}

// safeSpawn finds a walkable tile near the origin campfire, spiralling
// outward ring by ring.
func (w *World) safeSpawn() Vec2 {
	if ok, pos := w.trySpawnTile(0, 0); ok {
		return pos
	}
	for r := 1; r <= 8; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if maxAbs(dx, dy) != r {
					continue
				}
				if ok, pos := w.trySpawnTile(dx, dy); ok {
					return pos
				}
			}
		}
	}
	return Vec2{X: 0.5, Y: 0.5}
}

func (w *World) trySpawnTile(x, y int) (bool, Vec2) {
	t := Tile{X: x, Y: y}
	if w.chunks.TileKind(x, y) == TileWater {
		return false, Vec2{}
	}
	if w.structAt[t] != nil {
		return false, Vec2{}
	}
	return true, Vec2{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

func (w *World) sendTo(playerID string, v any) {
	cl := w.clients[playerID]
	if cl == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	trySend(cl.Out, b)
}

// notify sends a localized SYSTEM notice to one player.
func (w *World) notify(playerID, code string, args ...any) {
	cl := w.clients[playerID]
	if cl == nil {
		return
	}
	w.sendTo(playerID, protocol.SystemMsg{
		Type: protocol.TypeSystem,
		Code: code,
		Text: locale.T(cl.Locale, code, args...),
	})
}

func (w *World) sendInventory(p *Player) {
	w.sendTo(p.ID, protocol.InventoryMsg{
		Type:  protocol.TypeInventory,
		Items: stacksOf(p.Inventory),
	})
}

func stacksOf(inv map[string]int) []protocol.ItemStack {
	out := make([]protocol.ItemStack, 0, len(inv))
	for _, item := range sortedKeysOf(inv) {
		out = append(out, protocol.ItemStack{Item: item, Count: inv[item]})
	}
	return out
}

func hasItems(inv map[string]int, want map[string]int) bool {
	for item, n := range want {
		if inv[item] < n {
			return false
		}
	}
	return true
}

func takeItems(inv map[string]int, want map[string]int) {
	for item, n := range want {
		inv[item] -= n
		if inv[item] <= 0 {
			delete(inv, item)
		}
	}
}

func grantItems(inv map[string]int, give map[string]int) {
	for item, n := range give {
		if n > 0 {
			inv[item] += n
		}
	}
}
