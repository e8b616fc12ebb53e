package world

import (
	"encoding/json"
	"log"
	"strings"

	"wildmere.gg/internal/locale"
	"wildmere.gg/internal/protocol"
)

// handleIntent applies one client message at the tick boundary. Malformed
// payloads are dropped with an error notice; nothing here may block.
func (w *World) handleIntent(env IntentEnvelope, nowTick uint64) {
	p := w.players[env.PlayerID]
	cl := w.clients[env.PlayerID]
	if p == nil || cl == nil {
		return
	}

	switch env.Type {
	case protocol.TypeInput:
		var m protocol.InputMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.applyInput(p, m)
	case protocol.TypeChat:
		var m protocol.ChatMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.handleChat(p, m.Text)
	case protocol.TypeTyping:
		var m protocol.TypingMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		if m.Typing {
			p.typingUntil = nowTick + w.msToTicks(w.tun.TypingTimeoutMs)
		} else {
			p.typingUntil = 0
		}
	case protocol.TypeSetName:
		var m protocol.SetNameMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.handleSetName(p, m.Name, nowTick)
	case protocol.TypeUseItem:
		var m protocol.UseItemMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.handleUseItem(p, m.Item, nowTick)
	case protocol.TypeBuild:
		var m protocol.BuildMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		kind, ok := ParseStructureKind(m.Kind)
		if !ok {
			w.sendError(p.ID, protocol.ErrInvalidTarget)
			return
		}
		w.proposeBuild(p, kind, Tile{X: m.X, Y: m.Y}, nowTick)
	case protocol.TypeDemolish:
		var m protocol.DemolishMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.handleDemolish(p, Tile{X: m.X, Y: m.Y}, nowTick)
	case protocol.TypeStoreDeposit:
		var m protocol.StoreMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.handleStore(p, m, true)
	case protocol.TypeStoreWithdraw:
		var m protocol.StoreMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.handleStore(p, m, false)
	case protocol.TypeApprovalVote:
		var m protocol.ApprovalVoteMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.handleVote(p.ID, m.ApprovalID, m.Approve, nowTick)
	case protocol.TypeCommunity:
		var m protocol.CommunityMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.handleCommunity(p, m, nowTick)
	case protocol.TypeChunkRequest:
		var m protocol.ChunkRequestMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.serveChunk(p, cl, ChunkKey{CX: m.CX, CY: m.CY}, nowTick)
	case protocol.TypeSetLocale:
		var m protocol.SetLocaleMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		cl.Locale = locale.Match(m.Locale)
	case protocol.TypePing:
		var m protocol.PingMsg
		if !w.decodeIntent(env, &m) {
			return
		}
		w.sendTo(p.ID, protocol.PongMsg{Type: protocol.TypePong, T: m.T, Tick: nowTick})
	default:
		w.sendError(p.ID, protocol.ErrProtoBadRequest)
	}
}

func (w *World) decodeIntent(env IntentEnvelope, out any) bool {
	if err := json.Unmarshal(env.Raw, out); err != nil {
		log.Printf("[world] bad %s from %s: %v", env.Type, env.PlayerID, err)
		w.sendError(env.PlayerID, protocol.ErrProtoBadRequest)
		return false
	}
	return true
}

func (w *World) sendError(playerID, code string) {
	w.sendTo(playerID, protocol.SystemMsg{Type: protocol.TypeSystem, Code: code, Text: code})
}

// applyInput stores the latest movement intent. Direction components are
// clamped so a hacked client cannot exceed unit speed.
func (w *World) applyInput(p *Player, m protocol.InputMsg) {
	if m.Seq <= p.Input.Seq && m.Seq != 0 {
		return
	}
	in := InputState{
		Seq:      m.Seq,
		Dir:      Vec2{X: clamp(m.DX, -1, 1), Y: clamp(m.DY, -1, 1)},
		Attack:   m.Attack,
		Gather:   m.Gather,
		Interact: m.Interact,
	}
	if m.Predicted != nil {
		in.Predicted = &Vec2{X: m.Predicted[0], Y: m.Predicted[1]}
	}
	p.Input = in
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// handleChat relays to everyone whose interest area covers the speaker.
func (w *World) handleChat(p *Player, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if r := []rune(text); len(r) > w.tun.ChatMaxLen {
		text = string(r[:w.tun.ChatMaxLen])
	}
	msg := protocol.ChatMsg{Type: protocol.TypeChat, From: p.ID, Name: p.Name, Text: text}
	from := w.chunks.KeyFor(tileOf(p.Pos).X, tileOf(p.Pos).Y)
	for _, id := range sortedKeysOf(w.clients) {
		other := w.players[id]
		if other == nil {
			continue
		}
		at := w.chunks.KeyFor(tileOf(other.Pos).X, tileOf(other.Pos).Y)
		if chebyshevChunks(from, at) <= w.tun.VisibilityRadiusChunks {
			w.sendTo(id, msg)
		}
	}
	p.typingUntil = 0
}

func (w *World) handleSetName(p *Player, name string, nowTick uint64) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 24 {
		w.sendError(p.ID, protocol.ErrBadRequest)
		return
	}
	p.Name = name
	w.notify(p.ID, "notice.name_changed", name)
	w.audit(nowTick, p.ID, "SET_NAME", protocol.Event{"name": name})
}

func (w *World) handleUseItem(p *Player, item string, nowTick uint64) {
	def, ok := w.cats.Items.Defs[item]
	if !ok || p.Inventory[item] <= 0 {
		w.sendError(p.ID, protocol.ErrNoResource)
		return
	}
	if def.Kind != "food" || def.Heal <= 0 {
		w.sendError(p.ID, protocol.ErrInvalidTarget)
		return
	}
	takeItems(p.Inventory, map[string]int{item: 1})
	p.HP += def.Heal
	if p.HP > w.tun.MaxHP {
		p.HP = w.tun.MaxHP
	}
	w.sendInventory(p)
	w.audit(nowTick, p.ID, "USE_ITEM", protocol.Event{"item": item, "hp": p.HP})
}

func (w *World) handleDemolish(p *Player, t Tile, nowTick uint64) {
	st := w.structAt[t]
	if st == nil {
		w.sendError(p.ID, protocol.ErrInvalidTarget)
		return
	}
	allowed := st.Owner == p.ID
	if !allowed && w.communities[st.Owner] != nil {
		allowed = w.isMember(p.ID, st.Owner)
	}
	if !allowed {
		w.sendError(p.ID, protocol.ErrNoPermission)
		return
	}
	w.removeStructure(st, nowTick, p.ID)
}

func (w *World) handleStore(p *Player, m protocol.StoreMsg, deposit bool) {
	sto := w.storages[m.StorageID]
	if sto == nil || m.Count <= 0 || m.Item == "" {
		w.sendError(p.ID, protocol.ErrInvalidTarget)
		return
	}
	if !w.isMember(p.ID, sto.Community) {
		w.sendError(p.ID, protocol.ErrNoPermission)
		return
	}
	if w.nearestStorage(p.Pos, w.tun.InteractRange) != sto {
		w.sendError(p.ID, protocol.ErrInvalidTarget)
		return
	}
	want := map[string]int{m.Item: m.Count}
	if deposit {
		if !hasItems(p.Inventory, want) {
			w.sendError(p.ID, protocol.ErrNoResource)
			return
		}
		takeItems(p.Inventory, want)
		grantItems(sto.Items, want)
	} else {
		if !hasItems(sto.Items, want) {
			w.sendError(p.ID, protocol.ErrNoResource)
			return
		}
		takeItems(sto.Items, want)
		grantItems(p.Inventory, want)
	}
	w.sendInventory(p)
	w.sendTo(p.ID, protocol.StorageMsg{
		Type:      protocol.TypeStorage,
		StorageID: sto.ID,
		Items:     stacksOf(sto.Items),
	})
	if w.saver != nil {
		w.saver.SaveStorage(w.snapshotStorage(sto))
	}
}

func (w *World) handleCommunity(p *Player, m protocol.CommunityMsg, nowTick uint64) {
	switch m.Op {
	case "FOUND":
		name := strings.TrimSpace(m.Name)
		if name == "" || len(name) > 32 {
			w.sendError(p.ID, protocol.ErrBadRequest)
			return
		}
		w.proposeFound(p, name, m.TargetID, nowTick)
	case "INVITE":
		target := w.players[m.TargetID]
		c := w.communities[p.Community]
		if target == nil || c == nil || target.Community != "" {
			w.sendError(p.ID, protocol.ErrInvalidTarget)
			return
		}
		w.proposeJoin(target, c, nowTick)
	case "LEAVE":
		if p.Community == "" {
			w.sendError(p.ID, protocol.ErrInvalidTarget)
			return
		}
		w.leaveCommunity(p, nowTick)
	default:
		w.sendError(p.ID, protocol.ErrBadRequest)
	}
}

// serveChunk materializes the region and ships the full snapshot the
// client needs to render it.
func (w *World) serveChunk(p *Player, cl *clientState, key ChunkKey, nowTick uint64) {
	here := w.chunks.KeyFor(tileOf(p.Pos).X, tileOf(p.Pos).Y)
	if chebyshevChunks(here, key) > w.tun.KeepRadiusChunks {
		w.sendError(p.ID, protocol.ErrInvalidTarget)
		return
	}
	c := w.materializeChunk(key, nowTick)
	w.sendChunk(cl, p.ID, c)
}

func (w *World) sendChunk(cl *clientState, playerID string, c *Chunk) {
	size := w.tun.ChunkSize
	tiles := make([][]string, size)
	for row := 0; row < size; row++ {
		tiles[row] = make([]string, size)
		for col := 0; col < size; col++ {
			tiles[row][col] = c.Tiles[row*size+col].Code()
		}
	}
	msg := protocol.ChunkMsg{
		Type:      protocol.TypeChunk,
		CX:        c.Key.CX,
		CY:        c.Key.CY,
		Tiles:     tiles,
		Resources: []protocol.ResourceObs{},
	}
	for _, t := range sortedTiles(c.Resources) {
		node := c.Resources[t]
		if node.RespawnAt != 0 {
			continue
		}
		msg.Resources = append(msg.Resources, protocol.ResourceObs{
			X: t.X, Y: t.Y, Species: node.Species, HP: node.HP, Size: node.Size,
		})
	}
	x0, y0 := c.Key.CX*size, c.Key.CY*size
	seen := map[string]bool{}
	for _, id := range sortedKeysOf(w.structures) {
		st := w.structures[id]
		for _, t := range st.Tiles {
			if t.X >= x0 && t.X < x0+size && t.Y >= y0 && t.Y < y0+size && !seen[st.GroupID] {
				seen[st.GroupID] = true
				msg.Structures = append(msg.Structures, w.structureObs(st)...)
				break
			}
		}
	}
	buf, err := json.Marshal(msg)
	if err != nil {
		return
	}
	trySend(cl.Out, buf)
}
