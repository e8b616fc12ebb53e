package world

import (
	"wildmere.gg/internal/locale"
	"wildmere.gg/internal/protocol"
	"wildmere.gg/internal/sim/catalogs"
)

func (w *World) nearestNPC(pos Vec2, radius float64) *catalogs.NPCDef {
	var best *catalogs.NPCDef
	bestD := radius
	for _, id := range sortedKeysOf(w.cats.NPCs.Defs) {
		n := w.cats.NPCs.Defs[id]
		center := Vec2{X: float64(n.X) + 0.5, Y: float64(n.Y) + 0.5}
		if d := dist(pos, center); d <= bestD {
			cp := n
			best = &cp
			bestD = d
		}
	}
	return best
}

// interactNPC completes the first eligible quest for this NPC, or falls
// back to dialog.
func (w *World) interactNPC(p *Player, npc *catalogs.NPCDef, nowTick uint64) {
	for _, qid := range sortedKeysOf(w.cats.Quests.Defs) {
		q := w.cats.Quests.Defs[qid]
		if q.NPC != npc.ID || p.Completed[qid] {
			continue
		}
		requires := stacksAsMap(q.Requires)
		if !hasItems(p.Inventory, requires) {
			continue
		}
		takeItems(p.Inventory, requires)
		grantItems(p.Inventory, stacksAsMap(q.Rewards))
		p.Completed[qid] = true
		w.sendInventory(p)
		w.notify(p.ID, "notice.quest_complete", qid)
		w.audit(nowTick, p.ID, "QUEST_COMPLETE", protocol.Event{"quest": qid, "npc": npc.ID})
		return
	}

	cl := w.clients[p.ID]
	if cl == nil {
		return
	}
	lines := make([]string, 0, len(npc.Dialog))
	for _, code := range npc.Dialog {
		lines = append(lines, locale.T(cl.Locale, code))
	}
	w.sendTo(p.ID, protocol.DialogMsg{Type: protocol.TypeDialog, NPC: npc.Name, Lines: lines})
}

func stacksAsMap(stacks []catalogs.ItemCount) map[string]int {
	out := make(map[string]int, len(stacks))
	for _, s := range stacks {
		out[s.Item] += s.Count
	}
	return out
}
