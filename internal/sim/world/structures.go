package world

import (
	"fmt"
	"strings"

	"wildmere.gg/internal/protocol"
)

// StructureKind is a closed enumeration: every kind carries its footprint,
// material cost and placement rules in the table below, so an unknown kind
// can only come from the wire and dies at ParseStructureKind.
type StructureKind int

const (
	KindHouse StructureKind = iota
	KindWall
	KindGate
	KindFloat
	KindCastle
	KindChurch
	KindSilo
)

type kindSpec struct {
	Name           string
	Footprint      []Tile // offsets from the anchor tile
	Cost           map[string]int
	Impassable     bool
	OnWater        bool // must be placed on water; walkable despite it
	Group          bool // needs the multi-party approval machine
	MinBuilders    int
	HasStorage     bool
	NeedsCommunity bool // anchor must sit inside the builder's claimed area
}

var structureKinds = map[StructureKind]kindSpec{
	KindHouse: {
		Name:       "house",
		Footprint:  rect(2, 2),
		Cost:       map[string]int{"wood": 20},
		Impassable: true,
	},
	KindWall: {
		Name:       "wall",
		Footprint:  rect(1, 1),
		Cost:       map[string]int{"stone": 4},
		Impassable: true,
	},
	KindGate: {
		Name:      "gate",
		Footprint: rect(1, 1),
		Cost:      map[string]int{"wood": 6, "stone": 2},
	},
	KindFloat: {
		Name:      "float",
		Footprint: rect(1, 1),
		Cost:      map[string]int{"wood": 8},
		OnWater:   true,
	},
	KindCastle: {
		Name:           "castle",
		Footprint:      rect(3, 3),
		Cost:           map[string]int{"stone": 60, "wood": 30},
		Impassable:     true,
		Group:          true,
		MinBuilders:    3,
		NeedsCommunity: true,
	},
	KindChurch: {
		Name:           "church",
		Footprint:      rect(2, 3),
		Cost:           map[string]int{"stone": 40, "wood": 20},
		Impassable:     true,
		Group:          true,
		MinBuilders:    2,
		NeedsCommunity: true,
	},
	KindSilo: {
		Name:           "silo",
		Footprint:      rect(2, 2),
		Cost:           map[string]int{"wood": 25, "stone": 10},
		Impassable:     true,
		Group:          true,
		MinBuilders:    2,
		HasStorage:     true,
		NeedsCommunity: true,
	},
}

func rect(wd, ht int) []Tile {
	out := make([]Tile, 0, wd*ht)
	for dy := 0; dy < ht; dy++ {
		for dx := 0; dx < wd; dx++ {
			out = append(out, Tile{X: dx, Y: dy})
		}
	}
	return out
}

func ParseStructureKind(s string) (StructureKind, bool) {
	for k, spec := range structureKinds {
		if spec.Name == strings.ToLower(strings.TrimSpace(s)) {
			return k, true
		}
	}
	return 0, false
}

func (k StructureKind) String() string { return structureKinds[k].Name }

func (k StructureKind) spec() kindSpec { return structureKinds[k] }

// Structure is one placed building: a group of tiles removed together,
// never tile by tile.
type Structure struct {
	GroupID string
	Kind    StructureKind
	Owner   string // player id or community id
	Tiles   []Tile
	Storage string // storage id for kinds with HasStorage
}

func (w *World) newGroupID() string {
	return fmt.Sprintf("S%06d", w.nextGroupNum.Add(1))
}

// footprintAt resolves the kind's offsets against an anchor.
func footprintAt(kind StructureKind, anchor Tile) []Tile {
	spec := kind.spec()
	out := make([]Tile, len(spec.Footprint))
	for i, off := range spec.Footprint {
		out[i] = Tile{X: anchor.X + off.X, Y: anchor.Y + off.Y}
	}
	return out
}

// checkPlacement validates spatial legality for a build. It is called both
// at proposal and again at execution, because the world may have changed
// in between.
func (w *World) checkPlacement(kind StructureKind, anchor Tile, builder *Player) string {
	spec := kind.spec()
	for _, t := range footprintAt(kind, anchor) {
		if w.structAt[t] != nil {
			return "notice.wrong_place"
		}
		if w.npcAt(t) {
			return "notice.wrong_place"
		}
		water := w.chunks.TileKind(t.X, t.Y) == TileWater
		if spec.OnWater != water {
			return "notice.wrong_place"
		}
		owner := w.communityAt(t)
		if spec.NeedsCommunity {
			if builder.Community == "" || owner == nil || owner.ID != builder.Community {
				return "notice.wrong_place"
			}
		} else if owner != nil && !owner.Members[builder.ID] {
			return "notice.wrong_place"
		}
	}
	return ""
}

// placeStructure mutates: it assumes checkPlacement and the material check
// already passed this tick.
func (w *World) placeStructure(kind StructureKind, anchor Tile, owner string, nowTick uint64) *Structure {
	st := &Structure{
		GroupID: w.newGroupID(),
		Kind:    kind,
		Owner:   owner,
		Tiles:   footprintAt(kind, anchor),
	}
	w.structures[st.GroupID] = st
	for _, t := range st.Tiles {
		w.structAt[t] = st
	}
	if kind.spec().HasStorage {
		sto := &Storage{
			ID:        fmt.Sprintf("ST%06d", w.nextStorageNum.Add(1)),
			Community: owner,
			Items:     map[string]int{},
		}
		w.storages[sto.ID] = sto
		st.Storage = sto.ID
		if w.saver != nil {
			w.saver.SaveStorage(StorageSnapshot{ID: sto.ID, Community: sto.Community, Items: map[string]int{}})
		}
	}
	w.structuresDirty = true
	w.broadcastStructure("built", st)
	w.audit(nowTick, owner, "BUILD", protocol.Event{"kind": kind.String(), "group": st.GroupID, "x": anchor.X, "y": anchor.Y})
	return st
}

// removeStructure removes the whole group.
func (w *World) removeStructure(st *Structure, nowTick uint64, actor string) {
	for _, t := range st.Tiles {
		if w.structAt[t] == st {
			delete(w.structAt, t)
		}
	}
	delete(w.structures, st.GroupID)
	if st.Storage != "" {
		delete(w.storages, st.Storage)
	}
	w.structuresDirty = true
	if w.saver != nil {
		w.saver.DeleteStructureGroup(st.GroupID)
	}
	w.broadcastStructure("removed", st)
	w.audit(nowTick, actor, "DEMOLISH", protocol.Event{"kind": st.Kind.String(), "group": st.GroupID})
}

func (w *World) structureObs(st *Structure) []protocol.StructureObs {
	out := make([]protocol.StructureObs, 0, len(st.Tiles))
	for _, t := range st.Tiles {
		out = append(out, protocol.StructureObs{
			X:       t.X,
			Y:       t.Y,
			Kind:    st.Kind.String(),
			GroupID: st.GroupID,
			Owner:   st.Owner,
		})
	}
	return out
}

// broadcastStructure tells every client whose keep window covers any of
// the structure's tiles.
func (w *World) broadcastStructure(state string, st *Structure) {
	msg := protocol.StructureMsg{Type: protocol.TypeStructure, State: state, Structures: w.structureObs(st)}
	for id, p := range w.players {
		if w.clients[id] == nil {
			continue
		}
		pk := w.chunks.KeyFor(tileOf(p.Pos).X, tileOf(p.Pos).Y)
		for _, t := range st.Tiles {
			if chebyshevChunks(pk, w.chunks.KeyFor(t.X, t.Y)) <= w.tun.VisibilityRadiusChunks {
				w.sendTo(id, msg)
				break
			}
		}
	}
}

func (w *World) npcAt(t Tile) bool {
	for _, n := range w.cats.NPCs.Defs {
		if n.X == t.X && n.Y == t.Y {
			return true
		}
	}
	return false
}
