package world

import (
	"fmt"

	"wildmere.gg/internal/protocol"
)

// Community is a player-formed group owning claimed square areas and
// shared structures/storage.
type Community struct {
	ID      string
	Name    string
	Members map[string]bool
	Areas   []ClaimArea
}

// ClaimArea is a Chebyshev square: center tile plus radius R.
type ClaimArea struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
	R  int `json:"r"`
}

func (a ClaimArea) Contains(t Tile) bool {
	return maxAbs(t.X-a.CX, t.Y-a.CY) <= a.R
}

// Storage exists only inside a community-owned structure (silo). The
// Structure record points at it; removing the structure removes it.
type Storage struct {
	ID        string
	Community string
	Items     map[string]int
}

const foundingClaimRadius = 8

func (w *World) newCommunityID() string {
	return fmt.Sprintf("C%06d", w.nextCommunityNum.Add(1))
}

// communityAt returns the community whose claimed area covers a tile, or
// nil. Areas never overlap across communities, so the first hit wins.
func (w *World) communityAt(t Tile) *Community {
	for _, id := range sortedKeysOf(w.communities) {
		c := w.communities[id]
		for _, a := range c.Areas {
			if a.Contains(t) {
				return c
			}
		}
	}
	return nil
}

// claimOverlaps reports whether a new area would overlap any existing
// claim of a different community.
func (w *World) claimOverlaps(area ClaimArea, exceptID string) bool {
	for id, c := range w.communities {
		if id == exceptID {
			continue
		}
		for _, a := range c.Areas {
			if maxAbs(area.CX-a.CX, area.CY-a.CY) <= area.R+a.R {
				return true
			}
		}
	}
	return false
}

func (w *World) isMember(playerID, communityID string) bool {
	c := w.communities[communityID]
	return c != nil && c.Members[playerID]
}

// foundCommunity creates the community with both founders as members and
// the initial claim centered between them. Preconditions were re-checked
// by the caller.
func (w *World) foundCommunity(name string, founderA, founderB *Player, nowTick uint64) *Community {
	center := tileOf(founderA.Pos)
	c := &Community{
		ID:      w.newCommunityID(),
		Name:    name,
		Members: map[string]bool{founderA.ID: true, founderB.ID: true},
		Areas:   []ClaimArea{{CX: center.X, CY: center.Y, R: foundingClaimRadius}},
	}
	w.communities[c.ID] = c
	founderA.Community = c.ID
	founderB.Community = c.ID
	w.communitiesDirty = true
	w.notify(founderA.ID, "notice.community_founded", name)
	w.notify(founderB.ID, "notice.community_founded", name)
	w.audit(nowTick, founderA.ID, "COMMUNITY_FOUNDED", protocol.Event{"community": c.ID, "with": founderB.ID})
	return c
}

func (w *World) addMember(c *Community, p *Player, nowTick uint64) {
	c.Members[p.ID] = true
	p.Community = c.ID
	w.communitiesDirty = true
	for m := range c.Members {
		w.notify(m, "notice.community_joined", p.Name)
	}
	w.audit(nowTick, p.ID, "COMMUNITY_JOINED", protocol.Event{"community": c.ID})
}

// leaveCommunity is immediate; an empty community keeps its claims and
// structures (members may return via persistence, communities are never
// auto-deleted).
func (w *World) leaveCommunity(p *Player, nowTick uint64) {
	c := w.communities[p.Community]
	if c == nil {
		p.Community = ""
		return
	}
	delete(c.Members, p.ID)
	p.Community = ""
	w.communitiesDirty = true
	for m := range c.Members {
		w.notify(m, "notice.community_left", p.Name)
	}
	w.audit(nowTick, p.ID, "COMMUNITY_LEFT", protocol.Event{"community": c.ID})
}

func (w *World) snapshotCommunities() []CommunitySnapshot {
	out := make([]CommunitySnapshot, 0, len(w.communities))
	for _, id := range sortedKeysOf(w.communities) {
		c := w.communities[id]
		members := make([]string, 0, len(c.Members))
		for m := range c.Members {
			members = append(members, m)
		}
		out = append(out, CommunitySnapshot{ID: c.ID, Name: c.Name, Members: members, Areas: c.Areas})
	}
	return out
}

func (w *World) snapshotStorage(sto *Storage) StorageSnapshot {
	items := make(map[string]int, len(sto.Items))
	for k, v := range sto.Items {
		items[k] = v
	}
	return StorageSnapshot{ID: sto.ID, Community: sto.Community, Items: items}
}

func (w *World) snapshotStructures() []StructureSnapshot {
	out := make([]StructureSnapshot, 0, len(w.structures))
	for _, id := range sortedKeysOf(w.structures) {
		st := w.structures[id]
		out = append(out, StructureSnapshot{GroupID: st.GroupID, Kind: st.Kind.String(), Owner: st.Owner, Tiles: st.Tiles, Storage: st.Storage})
	}
	return out
}
