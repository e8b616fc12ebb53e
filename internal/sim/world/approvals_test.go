package world

import "testing"

func setupCommunityPair(t *testing.T, w *World) (*Player, *Player, *Community, Tile) {
	t.Helper()
	corner := findOpenArea(t, w, 8)
	p1, _ := joinTestPlayer(t, w, "P1", "Ada")
	p2, _ := joinTestPlayer(t, w, "P2", "Bel")
	p1.Pos = centerOf(Tile{X: corner.X + 3, Y: corner.Y + 3})
	p2.Pos = centerOf(Tile{X: corner.X + 4, Y: corner.Y + 3})
	clearAround(w, p1.Pos, 10)
	c := w.foundCommunity("Elm", p1, p2, 1)
	return p1, p2, c, corner
}

func soleApproval(t *testing.T, w *World) *Approval {
	t.Helper()
	if len(w.approvals) != 1 {
		t.Fatalf("approvals = %d, want 1", len(w.approvals))
	}
	for _, ap := range w.approvals {
		return ap
	}
	return nil
}

func TestGroupBuildNeedsEveryApproval(t *testing.T) {
	w := newTestWorld(t, 51)
	p1, p2, c, corner := setupCommunityPair(t, w)
	grantItems(p1.Inventory, map[string]int{"wood": 20, "stone": 10})
	grantItems(p2.Inventory, map[string]int{"wood": 20, "stone": 10})

	anchor := Tile{X: corner.X + 5, Y: corner.Y + 5}
	w.proposeBuild(p1, KindSilo, anchor, 10)

	if w.structAt[anchor] != nil {
		t.Fatalf("silo built before the second approval")
	}
	ap := soleApproval(t, w)
	if !ap.Approved[p1.ID] {
		t.Fatalf("requester should auto-approve")
	}

	w.handleVote(p2.ID, ap.ID, true, 11)

	st := w.structAt[anchor]
	if st == nil || st.Kind != KindSilo {
		t.Fatalf("silo missing after full approval")
	}
	if st.Owner != c.ID {
		t.Fatalf("silo owner = %q, want %q", st.Owner, c.ID)
	}
	if st.Storage == "" || w.storages[st.Storage] == nil {
		t.Fatalf("silo has no storage")
	}
	// Cost wood 25 + stone 10 split two ways, rounded up: 13 and 5 each.
	if p1.Inventory["wood"] != 7 || p1.Inventory["stone"] != 5 {
		t.Fatalf("p1 share wrong: %v", p1.Inventory)
	}
	if p2.Inventory["wood"] != 7 || p2.Inventory["stone"] != 5 {
		t.Fatalf("p2 share wrong: %v", p2.Inventory)
	}
	if len(w.approvals) != 0 {
		t.Fatalf("approval not cleared after resolution")
	}
}

func TestDeclineCancelsImmediately(t *testing.T) {
	w := newTestWorld(t, 53)
	p1, p2, _, corner := setupCommunityPair(t, w)
	grantItems(p1.Inventory, map[string]int{"wood": 20, "stone": 10})
	grantItems(p2.Inventory, map[string]int{"wood": 20, "stone": 10})

	anchor := Tile{X: corner.X + 5, Y: corner.Y + 5}
	w.proposeBuild(p1, KindSilo, anchor, 10)
	ap := soleApproval(t, w)

	w.handleVote(p2.ID, ap.ID, false, 11)

	if w.structAt[anchor] != nil {
		t.Fatalf("declined build still happened")
	}
	if len(w.approvals) != 0 || len(w.pendingTargets) != 0 {
		t.Fatalf("declined approval not cleared")
	}
	if p1.Inventory["wood"] != 20 || p2.Inventory["wood"] != 20 {
		t.Fatalf("decline must not charge materials")
	}
}

func TestApprovalExpiresUnchanged(t *testing.T) {
	w := newTestWorld(t, 55)
	p1, p2, _, corner := setupCommunityPair(t, w)
	_ = p2
	grantItems(p1.Inventory, map[string]int{"wood": 20, "stone": 10})

	anchor := Tile{X: corner.X + 5, Y: corner.Y + 5}
	w.proposeBuild(p1, KindSilo, anchor, 10)
	ap := soleApproval(t, w)

	w.systemApprovals(ap.Expires)

	if len(w.approvals) != 0 {
		t.Fatalf("expired approval still pending")
	}
	if w.structAt[anchor] != nil {
		t.Fatalf("expired approval changed the world")
	}
}

func TestDuplicateProposalSuppressed(t *testing.T) {
	w := newTestWorld(t, 57)
	p1, _, _, corner := setupCommunityPair(t, w)
	grantItems(p1.Inventory, map[string]int{"wood": 40, "stone": 20})

	anchor := Tile{X: corner.X + 5, Y: corner.Y + 5}
	w.proposeBuild(p1, KindSilo, anchor, 10)
	w.proposeBuild(p1, KindSilo, anchor, 11)

	if len(w.approvals) != 1 {
		t.Fatalf("duplicate proposal created a second approval: %d", len(w.approvals))
	}
}

func TestStaleBuildAborts(t *testing.T) {
	w := newTestWorld(t, 59)
	p1, p2, _, corner := setupCommunityPair(t, w)
	grantItems(p1.Inventory, map[string]int{"wood": 20, "stone": 10})
	grantItems(p2.Inventory, map[string]int{"wood": 20, "stone": 10})

	anchor := Tile{X: corner.X + 5, Y: corner.Y + 5}
	w.proposeBuild(p1, KindSilo, anchor, 10)
	ap := soleApproval(t, w)

	// The site gets taken between proposal and final vote.
	taken := Tile{X: anchor.X, Y: anchor.Y}
	st := &Structure{GroupID: "S900009", Kind: KindWall, Owner: p1.ID, Tiles: []Tile{taken}}
	w.structures[st.GroupID] = st
	w.structAt[taken] = st

	w.handleVote(p2.ID, ap.ID, true, 11)

	if got := w.structAt[anchor]; got == nil || got.Kind != KindWall {
		t.Fatalf("stale build overwrote the site: %+v", got)
	}
	if p1.Inventory["wood"] != 20 || p2.Inventory["wood"] != 20 {
		t.Fatalf("stale build charged materials")
	}
	if len(w.approvals) != 0 {
		t.Fatalf("stale approval not cleared")
	}
}

func TestJoinNeedsEveryOnlineMember(t *testing.T) {
	w := newTestWorld(t, 61)
	p1, p2, c, corner := setupCommunityPair(t, w)
	p3, _ := joinTestPlayer(t, w, "P3", "Cyr")
	p3.Pos = centerOf(Tile{X: corner.X + 6, Y: corner.Y + 6})

	w.proposeJoin(p3, c, 10)
	ap := soleApproval(t, w)
	if len(ap.Required) != 2 {
		t.Fatalf("required approvers = %d, want both members", len(ap.Required))
	}

	w.handleVote(p1.ID, ap.ID, true, 11)
	if p3.Community != "" {
		t.Fatalf("joined on a partial vote")
	}
	w.handleVote(p2.ID, ap.ID, true, 12)
	if p3.Community != c.ID {
		t.Fatalf("p3 not a member after unanimous vote")
	}
	if !c.Members[p3.ID] {
		t.Fatalf("member set missing p3")
	}
}

func TestGateBuiltByMemberAdmitsCommunity(t *testing.T) {
	w := newTestWorld(t, 67)
	p1, _, c, corner := setupCommunityPair(t, w)
	grantItems(p1.Inventory, map[string]int{"wood": 6, "stone": 2})

	anchor := Tile{X: corner.X + 5, Y: corner.Y + 3}
	w.proposeBuild(p1, KindGate, anchor, 10)

	st := w.structAt[anchor]
	if st == nil || st.Kind != KindGate {
		t.Fatalf("gate not placed")
	}
	if st.Owner != c.ID {
		t.Fatalf("gate owner = %q, want %q", st.Owner, c.ID)
	}
	if !w.canWalk(c.ID, centerOf(anchor)) {
		t.Fatalf("gate should admit its own community")
	}
	if w.canWalk("", centerOf(anchor)) {
		t.Fatalf("gate should block the unaffiliated")
	}
	if w.canWalk("C999999", centerOf(anchor)) {
		t.Fatalf("gate should block other communities")
	}
}

func TestSoloBuildChargesAndPlaces(t *testing.T) {
	w := newTestWorld(t, 63)
	corner := findOpenArea(t, w, 6)
	p, _ := joinTestPlayer(t, w, "P1", "Ada")
	p.Pos = centerOf(Tile{X: corner.X, Y: corner.Y})
	clearAround(w, p.Pos, 8)
	grantItems(p.Inventory, map[string]int{"wood": 25})

	anchor := Tile{X: corner.X + 2, Y: corner.Y + 2}
	w.proposeBuild(p, KindHouse, anchor, 10)

	st := w.structAt[anchor]
	if st == nil || st.Kind != KindHouse {
		t.Fatalf("house not placed")
	}
	if len(st.Tiles) != 4 {
		t.Fatalf("house footprint = %d tiles, want 4", len(st.Tiles))
	}
	if p.Inventory["wood"] != 5 {
		t.Fatalf("wood after build = %d, want 5", p.Inventory["wood"])
	}
	if len(w.approvals) != 0 {
		t.Fatalf("solo build should bypass the approval machine")
	}
}
