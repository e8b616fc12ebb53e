package world

import (
	"fmt"

	"wildmere.gg/internal/locale"
	"wildmere.gg/internal/protocol"
)

// Approval is one pending multi-party consent: Proposed ->
// Collecting-Approvals -> {Resolved | Declined | Expired}. Participant ids
// are weak references re-resolved at every transition; execution
// re-validates all preconditions because the world has moved on since the
// proposal.
type Approval struct {
	ID        string
	Kind      string // "found", "join" or "build"
	Requester string
	TargetKey string
	Required  map[string]bool
	Approved  map[string]bool
	Expires   uint64

	// Payload per kind.
	CommunityID string
	Name        string
	TargetID    string
	BuildKind   StructureKind
	Anchor      Tile
}

func (w *World) newApprovalID() string {
	return fmt.Sprintf("AP%06d", w.nextApprovalNum.Add(1))
}

// propose registers the approval and prompts every required approver. At
// most one request may be outstanding per target key; duplicates are
// suppressed with a notice.
func (w *World) propose(ap *Approval, promptCode string, promptArgs ...any) bool {
	if _, busy := w.pendingTargets[ap.TargetKey]; busy {
		w.notify(ap.Requester, "notice.already_pending")
		return false
	}
	ap.ID = w.newApprovalID()
	if ap.Approved == nil {
		ap.Approved = map[string]bool{}
	}
	w.approvals[ap.ID] = ap
	w.pendingTargets[ap.TargetKey] = ap.ID

	for id := range ap.Required {
		cl := w.clients[id]
		if cl == nil {
			continue
		}
		w.sendTo(id, protocol.ApprovalMsg{
			Type:       protocol.TypeApproval,
			ApprovalID: ap.ID,
			Kind:       ap.Kind,
			State:      "proposed",
			Text:       locale.T(cl.Locale, promptCode, promptArgs...),
			ExpiresAt:  ap.Expires,
		})
	}
	return true
}

func (w *World) handleVote(voterID, approvalID string, approve bool, nowTick uint64) {
	ap := w.approvals[approvalID]
	if ap == nil || !ap.Required[voterID] {
		return
	}
	if !approve {
		w.closeApproval(ap, "declined", "approval.declined")
		w.audit(nowTick, voterID, "APPROVAL_DECLINED", protocol.Event{"approval": ap.ID, "kind": ap.Kind})
		return
	}
	ap.Approved[voterID] = true
	if len(ap.Approved) < len(ap.Required) {
		return
	}
	w.resolveApproval(ap, nowTick)
}

// systemApprovals expires unresolved requests past their deadline.
func (w *World) systemApprovals(nowTick uint64) {
	for _, id := range sortedKeysOf(w.approvals) {
		ap := w.approvals[id]
		if nowTick >= ap.Expires {
			w.closeApproval(ap, "expired", "approval.expired")
		}
	}
}

// closeApproval removes the request and tells everyone involved.
func (w *World) closeApproval(ap *Approval, state, noticeCode string) {
	delete(w.approvals, ap.ID)
	if w.pendingTargets[ap.TargetKey] == ap.ID {
		delete(w.pendingTargets, ap.TargetKey)
	}
	parties := map[string]bool{ap.Requester: true}
	for id := range ap.Required {
		parties[id] = true
	}
	for id := range parties {
		w.sendTo(id, protocol.ApprovalMsg{
			Type:       protocol.TypeApproval,
			ApprovalID: ap.ID,
			Kind:       ap.Kind,
			State:      state,
		})
		if noticeCode != "" {
			w.notify(id, noticeCode)
		}
	}
}

// resolveApproval executes the consented action. Every precondition is
// checked again here: approvals are never assumed valid from proposal
// time.
func (w *World) resolveApproval(ap *Approval, nowTick uint64) {
	ok := false
	switch ap.Kind {
	case "found":
		ok = w.executeFound(ap, nowTick)
	case "join":
		ok = w.executeJoin(ap, nowTick)
	case "build":
		ok = w.executeBuild(ap, nowTick)
	}
	if ok {
		w.closeApproval(ap, "resolved", "")
		w.audit(nowTick, ap.Requester, "APPROVAL_RESOLVED", protocol.Event{"approval": ap.ID, "kind": ap.Kind})
	} else {
		// Stale: the world changed since the proposal.
		w.closeApproval(ap, "declined", "approval.declined")
		w.audit(nowTick, ap.Requester, "APPROVAL_STALE", protocol.Event{"approval": ap.ID, "kind": ap.Kind})
	}
}

func (w *World) executeFound(ap *Approval, nowTick uint64) bool {
	a := w.players[ap.Requester]
	b := w.players[ap.TargetID]
	if a == nil || b == nil {
		return false
	}
	if a.Community != "" || b.Community != "" {
		return false
	}
	if dist(a.Pos, b.Pos) > w.tun.InteractRange*2 {
		return false
	}
	center := tileOf(a.Pos)
	area := ClaimArea{CX: center.X, CY: center.Y, R: foundingClaimRadius}
	if w.claimOverlaps(area, "") {
		return false
	}
	w.foundCommunity(ap.Name, a, b, nowTick)
	return true
}

func (w *World) executeJoin(ap *Approval, nowTick uint64) bool {
	c := w.communities[ap.CommunityID]
	p := w.players[ap.Requester]
	if c == nil || p == nil || p.Community != "" {
		return false
	}
	w.addMember(c, p, nowTick)
	return true
}

func (w *World) executeBuild(ap *Approval, nowTick uint64) bool {
	p := w.players[ap.Requester]
	if p == nil {
		return false
	}
	spec := ap.BuildKind.spec()
	if spec.NeedsCommunity && (p.Community == "" || p.Community != ap.CommunityID) {
		return false
	}
	if w.checkPlacement(ap.BuildKind, ap.Anchor, p) != "" {
		return false
	}

	// Every consenting builder pays an equal share of the cost; all of
	// them must still hold their share and still be present in the area.
	builders := make([]*Player, 0, len(ap.Required))
	for id := range ap.Required {
		b := w.players[id]
		if b == nil || b.Community != ap.CommunityID {
			return false
		}
		if cc := w.communityAt(tileOf(b.Pos)); cc == nil || cc.ID != ap.CommunityID {
			return false
		}
		builders = append(builders, b)
	}
	share := shareOf(spec.Cost, len(builders))
	for _, b := range builders {
		if !hasItems(b.Inventory, share) {
			return false
		}
	}
	for _, b := range builders {
		takeItems(b.Inventory, share)
		w.sendInventory(b)
	}

	w.placeStructure(ap.BuildKind, ap.Anchor, ap.CommunityID, nowTick)
	return true
}

// shareOf splits a cost over n builders, rounding up so the group never
// underpays.
func shareOf(cost map[string]int, n int) map[string]int {
	if n < 1 {
		n = 1
	}
	out := make(map[string]int, len(cost))
	for item, total := range cost {
		out[item] = (total + n - 1) / n
	}
	return out
}

// proposeJoin starts the join protocol: the requester asks the community
// whose land they stand on; every online member must consent.
func (w *World) proposeJoin(p *Player, c *Community, nowTick uint64) {
	if p.Community != "" {
		return
	}
	required := map[string]bool{}
	for m := range c.Members {
		if w.players[m] != nil && w.clients[m] != nil {
			required[m] = true
		}
	}
	if len(required) == 0 {
		return
	}
	w.propose(&Approval{
		Kind:        "join",
		Requester:   p.ID,
		TargetKey:   "join:" + p.ID,
		Required:    required,
		Expires:     nowTick + w.msToTicks(w.tun.ApprovalTimeoutMs),
		CommunityID: c.ID,
	}, "approval.join", p.Name)
}

// proposeFound asks one adjacent unaffiliated player to co-found.
func (w *World) proposeFound(p *Player, name, targetID string, nowTick uint64) {
	target := w.players[targetID]
	if target == nil || target.ID == p.ID {
		return
	}
	if p.Community != "" || target.Community != "" {
		return
	}
	if dist(p.Pos, target.Pos) > w.tun.InteractRange*2 {
		return
	}
	w.propose(&Approval{
		Kind:      "found",
		Requester: p.ID,
		TargetKey: "found:" + targetID,
		Required:  map[string]bool{targetID: true},
		Expires:   nowTick + w.msToTicks(w.tun.ApprovalTimeoutMs),
		Name:      name,
		TargetID:  targetID,
	}, "approval.found", p.Name, name)
}

// proposeBuild routes a build request: solo kinds execute immediately,
// group kinds go through the approval machine with a deterministic
// minimum-size subset of present members as the required approvers.
func (w *World) proposeBuild(p *Player, kind StructureKind, anchor Tile, nowTick uint64) {
	spec := kind.spec()
	if msg := w.checkPlacement(kind, anchor, p); msg != "" {
		w.notify(p.ID, msg)
		return
	}

	if !spec.Group {
		if !hasItems(p.Inventory, spec.Cost) {
			w.notify(p.ID, "notice.no_materials", costString(spec.Cost))
			return
		}
		takeItems(p.Inventory, spec.Cost)
		w.sendInventory(p)
		owner := p.ID
		// Gates admit by community id, so a member's gate must carry the
		// community even though its placement needs no claim.
		if p.Community != "" && (spec.NeedsCommunity || kind == KindGate) {
			owner = p.Community
		}
		w.placeStructure(kind, anchor, owner, nowTick)
		return
	}

	c := w.communities[p.Community]
	if c == nil {
		w.notify(p.ID, "notice.not_member")
		return
	}
	// Present, in-area members in id order; the requester counts.
	present := []string{}
	for _, m := range sortedKeysOf(c.Members) {
		mp := w.players[m]
		if mp == nil || w.clients[m] == nil {
			continue
		}
		if cc := w.communityAt(tileOf(mp.Pos)); cc == nil || cc.ID != c.ID {
			continue
		}
		present = append(present, m)
	}
	if len(present) < spec.MinBuilders {
		w.notify(p.ID, "notice.not_member")
		return
	}
	required := map[string]bool{p.ID: true}
	for _, m := range present {
		if len(required) >= spec.MinBuilders {
			break
		}
		required[m] = true
	}

	ap := &Approval{
		Kind:        "build",
		Requester:   p.ID,
		TargetKey:   fmt.Sprintf("build:%d:%d", anchor.X, anchor.Y),
		Required:    required,
		Expires:     nowTick + w.msToTicks(w.tun.ApprovalTimeoutMs),
		CommunityID: c.ID,
		BuildKind:   kind,
		Anchor:      anchor,
	}
	if !w.propose(ap, "approval.build", p.Name, spec.Name) {
		return
	}
	// The requester consents by asking.
	w.handleVote(p.ID, ap.ID, true, nowTick)
}

func costString(cost map[string]int) string {
	s := ""
	for _, item := range sortedKeysOf(cost) {
		if s != "" {
			s += ", "
		}
		s += fmt.Sprintf("%s x%d", item, cost[item])
	}
	return s
}
