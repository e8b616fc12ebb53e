package world

import "math"

// canWalk is THE walkability predicate, shared by players, monsters and
// boats. A foot tile is walkable iff the terrain is not water (floats
// override that), no impassable structure sits on it, gates and claimed
// land admit members only.
func (w *World) canWalk(communityID string, pos Vec2) bool {
	t := tileOf(pos)

	if st := w.structAt[t]; st != nil {
		spec := st.Kind.spec()
		switch {
		case spec.OnWater:
			// Floats are walkable water for everyone.
			return true
		case st.Kind == KindGate:
			return communityID != "" && st.Owner == communityID
		case spec.Impassable:
			return false
		}
	} else if w.chunks.TileKind(t.X, t.Y) == TileWater {
		return false
	}

	if c := w.communityAt(t); c != nil {
		if communityID == "" || c.ID != communityID {
			return false
		}
	}
	return true
}

const (
	reconcileMax    = 2.0  // ignore predictions further off than this
	reconcileWeight = 0.35 // correction gain per unit of disagreement
	reconcileCap    = 0.5
)

// moveDir blends the client's predicted position into the desired
// direction: a small corrective pull proportional to the disagreement,
// capped, then re-normalized. Large disagreements are ignored entirely
// rather than snapped.
func moveDir(desired Vec2, pos Vec2, predicted *Vec2) Vec2 {
	d := normalize(desired)
	if predicted == nil {
		return d
	}
	diff := Vec2{X: predicted.X - pos.X, Y: predicted.Y - pos.Y}
	gap := math.Hypot(diff.X, diff.Y)
	if gap < 1e-6 || gap > reconcileMax {
		return d
	}
	k := gap * reconcileWeight
	if k > reconcileCap {
		k = reconcileCap
	}
	blended := Vec2{X: d.X + diff.X/gap*k, Y: d.Y + diff.Y/gap*k}
	return normalize(blended)
}

// moveEntity advances a position per axis independently so an entity
// blocked on one axis still slides along the other.
func (w *World) moveEntity(communityID string, pos Vec2, dir Vec2, speed, dt float64) Vec2 {
	nx := pos.X + dir.X*speed*dt
	if w.canWalk(communityID, Vec2{X: nx, Y: pos.Y}) {
		pos.X = nx
	}
	ny := pos.Y + dir.Y*speed*dt
	if w.canWalk(communityID, Vec2{X: pos.X, Y: ny}) {
		pos.Y = ny
	}
	return pos
}

func (w *World) systemMovement(nowTick uint64) {
	dt := 1.0 / float64(w.tun.TickRateHz)
	for _, id := range sortedKeysOf(w.players) {
		p := w.players[id]
		in := p.Input
		if math.Hypot(in.Dir.X, in.Dir.Y) < 0.01 {
			continue
		}
		dir := moveDir(in.Dir, p.Pos, in.Predicted)
		if dir == (Vec2{}) {
			continue
		}
		p.Facing = dir
		p.Pos = w.moveEntity(p.Community, p.Pos, dir, w.tun.PlayerSpeed, dt)
	}
}
