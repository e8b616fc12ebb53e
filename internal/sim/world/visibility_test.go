package world

import (
	"encoding/json"
	"testing"

	"wildmere.gg/internal/protocol"
)

func lastStateFrame(t *testing.T, frames [][]byte) *protocol.StateMsg {
	t.Helper()
	var last *protocol.StateMsg
	for _, b := range frames {
		base, err := protocol.DecodeBase(b)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if base.Type != protocol.TypeState {
			continue
		}
		var m protocol.StateMsg
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("unmarshal state: %v", err)
		}
		last = &m
	}
	return last
}

func TestStateFrameAlwaysContainsSelf(t *testing.T) {
	w := newTestWorld(t, 91)
	p, out := joinTestPlayer(t, w, "P1", "Ada")
	clearAround(w, p.Pos, 4)
	drain(out)

	w.step(nil, nil, nil)
	st := lastStateFrame(t, drain(out))
	if st == nil {
		t.Fatalf("no state frame")
	}
	found := false
	for _, op := range st.Players {
		if op.ID == p.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("state frame missing self")
	}
}

func TestRemovalOnlyAfterAnnouncement(t *testing.T) {
	w := newTestWorld(t, 93)
	p, out := joinTestPlayer(t, w, "P1", "Ada")
	clearAround(w, p.Pos, 4)

	// A monster far outside the interest radius must never be announced,
	// so its death must never produce a removal either.
	farX := p.Pos.X + float64((w.tun.VisibilityRadiusChunks+4)*w.tun.ChunkSize)
	w.monsters["MFAR"] = &Monster{ID: "MFAR", Species: "slime", HP: 6, Pos: Vec2{X: farX, Y: p.Pos.Y}}
	drain(out)

	w.step(nil, nil, nil)
	st := lastStateFrame(t, drain(out))
	for _, id := range st.Monsters {
		if id.ID == "MFAR" {
			t.Fatalf("far monster announced")
		}
	}

	delete(w.monsters, "MFAR")
	w.step(nil, nil, nil)
	st = lastStateFrame(t, drain(out))
	for _, id := range st.RemovedMonsters {
		if id == "MFAR" {
			t.Fatalf("removal for a monster never announced")
		}
	}
}

func TestDepartureProducesRemoval(t *testing.T) {
	w := newTestWorld(t, 95)
	p, out := joinTestPlayer(t, w, "P1", "Ada")
	clearAround(w, p.Pos, 4)

	near := &Monster{ID: "MNEAR", Species: "slime", HP: 6, Pos: Vec2{X: p.Pos.X + 1, Y: p.Pos.Y}}
	w.monsters["MNEAR"] = near
	drain(out)

	w.systemVisibility(10)
	st := lastStateFrame(t, drain(out))
	if st == nil {
		t.Fatalf("no state frame")
	}
	announced := false
	for _, m := range st.Monsters {
		if m.ID == "MNEAR" {
			announced = true
		}
	}
	if !announced {
		t.Fatalf("nearby monster not announced")
	}

	// Teleport it beyond the interest radius.
	near.Pos.X += float64((w.tun.VisibilityRadiusChunks + 4) * w.tun.ChunkSize)
	w.systemVisibility(11)
	st = lastStateFrame(t, drain(out))
	removed := false
	for _, id := range st.RemovedMonsters {
		if id == "MNEAR" {
			removed = true
		}
	}
	if !removed {
		t.Fatalf("departed monster not in the removal list")
	}
}

func TestAckSeqEchoesLatestInput(t *testing.T) {
	w := newTestWorld(t, 97)
	p, out := joinTestPlayer(t, w, "P1", "Ada")
	clearAround(w, p.Pos, 4)
	drain(out)

	raw, _ := json.Marshal(protocol.InputMsg{Type: protocol.TypeInput, Seq: 42})
	w.step(nil, nil, []IntentEnvelope{{PlayerID: p.ID, Type: protocol.TypeInput, Raw: raw}})

	st := lastStateFrame(t, drain(out))
	if st == nil || st.AckSeq != 42 {
		t.Fatalf("ack_seq not echoed: %+v", st)
	}
}
