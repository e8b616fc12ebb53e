package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	inputSchema := compile("input.schema.json")
	stateSchema := compile("state.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "session_id":"0b5c9c2e-1f0f-4c5d-9f53-0f2b8a2f8f11",
	  "name":"Rowan",
	  "locale":"fr"
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "player_id":"0b5c9c2e-1f0f-4c5d-9f53-0f2b8a2f8f11",
	  "name":"Rowan",
	  "tick_rate_hz":10,
	  "chunk_size":16,
	  "max_hp":10,
	  "catalogs":{
	    "items":{"digest":"deadbeef","count":9},
	    "resources":{"digest":"deadbeef","count":5},
	    "monsters":{"digest":"deadbeef","count":2},
	    "quests":{"digest":"deadbeef","count":1},
	    "npcs":{"digest":"deadbeef","count":1}
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var input any
	_ = json.Unmarshal([]byte(`{
	  "type":"INPUT",
	  "seq":42,
	  "dx":0.7,
	  "dy":-0.7,
	  "gather":true,
	  "predicted":[12.5,-3.25]
	}`), &input)
	validate(inputSchema, input)

	var state any
	_ = json.Unmarshal([]byte(`{
	  "type":"STATE",
	  "tick":120,
	  "ack_seq":42,
	  "players":[{"id":"P1","name":"Rowan","x":12.5,"y":-3.25,"fx":1,"fy":0,"hp":10}],
	  "monsters":[{"id":"M1","species":"slime","x":14,"y":-2,"hp":3}],
	  "projectiles":[{"id":"J1","x":13.1,"y":-3.0}],
	  "removed_monsters":["M0"]
	}`), &state)
	validate(stateSchema, state)
}
