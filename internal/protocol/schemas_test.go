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
	eventSchema := compile("event.schema.json")
	errorSchema := compile("error.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "board_id":"B1",
	  "client_name":"boardbot",
	  "auth":{"token":"tok_123"}
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"S1",
	  "user_id":"U1",
	  "username":"ada",
	  "role":"user",
	  "board_id":"B1",
	  "board_params":{"size":10000,"item_width":260,"item_height":180}
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var created any
	_ = json.Unmarshal([]byte(`{
	  "type":"EVENT",
	  "protocol_version":"1.0",
	  "name":"ITEM_CREATED",
	  "board_id":"B1",
	  "item":{
	    "id":"T1","corr_id":"c-1","x":120.5,"y":88,
	    "content":"hello wall","owner_id":"U1","owner_name":"ada",
	    "liked_by":[],"created_at_ms":1700000000000,"updated_at_ms":1700000000000
	  }
	}`), &created)
	validate(eventSchema, created)

	var updated any
	_ = json.Unmarshal([]byte(`{
	  "type":"EVENT",
	  "protocol_version":"1.0",
	  "name":"ITEM_UPDATED",
	  "item_id":"T1",
	  "x":300,"y":420,
	  "updated_at_ms":1700000001000
	}`), &updated)
	validate(eventSchema, updated)

	var deleted any
	_ = json.Unmarshal([]byte(`{
	  "type":"EVENT",
	  "protocol_version":"1.0",
	  "name":"ITEM_DELETED",
	  "item_id":"T1"
	}`), &deleted)
	validate(eventSchema, deleted)

	var errMsg any
	_ = json.Unmarshal([]byte(`{
	  "type":"ERROR",
	  "protocol_version":"1.0",
	  "code":"E_AUTH",
	  "message":"token expired"
	}`), &errMsg)
	validate(errorSchema, errMsg)
}

func TestSchemas_RejectBadEvent(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "event.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	// ITEM_UPDATED without an item_id must not validate.
	var v any
	_ = json.Unmarshal([]byte(`{
	  "type":"EVENT",
	  "protocol_version":"1.0",
	  "name":"ITEM_UPDATED",
	  "x":300
	}`), &v)
	if err := s.Validate(v); err == nil {
		t.Fatalf("expected validation failure for patch event without item_id")
	}
}
