package kafka

import (
	"testing"
)

func TestEncodeEvents(t *testing.T) {
	messages, err := encodeEvents([]Event{
		{Key: "bm25", Value: map[string]int{"matched": 3}},
		{Key: "vsm", Value: []string{"a"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 || string(messages[0].Key) != "bm25" || string(messages[0].Value) != `{"matched":3}` {
		t.Errorf("messages = %+v", messages)
	}
	if _, err := encodeEvents([]Event{{Key: "bad", Value: make(chan int)}}); err == nil {
		t.Error("expected a marshal error")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Model string `json:"model"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"model":"vsm"}`))
	if err != nil || got.Model != "vsm" {
		t.Fatalf("DecodeJSON = %+v, %v", got, err)
	}
	if _, err := DecodeJSON[payload]([]byte(`{`)); err == nil {
		t.Error("expected a decode error")
	}
}
