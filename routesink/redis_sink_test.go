package routesink

import (
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisListSinkPushesEncodedValues(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := NewRedisListSink[string](client, "events")
	sink.Send("hello")
	sink.Send("world")

	vals, err := mr.List("events")
	if err != nil {
		t.Fatalf("expected list to exist: %v", err)
	}
	if len(vals) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(vals))
	}

	var first string
	if err := json.Unmarshal([]byte(vals[0]), &first); err != nil {
		t.Fatalf("failed to decode first entry: %v", err)
	}
	if first != "hello" {
		t.Fatalf("expected %q, got %q", "hello", first)
	}
}
