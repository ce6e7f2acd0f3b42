package events

import (
	"context"
	"encoding/json"
	"testing"

	goredis "github.com/redis/go-redis/v9"
)

func TestRedisRelay_DeliverSkipsOwnEvents(t *testing.T) {
	hub := NewHub()
	c := hub.Subscribe("nb")
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	r := newRelay(rdb, "test", hub, nil)

	own, _ := json.Marshal(Event{Type: SourceStatus, NotebookID: "nb", Origin: r.instance})
	if r.deliver(string(own)) {
		t.Error("own event should not be forwarded")
	}

	other, _ := json.Marshal(Event{Type: SourceDeleted, NotebookID: "nb", SourceID: "s1", Origin: "elsewhere"})
	if !r.deliver(string(other)) {
		t.Fatal("foreign event should be forwarded")
	}
	if ev := recv(t, c.Outbound); ev.Type != SourceDeleted || ev.SourceID != "s1" {
		t.Errorf("event = %+v", ev)
	}

	if r.deliver("{not json") {
		t.Error("malformed payload should be ignored")
	}
}

func TestNewRedisRelay_RequiresAddress(t *testing.T) {
	if _, err := NewRedisRelay(context.Background(), "", "", nil, nil); err == nil {
		t.Fatal("expected error without address")
	}
}
