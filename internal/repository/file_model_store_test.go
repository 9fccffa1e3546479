package repository

import (
	"context"
	"testing"
)

func TestFileModelStoreRoundTrip(t *testing.T) {
	store, err := NewFileModelStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileModelStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Write(ctx, "logistic", []byte(`{"bias":0.5}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b, err := store.Read(ctx, "logistic")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(b) != `{"bias":0.5}` {
		t.Errorf("read back %q", b)
	}

	// overwrite replaces the previous artifact
	if err := store.Write(ctx, "logistic", []byte(`{"bias":0.9}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, _ = store.Read(ctx, "logistic")
	if string(b) != `{"bias":0.9}` {
		t.Errorf("after overwrite: %q", b)
	}
}

func TestFileModelStoreList(t *testing.T) {
	store, err := NewFileModelStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileModelStore: %v", err)
	}
	ctx := context.Background()

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("empty dir lists %v", ids)
	}

	for _, id := range []string{"logistic", "forest", "boost"} {
		if err := store.Write(ctx, id, []byte("{}")); err != nil {
			t.Fatalf("Write %s: %v", id, err)
		}
	}
	ids, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("ids = %v, want 3", ids)
	}
}

func TestFileModelStoreReadMissing(t *testing.T) {
	store, err := NewFileModelStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileModelStore: %v", err)
	}
	if _, err := store.Read(context.Background(), "nope"); err == nil {
		t.Error("expected error for missing artifact")
	}
}
