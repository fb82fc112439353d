package registry

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/synaptica-ai/classifier/pkg/ml/linear"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), nil, 0)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	model := linear.NewModel(3)
	model.SetWeight(0, 0.75)
	model.SetWeight(2, -2)
	model.SetBias(0.125)

	path, err := store.Save(ctx, "risk-v1", model)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path != store.Path("risk-v1") {
		t.Fatalf("unexpected path %s", path)
	}

	loaded, err := store.Load(ctx, "risk-v1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Weights(), model.Weights()) || loaded.Bias() != model.Bias() {
		t.Fatalf("loaded %v/%v, want %v/%v", loaded.Weights(), loaded.Bias(), model.Weights(), model.Bias())
	}
}

func TestLoadMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Load(context.Background(), "absent"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadCorruptArtifact(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.Path("broken"), []byte{3, 0, 0}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Load(context.Background(), "broken"); !errors.Is(err, linear.ErrIOFailed) {
		t.Fatalf("expected io failure, got %v", err)
	}
}

func TestInvalidNames(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"", "..", "a/b", "x y"} {
		if _, err := store.Save(context.Background(), name, linear.NewModel(1)); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("name %q: expected invalid name, got %v", name, err)
		}
	}
}

func TestListAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"zeta", "alpha"} {
		if _, err := store.Save(ctx, name, linear.NewModel(2)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	names, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "zeta"}) {
		t.Fatalf("unexpected names %v", names)
	}

	if err := store.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "alpha"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	names, _ = store.List(ctx)
	if !reflect.DeepEqual(names, []string{"zeta"}) {
		t.Fatalf("unexpected names after delete %v", names)
	}
}
