package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadEmbedded(t *testing.T) {
	r := NewResolver("")
	for _, name := range []string{MeshVertexShader, MeshFragmentShader, LineVertexShader, LineFragmentShader} {
		src, err := r.LoadString(name)
		if err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
		if !strings.HasPrefix(src, "#version 410 core") {
			t.Errorf("%s does not start with a version line", name)
		}
	}
	if _, err := r.Load("shaders/missing.vert"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing asset: got %v", err)
	}
	if _, err := r.Load("../escape"); err == nil {
		t.Error("path outside the asset root accepted")
	}
}

func TestDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "shaders"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, MeshVertexShader), []byte("override"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(dir)
	got, err := r.LoadString(MeshVertexShader)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "override" {
		t.Errorf("got %q, want the override", got)
	}
	// Not overridden: falls back to the embedded copy.
	if src, err := r.LoadString(LineFragmentShader); err != nil || !strings.HasPrefix(src, "#version") {
		t.Errorf("fallback: %q, %v", src, err)
	}
}

func TestCacheStats(t *testing.T) {
	r := NewResolver("")
	for i := 0; i < 3; i++ {
		if _, err := r.Load(MeshFragmentShader); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	hits, misses := r.Cache().Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("hits=%d misses=%d, want 2 and 1", hits, misses)
	}
	r.Invalidate(MeshFragmentShader)
	if _, err := r.Load(MeshFragmentShader); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, misses := r.Cache().Stats(); misses != 2 {
		t.Errorf("misses after invalidate = %d, want 2", misses)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	shaders := filepath.Join(dir, "shaders")
	if err := os.MkdirAll(shaders, 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, LineVertexShader)
	if err := os.WriteFile(file, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(dir)
	if got, _ := r.LoadString(LineVertexShader); got != "v1" {
		t.Fatalf("initial content %q", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := r.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(file, []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case name := <-changes:
		if name != LineVertexShader {
			t.Errorf("changed %q, want %q", name, LineVertexShader)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := r.LoadString(LineVertexShader)
		if err == nil && got == "v2" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("content %q after change, err %v", got, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	for range changes {
	}
}

func TestWatchNeedsDirectory(t *testing.T) {
	if _, err := NewResolver("").Watch(context.Background()); err == nil {
		t.Error("Watch without a directory succeeded")
	}
}
