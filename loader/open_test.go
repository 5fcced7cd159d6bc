package loader

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"git.tcp.direct/tcp.direct/dirshelf/bitcask"
	"git.tcp.direct/tcp.direct/dirshelf/pogreb"
	"git.tcp.direct/tcp.direct/dirshelf/registry"
	"git.tcp.direct/tcp.direct/dirshelf/shelf"
)

func TestBackendsRegistered(t *testing.T) {
	all := registry.AllFilers()
	for _, name := range []string{"bitcask", "dir", "pogreb"} {
		if !slices.Contains(all, name) {
			t.Errorf("[FAIL] expected %q to be registered, got %v", name, all)
		}
	}
}

func TestOpen(t *testing.T) {
	for _, backend := range []string{"dir", bitcask.Name, pogreb.Name} {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), backend)
			s, err := Open[map[string]string](backend, path, shelf.WithWriteBack())
			if err != nil {
				t.Fatalf("[FAIL] error opening %s shelf: %v", backend, err)
			}
			if err = s.Set("yeets/1", map[string]string{"yeet": "1"}); err != nil {
				t.Fatalf("[FAIL] %v", err)
			}
			if written, err := s.Sync(); err != nil || len(written) != 1 {
				t.Fatalf("[FAIL] Sync() = %v, %v", written, err)
			}
			if err = s.Close(); err != nil {
				t.Fatalf("[FAIL] %v", err)
			}

			s, err = Open[map[string]string](backend, path)
			if err != nil {
				t.Fatalf("[FAIL] error reopening %s shelf: %v", backend, err)
			}
			defer s.Close()
			val, err := s.Get("yeets/1")
			if err != nil {
				t.Fatalf("[FAIL] error getting value: %v", err)
			}
			if val["yeet"] != "1" {
				t.Errorf("[FAIL] expected 1, got %s", val["yeet"])
			}
		})
	}
}

func TestOpenWith(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bitcask")
	s, err := OpenWith[string](bitcask.Name, path, []any{bitcask.WithMaxKeySize(8)})
	if err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	defer s.Close()
	if err = s.Set("waytoolongforthis", "v"); err == nil {
		t.Error("[FAIL] expected the key size limit to be enforced")
	}
	if _, err = OpenWith[string](pogreb.Name, filepath.Join(t.TempDir(), "pogreb"), []any{"yeet"}); !errors.Is(err, pogreb.ErrBadOptions) {
		t.Errorf("[FAIL] expected ErrBadOptions, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open[string]("nope", t.TempDir()); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("[FAIL] expected ErrUnknownBackend, got %v", err)
	}
}
