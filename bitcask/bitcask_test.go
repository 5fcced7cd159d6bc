package bitcask

import (
	"bytes"
	"errors"
	"path/filepath"
	"slices"
	"sort"
	"testing"

	c "git.tcp.direct/kayos/common"

	"git.tcp.direct/tcp.direct/dirshelf"
	"git.tcp.direct/tcp.direct/dirshelf/kv"
)

func needFiler(filer dirshelf.Filer) {}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tpath := filepath.Join(t.TempDir(), "bitcask")
	s, err := Open(tpath)
	if err != nil {
		t.Fatalf("failed to open test store at %s: %v", tpath, err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	needFiler(s)
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	s := newTestStore(t)
	key := "dir/" + c.RandStr(20)
	value := []byte(c.RandStr(55))

	if _, err := s.Get(key); !kv.IsNonExistentKey(err) {
		t.Fatalf("[FAIL] expected NonExistentKeyError, got %v", err)
	}
	if err := s.Put(key, value); err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("[FAIL] wanted %q, got %q", value, got)
	}
	if ok, _ := s.Has(key); !ok {
		t.Errorf("[FAIL] Has(%s) = false", key)
	}
	if err = s.Delete(key); err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	if err = s.Delete(key); !kv.IsNonExistentKey(err) {
		t.Errorf("[FAIL] expected NonExistentKeyError deleting twice, got %v", err)
	}
}

func TestStore_Keys(t *testing.T) {
	s := newTestStore(t)
	want := make([]string, 0, 10)
	for n := 0; n != 10; n++ {
		k := c.RandStr(5) + "/" + c.RandStr(5)
		want = append(want, k)
		if err := s.Put(k, []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Keys()
	if err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	sort.Strings(want)
	sort.Strings(got)
	if !slices.Equal(want, got) {
		t.Errorf("[FAIL] wanted %v, got %v", want, got)
	}
}

func Test_SyncAndClose(t *testing.T) {
	tpath := filepath.Join(t.TempDir(), "bitcask")
	s, err := Open(tpath, WithMaxDatafileSize(1<<20))
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Put("yeet", []byte("yeeterson")); err != nil {
		t.Fatal(err)
	}
	if err = s.Sync(); err != nil {
		t.Errorf("[FAIL] failed to sync: %v", err)
	}
	if err = s.Close(); err != nil {
		t.Fatalf("[FAIL] failed to close: %v", err)
	}
	t.Run("AssureClosed", func(t *testing.T) {
		if err := s.Sync(); !errors.Is(err, kv.ErrStoreClosed) {
			t.Errorf("[FAIL] expected ErrStoreClosed, got %v", err)
		}
		if _, err := s.Get("yeet"); !errors.Is(err, kv.ErrStoreClosed) {
			t.Errorf("[FAIL] expected ErrStoreClosed, got %v", err)
		}
	})
	t.Run("Reopen", func(t *testing.T) {
		s, err = Open(tpath)
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()
		got, err := s.Get("yeet")
		if err != nil || string(got) != "yeeterson" {
			t.Errorf("[FAIL] value did not survive reopen: %q, %v", got, err)
		}
	})
}

func TestBogusStore(t *testing.T) {
	s := &Store{}
	if err := s.Sync(); !errors.Is(err, ErrBogusStore) {
		t.Errorf("[FAIL] expected ErrBogusStore, got %v", err)
	}
}
