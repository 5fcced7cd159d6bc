package dir

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"testing"

	c "git.tcp.direct/kayos/common"

	"git.tcp.direct/tcp.direct/dirshelf/kv"
)

func newTestFiler(t *testing.T) *Filer {
	t.Helper()
	f, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("[FAIL] failed to open filer: %v", err)
	}
	t.Cleanup(func() {
		_ = f.Close()
	})
	return f
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	type test struct {
		name    string
		key     string
		want    string
		wantErr error
	}
	tests := []test{
		{name: "flat", key: "c", want: filepath.Join(root, "c")},
		{name: "nested", key: "a/b", want: filepath.Join(root, "a", "b")},
		{name: "deep", key: "x/y/z/w", want: filepath.Join(root, "x", "y", "z", "w")},
		{name: "nestedAgain", key: "a/c", want: filepath.Join(root, "a", "c")},
		{name: "escape", key: "../nope", wantErr: kv.ErrInvalidKey},
		{name: "empty", key: "", wantErr: kv.ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(root, tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("[FAIL] wanted %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("[FAIL] %v", err)
			}
			if got != tt.want {
				t.Errorf("[FAIL] wanted %s, got %s", tt.want, got)
			}
			stat, err := os.Stat(filepath.Dir(got))
			if err != nil || !stat.IsDir() {
				t.Errorf("[FAIL] parent directory of %s was not created: %v", got, err)
			}
			if _, err = os.Stat(got); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("[FAIL] Resolve should not create the file itself")
			}
		})
	}
}

func TestResolve_ParentIsFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Resolve(root, "a/b")
	if !errors.Is(err, kv.ErrIO) {
		t.Errorf("[FAIL] expected ErrIO when a parent segment is a file, got %v", err)
	}
}

func TestOpen_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not", "yet")
	f, err := Open(root)
	if err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	if !filepath.IsAbs(f.Path()) {
		t.Errorf("[FAIL] root should be absolute, got %s", f.Path())
	}
	if stat, err := os.Stat(root); err != nil || !stat.IsDir() {
		t.Errorf("[FAIL] root was not created: %v", err)
	}
}

func TestOpen_RootIsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(p); err == nil {
		t.Error("[FAIL] expected error opening a regular file as root")
	}
}

func TestFiler_PutGetDelete(t *testing.T) {
	f := newTestFiler(t)
	key := "dir/" + c.RandStr(10)
	value := []byte(c.RandStr(55))

	if _, err := f.Get(key); !kv.IsNonExistentKey(err) {
		t.Fatalf("[FAIL] expected NonExistentKeyError, got %v", err)
	}
	if err := f.Put(key, value); err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	onDisk, err := os.ReadFile(filepath.Join(f.Path(), filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("[FAIL] file not written: %v", err)
	}
	if !bytes.Equal(onDisk, value) {
		t.Errorf("[FAIL] file content %q, want %q", onDisk, value)
	}
	got, err := f.Get(key)
	if err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("[FAIL] wanted %q, got %q", value, got)
	}
	if ok, err := f.Has(key); !ok || err != nil {
		t.Errorf("[FAIL] Has(%s) = %v, %v", key, ok, err)
	}
	if err = f.Put(key, []byte("short")); err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	if got, _ = f.Get(key); string(got) != "short" {
		t.Errorf("[FAIL] overwrite should truncate, got %q", got)
	}
	if err = f.Delete(key); err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	if ok, _ := f.Has(key); ok {
		t.Errorf("[FAIL] key still present after delete")
	}
	if err = f.Delete(key); !kv.IsNonExistentKey(err) {
		t.Errorf("[FAIL] expected NonExistentKeyError deleting twice, got %v", err)
	}
}

func TestFiler_DirectoriesAreNotKeys(t *testing.T) {
	f := newTestFiler(t)
	if err := f.Put("dir/b", []byte("y")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := f.Has("dir"); ok {
		t.Error("[FAIL] a directory should not be reported as a key")
	}
	if _, err := f.Get("dir"); !kv.IsNonExistentKey(err) {
		t.Errorf("[FAIL] expected NonExistentKeyError reading a directory, got %v", err)
	}
	if err := f.Delete("dir"); !kv.IsNonExistentKey(err) {
		t.Errorf("[FAIL] expected NonExistentKeyError deleting a directory, got %v", err)
	}
	if _, err := f.Get("dir/b/c"); !kv.IsNonExistentKey(err) {
		t.Errorf("[FAIL] expected NonExistentKeyError below a file, got %v", err)
	}
}

func TestFiler_Keys(t *testing.T) {
	f := newTestFiler(t)
	want := []string{"a", "dir/b", "dir/sub/c", "z"}
	for _, k := range want {
		if err := f.Put(k, []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := f.Keys()
	if err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	sort.Strings(got)
	if !slices.Equal(got, want) {
		t.Errorf("[FAIL] wanted %v, got %v", want, got)
	}
}

func TestFiler_Closed(t *testing.T) {
	f := newTestFiler(t)
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); !errors.Is(err, kv.ErrStoreClosed) {
		t.Errorf("[FAIL] double close: %v", err)
	}
	if _, err := f.Get("a"); !errors.Is(err, kv.ErrStoreClosed) {
		t.Errorf("[FAIL] get after close: %v", err)
	}
	if err := f.Put("a", []byte("a")); !errors.Is(err, kv.ErrStoreClosed) {
		t.Errorf("[FAIL] put after close: %v", err)
	}
	if _, err := f.Keys(); !errors.Is(err, kv.ErrStoreClosed) {
		t.Errorf("[FAIL] keys after close: %v", err)
	}
}

func TestFiler_SyncWrites(t *testing.T) {
	f, err := Open(t.TempDir(), WithSyncWrites(), WithPerms(0o700, 0o600))
	if err != nil {
		t.Fatal(err)
	}
	if err = f.Put("a/b", []byte("yeet")); err != nil {
		t.Fatalf("[FAIL] %v", err)
	}
	stat, err := os.Stat(filepath.Join(f.Path(), "a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	if stat.Mode().Perm()&0o077 != 0 {
		t.Errorf("[FAIL] expected private file permissions, got %v", stat.Mode().Perm())
	}
}
