package registry

import (
	"slices"
	"testing"

	"git.tcp.direct/tcp.direct/dirshelf"
)

func TestRegisterFiler(t *testing.T) {
	if GetFiler("yeet") != nil {
		t.Fatal("[FAIL] unregistered backend should be nil")
	}
	RegisterFiler("yeet", func(path string, opt ...any) (dirshelf.Filer, error) {
		return nil, nil
	})
	t.Cleanup(func() {
		regMu.Lock()
		delete(filerIndex, "yeet")
		regMu.Unlock()
	})
	if GetFiler("yeet") == nil {
		t.Fatal("[FAIL] expected registered backend")
	}
	if !slices.Contains(AllFilers(), "yeet") {
		t.Errorf("[FAIL] AllFilers() = %v, missing yeet", AllFilers())
	}
}
