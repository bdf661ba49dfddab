package testutil

import (
	"context"
	"os"
	"path/filepath"

	"github.com/andrebq/quill/store"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireStore opens a fresh database under a temporary directory,
// cleanup closes it and removes every file.
func AcquireStore(ctx context.Context, t TestLog, name string) (*store.Store, func()) {
	dir, err := os.MkdirTemp("", "quill-tests")
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.Open(ctx, filepath.Join(dir, name, "quill.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return st, func() {
		err := st.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

// AcquirePopulatedStore is like AcquireStore but runs loader before
// handing the store to the test.
func AcquirePopulatedStore(ctx context.Context, t TestLog, name string, loader func(context.Context, *store.Store) error) (*store.Store, func()) {
	st, cleanup := AcquireStore(ctx, t, name)
	if loader != nil {
		err := loader(ctx, st)
		if err != nil {
			cleanup()
			t.Fatal(err)
		}
	}
	return st, cleanup
}
