package pool

import "testing"

type fakeResource struct{ closed *bool }

func (f *fakeResource) Release() { *f.closed = true }

func TestAllocRetainRelease(t *testing.T) {
	p := New()
	h := p.Alloc(8, 42)

	if got := h.Value(); got != 42 {
		t.Fatalf("Value() = %v, want 42", got)
	}
	if h.RefCount() != 1 {
		t.Fatalf("RefCount() = %d, want 1", h.RefCount())
	}

	h.Retain()
	if h.RefCount() != 2 {
		t.Fatalf("RefCount() after Retain = %d, want 2", h.RefCount())
	}

	h.Release()
	if h.RefCount() != 1 {
		t.Fatalf("RefCount() after one Release = %d, want 1", h.RefCount())
	}
	if p.Live() != 1 {
		t.Fatalf("Live() = %d, want 1 while still referenced", p.Live())
	}

	h.Release()
	if p.Live() != 0 {
		t.Fatalf("Live() = %d, want 0 after final Release", p.Live())
	}
}

func TestReleaseRunsDestructorBeforeReuse(t *testing.T) {
	p := New()
	closed := false
	h := p.Alloc(8, &fakeResource{closed: &closed})
	h.Release()

	if !closed {
		t.Fatal("expected Release to run the stored value's destructor")
	}
}

func TestFreeSlotIsReused(t *testing.T) {
	p := New()
	h1 := p.Alloc(8, "a")
	h1.Release()

	h2 := p.Alloc(8, "b")
	if h2.idx != h1.idx {
		t.Fatalf("expected freed slot %d to be reused, got %d", h1.idx, h2.idx)
	}
}

func TestDoubleReleasePanics(t *testing.T) {
	p := New()
	h := p.Alloc(8, 1)
	h.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("expected double release to panic")
		}
	}()
	h.Release()
}

func TestSizeClassBucketing(t *testing.T) {
	cases := map[int]int{1: 8, 8: 8, 9: 16, 16: 16, 17: 32, 32: 32, 33: 64, 64: 64, 65: 65}
	for size, want := range cases {
		if got := sizeClass(size); got != want {
			t.Errorf("sizeClass(%d) = %d, want %d", size, got, want)
		}
	}
}
