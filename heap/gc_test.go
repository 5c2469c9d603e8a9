package heap

import (
	"context"
	"errors"
	"testing"

	rerrors "github.com/wippyai/rbridge/errors"
)

func TestCollect_FreesUnrooted(t *testing.T) {
	h := newTestHeap(t, nil)

	garbage, _ := h.AllocVector(RealSxp, 100)
	kept := h.Protect(must(t)(h.AllocVector(RealSxp, 100)))
	preserved, _ := h.AllocVector(IntSxp, 10)
	h.Preserve(preserved)

	res := h.Collect()
	if res.Freed != 1 || res.Marked != 2 {
		t.Fatalf("Collect = %+v", res)
	}
	if h.Live(garbage) {
		t.Fatal("unrooted vector survived")
	}
	if !h.Live(kept) || !h.Live(preserved) {
		t.Fatal("rooted vector was freed")
	}

	_ = h.Unprotect(1)
	_ = h.ReleasePreserved(preserved)
	h.Collect()
	if st := h.Stats(); st.Live != 0 || st.BytesInUse != 0 {
		t.Fatalf("stats after releasing roots = %+v", st)
	}
	if st := h.Stats(); st.Collections != 2 || st.Freed != 3 {
		t.Fatalf("cumulative stats = %+v", st)
	}
}

func TestCollect_ProtEdges(t *testing.T) {
	h := newTestHeap(t, nil)

	data, _ := h.AllocVector(RealSxp, 4)
	inner, _ := h.MakeExternalPtr("inner", "inner", data)
	outer, _ := h.MakeExternalPtr("outer", "outer", inner)
	h.Preserve(outer)

	h.Collect()
	for _, handle := range []Handle{data, inner, outer} {
		if !h.Live(handle) {
			t.Fatalf("handle %d reachable through prot was freed", handle)
		}
	}

	_ = h.ReleasePreserved(outer)
	if res := h.Collect(); res.Freed != 3 {
		t.Fatalf("Freed = %d, want 3", res.Freed)
	}
}

func TestCollect_ProtSurvivesConstruction(t *testing.T) {
	h := newTestHeap(t, &Config{Torture: true})

	data := h.Protect(must(t)(h.AllocVector(IntSxp, 1)))
	ptr, err := h.MakeExternalPtr(nil, "p", data)
	if err != nil {
		t.Fatalf("MakeExternalPtr: %v", err)
	}
	_ = h.Unprotect(1)
	h.Protect(ptr)
	defer h.Unprotect(1)

	h.Collect()
	if !h.Live(data) {
		t.Fatal("prot object freed while its pointer is rooted")
	}
	if prot, _ := h.ExternalPtrProt(ptr); prot != data {
		t.Fatalf("prot = %d, want %d", prot, data)
	}
}

func TestCollect_FinalizerRunsOnce(t *testing.T) {
	h := newTestHeap(t, nil)

	type resource struct{ id int }
	var got []int
	handle, _ := h.MakeExternalPtr(&resource{id: 7}, "resource", 0)
	if err := h.RegisterFinalizer(handle, func(addr any) {
		got = append(got, addr.(*resource).id)
	}); err != nil {
		t.Fatalf("RegisterFinalizer: %v", err)
	}

	res := h.Collect()
	if res.Finalized != 1 || res.Freed != 1 {
		t.Fatalf("Collect = %+v", res)
	}
	h.Collect()
	if len(got) != 1 || got[0] != 7 {
		t.Fatalf("finalizer calls = %v", got)
	}
	if h.Stats().Finalized != 1 {
		t.Fatalf("Finalized = %d", h.Stats().Finalized)
	}
}

func TestCollect_FinalizerResurrects(t *testing.T) {
	h := newTestHeap(t, nil)

	data, _ := h.AllocVector(RealSxp, 1)
	var handle Handle
	calls := 0
	handle, _ = h.MakeExternalPtr("x", "x", data)
	_ = h.RegisterFinalizer(handle, func(any) {
		calls++
		h.Preserve(handle)
	})

	h.Collect()
	if !h.Live(handle) || !h.Live(data) {
		t.Fatal("resurrected pointer or its prot was freed")
	}

	_ = h.ReleasePreserved(handle)
	h.Collect()
	if h.Live(handle) || h.Live(data) {
		t.Fatal("pointer survived after its root was dropped")
	}
	if calls != 1 {
		t.Fatalf("finalizer ran %d times", calls)
	}
}

func TestCollect_FinalizerPanicIsContained(t *testing.T) {
	h := newTestHeap(t, nil)

	first, _ := h.MakeExternalPtr(nil, "bad", 0)
	second, _ := h.MakeExternalPtr(nil, "good", 0)
	_ = h.RegisterFinalizer(first, func(any) { panic("boom") })
	ran := false
	_ = h.RegisterFinalizer(second, func(any) { ran = true })

	res := h.Collect()
	if !ran {
		t.Fatal("panic in one finalizer stopped the others")
	}
	if res.Freed != 2 {
		t.Fatalf("Freed = %d", res.Freed)
	}
}

func TestClearExternalPtr_CancelsFinalizer(t *testing.T) {
	h := newTestHeap(t, nil)

	handle, _ := h.MakeExternalPtr(42, "int", 0)
	ran := false
	_ = h.RegisterFinalizer(handle, func(any) { ran = true })

	if err := h.ClearExternalPtr(handle); err != nil {
		t.Fatalf("ClearExternalPtr: %v", err)
	}
	if addr, _ := h.ExternalPtrAddr(handle); addr != nil {
		t.Fatalf("addr after clear = %v", addr)
	}
	if tag, _ := h.ExternalPtrTag(handle); tag != "int" {
		t.Fatalf("tag after clear = %q", tag)
	}
	h.Collect()
	if ran {
		t.Fatal("finalizer ran after clear")
	}
}

func TestRegisterFinalizer_NotExternalPtr(t *testing.T) {
	h := newTestHeap(t, nil)

	vec, _ := h.AllocVector(RealSxp, 1)
	err := h.RegisterFinalizer(vec, func(any) {})
	if !errors.Is(err, rerrors.ErrTypeMismatch) {
		t.Fatalf("error = %v", err)
	}
	if _, err := h.ExternalPtrAddr(vec); !errors.Is(err, rerrors.ErrTypeMismatch) {
		t.Fatalf("ExternalPtrAddr on vector = %v", err)
	}
}

func TestMakeExternalPtr_DeadProt(t *testing.T) {
	h := newTestHeap(t, nil)

	if _, err := h.MakeExternalPtr(nil, "x", 55); !errors.Is(err, rerrors.ErrInvalidHandle) {
		t.Fatalf("error = %v", err)
	}
}

func TestFinalizeOnClose(t *testing.T) {
	h, err := NewWithConfig(context.Background(), &Config{GCInterval: -1, FinalizeOnClose: true})
	if err != nil {
		t.Fatal(err)
	}
	rooted, _ := h.MakeExternalPtr(nil, "x", 0)
	h.Preserve(rooted)

	ran := 0
	_ = h.RegisterFinalizer(rooted, func(any) { ran++ })
	_ = h.Close(context.Background())
	if ran != 1 {
		t.Fatalf("finalizer ran %d times on close", ran)
	}
}

func TestAutoCollect_Interval(t *testing.T) {
	h := newTestHeap(t, &Config{GCInterval: 4})

	for i := 0; i < 8; i++ {
		_, _ = h.AllocVector(IntSxp, 1)
	}
	if got := h.Stats().Collections; got != 2 {
		t.Fatalf("Collections = %d, want 2", got)
	}
}

func TestTorture_UnprotectedHandleIsCollected(t *testing.T) {
	h := newTestHeap(t, &Config{Torture: true})

	_, _ = h.AllocVector(RealSxp, 1)
	second, _ := h.AllocVector(RealSxp, 1)
	if st := h.Stats(); st.Freed != 1 || st.Live != 1 {
		t.Fatalf("unprotected vector survived torture: %+v", st)
	}
	// Handles are recycled, so the dead first handle now names the second vector.
	if second != 1 {
		t.Fatalf("second = %d, want recycled handle 1", second)
	}

	protected := h.Protect(must(t)(h.AllocVector(RealSxp, 1)))
	_, _ = h.AllocVector(RealSxp, 1)
	if !h.Live(protected) {
		t.Fatal("protected vector collected under torture")
	}
	_ = h.Unprotect(1)
}
