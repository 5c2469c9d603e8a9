package heap

import "github.com/wippyai/rbridge/errors"

// MakeExternalPtr allocates an external pointer holding addr. The tag
// names the native type; prot (may be 0) is kept alive for as long as the
// pointer is.
func (h *Heap) MakeExternalPtr(addr any, tag string, prot Handle) (Handle, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	if prot != 0 && !h.Live(prot) {
		return 0, errors.InvalidHandle(errors.PhaseAlloc, "make_external_ptr", uint32(prot))
	}

	// prot is not reachable from the new pointer until it exists.
	h.Protect(prot)
	h.maybeCollect()
	h.mustUnprotect(1)

	handle := h.objects.insert(entry{
		typ:     ExtPtrSxp,
		payload: addr,
		tag:     tag,
		prot:    prot,
	})
	h.notify(Event{Type: EventAllocated, Handle: handle, Object: ExtPtrSxp})
	return handle, nil
}

func (h *Heap) extptr(handle Handle, op string) (*entry, error) {
	e, err := h.entry(handle, op)
	if err != nil {
		return nil, err
	}
	if e.typ != ExtPtrSxp {
		return nil, errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
			Op(op).RType(e.typ.String()).Detail("not an external pointer").Build()
	}
	return e, nil
}

// ExternalPtrAddr returns the native address; nil once cleared.
func (h *Heap) ExternalPtrAddr(handle Handle) (any, error) {
	e, err := h.extptr(handle, "external_ptr_addr")
	if err != nil {
		return nil, err
	}
	return e.payload, nil
}

// ExternalPtrTag returns the tag given at construction.
func (h *Heap) ExternalPtrTag(handle Handle) (string, error) {
	e, err := h.extptr(handle, "external_ptr_tag")
	if err != nil {
		return "", err
	}
	return e.tag, nil
}

// ExternalPtrProt returns the protected companion object, or 0.
func (h *Heap) ExternalPtrProt(handle Handle) (Handle, error) {
	e, err := h.extptr(handle, "external_ptr_prot")
	if err != nil {
		return 0, err
	}
	return e.prot, nil
}

// ClearExternalPtr drops the native address and any pending finalizer.
// The handle itself stays valid until collected.
func (h *Heap) ClearExternalPtr(handle Handle) error {
	e, err := h.extptr(handle, "clear_external_ptr")
	if err != nil {
		return err
	}
	e.payload = nil
	e.finalizer = nil
	h.notify(Event{Type: EventCleared, Handle: handle, Object: ExtPtrSxp})
	return nil
}
