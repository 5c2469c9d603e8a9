package heap

// entry is one heap object. Vectors either own a block of linear memory
// (materialized) or carry a Go payload that produces elements (altrep).
// External pointers keep their native address in payload.
type entry struct {
	payload   any
	finalizer Finalizer
	tag       string
	length    int
	offset    uint32
	size      uint32
	prot      Handle
	typ       Type
	altrep    bool
	shared    bool
	valid     bool
}

// table maps handles to entries, reusing freed slots.
type table struct {
	entries  []entry
	freeList []Handle
	live     int
}

func newTable() *table {
	return &table{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (t *table) insert(e entry) Handle {
	e.valid = true
	t.live++

	if len(t.freeList) > 0 {
		handle := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[handle-1] = e
		return handle
	}

	t.entries = append(t.entries, e)
	return Handle(len(t.entries))
}

func (t *table) get(handle Handle) (*entry, bool) {
	if handle == 0 {
		return nil, false
	}
	idx := int(handle - 1)
	if idx >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[idx]
	if !e.valid {
		return nil, false
	}
	return e, true
}

func (t *table) remove(handle Handle) {
	e, ok := t.get(handle)
	if !ok {
		return
	}
	*e = entry{}
	t.live--
	t.freeList = append(t.freeList, handle)
}

func (t *table) each(fn func(Handle, *entry) bool) {
	for i := range t.entries {
		if t.entries[i].valid {
			if !fn(Handle(i+1), &t.entries[i]) {
				break
			}
		}
	}
}
