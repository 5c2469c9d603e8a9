package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/wippyai/rbridge/errors"
	"github.com/wippyai/rbridge/extptr"
	"github.com/wippyai/rbridge/heap"
	"github.com/wippyai/rbridge/scalar"
	"github.com/wippyai/rbridge/serialize"
	"github.com/wippyai/rbridge/vector"
)

// object is anything the session keeps a rooted wrapper for.
type object interface {
	fmt.Stringer
	Value() heap.Value
	Close()
}

type lazyObject interface {
	object
	Len() int
	IsLazy() bool
	Materialize(ctx context.Context) error
}

// label is the native payload behind "ptr" objects.
type label struct {
	name string
	drop func(string)
}

func (l *label) Drop() { l.drop(l.name) }

// session runs heap commands on behalf of the CLI. Every command executes
// on the heap's thread.
type session struct {
	ctx     context.Context
	h       *heap.Heap
	objects map[int]object
	notes   []string
	next    int
}

func newSession(ctx context.Context, h *heap.Heap) *session {
	return &session{ctx: ctx, h: h, objects: make(map[int]object), next: 1}
}

const usage = `commands:
  dbl X...           double vector (NA allowed)
  int X...           integer vector
  lgl X...           logical vector (TRUE, FALSE, NA)
  seq N              integer vector 1..N, lazy at or above -threshold
  ptr NAME           external pointer to a native label
  get ID I           element I of vector ID
  mat ID             materialize a lazy vector
  clone ID           second wrapper for the same object
  close ID           drop the wrapper, leaving cleanup to the collector
  release ID         destroy an external pointer now
  save ID FILE [C]   save a vector (C: none, lz4, zstd)
  load FILE          load a saved vector
  gc                 run a collection
  ls                 list wrappers
  stats              heap statistics
  help               this text`

// exec runs one command line and returns its output.
func (s *session) exec(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	var out string
	err := s.h.Do(s.ctx, func() error {
		var err error
		out, err = s.dispatch(fields[0], fields[1:])
		return err
	})
	if len(s.notes) > 0 {
		out = strings.TrimLeft(out+"\n"+strings.Join(s.notes, "\n"), "\n")
		s.notes = s.notes[:0]
	}
	return out, err
}

func (s *session) dispatch(cmd string, args []string) (string, error) {
	switch cmd {
	case "dbl":
		return s.vectorOf(parseValues(args, parseDouble))
	case "int":
		return s.vectorOf(parseValues(args, parseInt))
	case "lgl":
		return s.vectorOf(parseValues(args, parseLogical))
	case "seq":
		n, err := s.argInt(args, 0, "N")
		if err != nil {
			return "", err
		}
		v, err := vector.FromFunc(s.h, n, func(i int) scalar.Rint { return scalar.Rint(i + 1) })
		if err != nil {
			return "", err
		}
		return s.add(v), nil
	case "ptr":
		if len(args) != 1 {
			return "", usageError("usage: ptr NAME")
		}
		p, err := extptr.NewWithConfig(s.h, &label{name: args[0], drop: s.dropped}, &extptr.Config[label]{Tag: "label"})
		if err != nil {
			return "", err
		}
		return s.add(p), nil
	case "get":
		return s.get(args)
	case "mat":
		o, err := s.lookup(args)
		if err != nil {
			return "", err
		}
		v, ok := o.(lazyObject)
		if !ok {
			return "", notA("a vector", o.Value())
		}
		if err := v.Materialize(s.ctx); err != nil {
			return "", err
		}
		return v.String(), nil
	case "clone":
		o, err := s.lookup(args)
		if err != nil {
			return "", err
		}
		c, err := cloneObject(o)
		if err != nil {
			return "", err
		}
		return s.add(c), nil
	case "close":
		id, o, err := s.lookupID(args)
		if err != nil {
			return "", err
		}
		o.Close()
		delete(s.objects, id)
		return fmt.Sprintf("closed %d", id), nil
	case "release":
		id, o, err := s.lookupID(args)
		if err != nil {
			return "", err
		}
		p, ok := o.(*extptr.ExternalPtr[label])
		if !ok {
			return "", notA("an external pointer", o.Value())
		}
		if err := p.Release(); err != nil {
			return "", err
		}
		delete(s.objects, id)
		return fmt.Sprintf("released %d", id), nil
	case "save":
		return s.save(args)
	case "load":
		if len(args) != 1 {
			return "", usageError("usage: load FILE")
		}
		o, err := loadFile(s.h, args[0])
		if err != nil {
			return "", err
		}
		return s.add(o), nil
	case "gc":
		r := s.h.Collect()
		return fmt.Sprintf("marked %d, finalized %d, freed %d in %s", r.Marked, r.Finalized, r.Freed, r.Duration), nil
	case "ls":
		return s.list(), nil
	case "stats":
		st := s.h.Stats()
		return fmt.Sprintf("live %d, protected %d, preserved %d, bytes %d, collections %d, freed %d, finalized %d",
			st.Live, st.Protected, st.Preserved, st.BytesInUse, st.Collections, st.Freed, st.Finalized), nil
	case "help":
		return usage, nil
	default:
		return "", errors.Unsupported(errors.PhaseRuntime, fmt.Sprintf("unknown command %q (try help)", cmd))
	}
}

func (s *session) dropped(name string) {
	s.notes = append(s.notes, "dropped "+name)
}

func (s *session) add(o object) string {
	id := s.next
	s.next++
	s.objects[id] = o
	return fmt.Sprintf("%d: %s", id, o)
}

func (s *session) list() string {
	ids := make([]int, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%d: %s\n", id, s.objects[id])
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (s *session) lookup(args []string) (object, error) {
	_, o, err := s.lookupID(args)
	return o, err
}

func (s *session) lookupID(args []string) (int, object, error) {
	id, err := s.argInt(args, 0, "ID")
	if err != nil {
		return 0, nil, err
	}
	o, ok := s.objects[id]
	if !ok {
		return 0, nil, usageError("no object %d", id)
	}
	return id, o, nil
}

func (s *session) argInt(args []string, i int, name string) (int, error) {
	if i >= len(args) {
		return 0, usageError("missing %s", name)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 0 {
		return 0, usageError("bad %s %q", name, args[i])
	}
	return n, nil
}

func (s *session) vector(o object, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return s.add(o), nil
}

func (s *session) get(args []string) (string, error) {
	o, err := s.lookup(args)
	if err != nil {
		return "", err
	}
	i, err := s.argInt(args, 1, "I")
	if err != nil {
		return "", err
	}
	switch v := o.(type) {
	case *vector.Doubles:
		return elt(v, i)
	case *vector.Integers:
		return elt(v, i)
	case *vector.Logicals:
		return elt(v, i)
	default:
		return "", notA("a vector", o.Value())
	}
}

func (s *session) save(args []string) (string, error) {
	o, err := s.lookup(args)
	if err != nil {
		return "", err
	}
	if len(args) < 2 {
		return "", usageError("missing FILE")
	}
	c := serialize.None
	if len(args) > 2 {
		if c, err = serialize.ParseCompression(args[2]); err != nil {
			return "", err
		}
	}
	if err := saveFile(args[1], o.Value(), c); err != nil {
		return "", err
	}
	return fmt.Sprintf("saved %s to %s (%s)", o.Value(), args[1], c), nil
}

// close releases every wrapper still held by the session.
func (s *session) close() {
	_ = s.h.Do(s.ctx, func() error {
		for id, o := range s.objects {
			o.Close()
			delete(s.objects, id)
		}
		return nil
	})
}

func usageError(format string, args ...any) error {
	return errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf(format, args...))
}

func notA(what string, v heap.Value) error {
	return errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
		RType(v.Type().String()).Detail("%s is not %s", v, what).Build()
}

func elt[T vector.Element](v *vector.Vector[T], i int) (string, error) {
	x, err := v.Elt(i)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(x), nil
}

func cloneObject(o object) (object, error) {
	switch v := o.(type) {
	case *vector.Doubles:
		return v.Clone()
	case *vector.Integers:
		return v.Clone()
	case *vector.Logicals:
		return v.Clone()
	case *extptr.ExternalPtr[label]:
		return v.Clone()
	default:
		return nil, errors.Unsupported(errors.PhaseRuntime, fmt.Sprintf("cloning %s", o.Value()))
	}
}

func parseValues[T vector.Element](args []string, parse func(string) (T, error)) ([]T, error) {
	values := make([]T, len(args))
	for i, a := range args {
		x, err := parse(a)
		if err != nil {
			return nil, err
		}
		values[i] = x
	}
	return values, nil
}

func (s *session) vectorOf(values any, err error) (string, error) {
	if err != nil {
		return "", err
	}
	switch vals := values.(type) {
	case []scalar.Rfloat:
		return s.vector(vector.FromValues(s.h, vals))
	case []scalar.Rint:
		return s.vector(vector.FromValues(s.h, vals))
	case []scalar.Rbool:
		return s.vector(vector.FromValues(s.h, vals))
	}
	return "", errors.Unsupported(errors.PhaseConvert, fmt.Sprintf("values of type %T", values))
}

func parseDouble(s string) (scalar.Rfloat, error) {
	if s == "NA" {
		return scalar.NAFloat(), nil
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, usageError("bad double %q", s)
	}
	return scalar.Rfloat(x), nil
}

func parseInt(s string) (scalar.Rint, error) {
	if s == "NA" {
		return scalar.NAInt(), nil
	}
	x, err := strconv.ParseInt(s, 10, 32)
	if err != nil || scalar.Rint(x).IsNA() {
		return 0, usageError("bad integer %q", s)
	}
	return scalar.Rint(x), nil
}

func parseLogical(s string) (scalar.Rbool, error) {
	switch s {
	case "TRUE", "T", "true":
		return scalar.True, nil
	case "FALSE", "F", "false":
		return scalar.False, nil
	case "NA":
		return scalar.NABool(), nil
	default:
		return 0, usageError("bad logical %q", s)
	}
}

func saveFile(path string, v heap.Value, c serialize.Compression) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := serialize.SaveValue(f, v, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadFile(h *heap.Heap, path string) (object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdr, err := serialize.ReadHeader(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch hdr.Type {
	case heap.RealSxp:
		return serialize.Load[scalar.Rfloat](f, h)
	case heap.IntSxp:
		return serialize.Load[scalar.Rint](f, h)
	default:
		return serialize.Load[scalar.Rbool](f, h)
	}
}
