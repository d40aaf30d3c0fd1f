// Package bundle reads flat tar archives holding one mesh file per member,
// as served by segmentation stores for supervoxel meshes.
package bundle

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

// Bundle errors.
var (
	ErrNotFound = errors.New("member not found")
)

// Archive is a fully loaded tar archive.
type Archive struct {
	entries map[string]*Entry
	names   []string
}

// Entry describes one regular-file member.
type Entry struct {
	Name string
	Size int64
	data []byte
}

// Ext returns the member extension without the leading dot, lower-cased.
func (e *Entry) Ext() string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(e.Name), "."))
}

// Open reads a tar archive from disk.
func Open(filename string) (*Archive, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	a, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return a, nil
}

// FromBytes reads a tar archive held in memory.
func FromBytes(data []byte) (*Archive, error) {
	return read(bytes.NewReader(data))
}

func read(r io.Reader) (*Archive, error) {
	a := &Archive{entries: make(map[string]*Entry)}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar header: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		data := make([]byte, hdr.Size)
		if _, err := io.ReadFull(tr, data); err != nil {
			return nil, fmt.Errorf("reading member %s: %w", hdr.Name, err)
		}

		name := normalizeName(hdr.Name)
		if _, dup := a.entries[name]; !dup {
			a.names = append(a.names, name)
		}
		a.entries[name] = &Entry{Name: name, Size: hdr.Size, data: data}
	}

	// Sorted so tarball storage order never affects vertex order downstream.
	sort.Strings(a.names)
	return a, nil
}

// List returns all member names, sorted.
func (a *Archive) List() []string {
	return append([]string(nil), a.names...)
}

// Entries returns all members in name order.
func (a *Archive) Entries() []*Entry {
	out := make([]*Entry, len(a.names))
	for i, n := range a.names {
		out[i] = a.entries[n]
	}
	return out
}

// Contains checks if a member exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.entries[normalizeName(name)]
	return ok
}

// Read returns a member's contents.
func (a *Archive) Read(name string) ([]byte, error) {
	e, ok := a.entries[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e.data, nil
}

// Data returns the member's contents.
func (e *Entry) Data() []byte {
	return e.data
}

// Write builds a tar archive from name → contents pairs, in name order.
func Write(w io.Writer, members map[string][]byte) error {
	names := make([]string, 0, len(members))
	for n := range members {
		names = append(names, n)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	for _, n := range names {
		data := members[n]
		hdr := &tar.Header{Name: n, Mode: 0644, Size: int64(len(data)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(data); err != nil {
			return err
		}
	}
	return tw.Close()
}

func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(name, "./")
}
