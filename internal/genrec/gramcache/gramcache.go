// Package gramcache persists a compiled grammar's FIRST/FOLLOW sets to disk
// so that repeated -c/-f/-l runs over an unchanged grammar file can skip
// setengine's fixed-point recomputation.
//
// Grounded on internal/tunascript/ast.go + binary.go's hand-rolled
// encoding.BinaryMarshaler/Unmarshaler implementations (length-prefixed
// ints and UTF-8-rune-counted strings), fed through github.com/dekarrin/
// rezi's EncBinary/DecBinary wrapper exactly as server/dao/sqlite/sqlite.go
// persists a *game.State: rezi.EncBinary(v) to get framed bytes out of a
// BinaryMarshaler, rezi.DecBinary(data, v) to read them back into one.
package gramcache

import (
	"crypto/sha256"
	"encoding"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/dekarrin/rezi"

	"github.com/dekarrin/genrec/internal/genrec/grammar"
	"github.com/dekarrin/genrec/internal/genrec/termset"
)

// Fingerprint returns a hex digest of src, used to detect whether a cache
// file still matches the grammar it was computed from.
func Fingerprint(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// entry is one rule's cached FIRST/FOLLOW pair.
type entry struct {
	name   string
	first  termset.Set
	follow termset.Set
}

// Cache is the on-disk unit: a grammar fingerprint plus one entry per rule.
type Cache struct {
	Fingerprint string
	entries     []entry
}

// FromRegistry builds a Cache from reg's already-computed FIRST/FOLLOW sets,
// stamped with fingerprint (normally gramcache.Fingerprint of the grammar
// source that produced reg).
func FromRegistry(reg *grammar.Registry, fingerprint string) *Cache {
	c := &Cache{Fingerprint: fingerprint}
	for _, r := range reg.Rules() {
		c.entries = append(c.entries, entry{name: r.Name, first: r.FirstSet, follow: r.Follow})
	}
	return c
}

// Apply writes c's cached FIRST/FOLLOW sets back onto reg's rules, matching
// by rule name. Rules present in reg but absent from c are left untouched;
// callers should treat a fingerprint mismatch as "do not Apply" and instead
// recompute from scratch.
func (c *Cache) Apply(reg *grammar.Registry) {
	for _, e := range c.entries {
		for _, r := range reg.Rules() {
			if r.Name == e.name {
				r.FirstSet = e.first
				r.Follow = e.follow
				break
			}
		}
	}
}

// Save writes c to path, framed through rezi.EncBinary.
func Save(path string, c *Cache) error {
	data := rezi.EncBinary(c)
	return os.WriteFile(path, data, 0o644)
}

// Load reads a Cache previously written by Save.
func Load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := &Cache{}
	n, err := rezi.DecBinary(data, c)
	if err != nil {
		return nil, fmt.Errorf("decode grammar cache: %w", err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("decode grammar cache: trailing data")
	}
	return c, nil
}

var _ encoding.BinaryMarshaler = (*Cache)(nil)
var _ encoding.BinaryUnmarshaler = (*Cache)(nil)

func (c *Cache) MarshalBinary() ([]byte, error) {
	var data []byte
	data = append(data, encString(c.Fingerprint)...)
	data = append(data, encInt(len(c.entries))...)
	for _, e := range c.entries {
		data = append(data, e.marshalBinary()...)
	}
	return data, nil
}

func (c *Cache) UnmarshalBinary(data []byte) error {
	fp, n, err := decString(data)
	if err != nil {
		return err
	}
	data = data[n:]
	c.Fingerprint = fp

	count, n, err := decInt(data)
	if err != nil {
		return err
	}
	data = data[n:]

	c.entries = nil
	for i := 0; i < count; i++ {
		var e entry
		consumed, err := e.unmarshalBinary(data)
		if err != nil {
			return err
		}
		data = data[consumed:]
		c.entries = append(c.entries, e)
	}
	return nil
}

func (e entry) marshalBinary() []byte {
	var data []byte
	data = append(data, encString(e.name)...)
	data = append(data, encUint64(uint64(e.first))...)
	data = append(data, encUint64(uint64(e.follow))...)
	return data
}

func (e *entry) unmarshalBinary(data []byte) (int, error) {
	total := 0

	name, n, err := decString(data)
	if err != nil {
		return 0, err
	}
	data = data[n:]
	total += n
	e.name = name

	first, n, err := decUint64(data)
	if err != nil {
		return 0, err
	}
	data = data[n:]
	total += n
	e.first = termset.Set(first)

	follow, n, err := decUint64(data)
	if err != nil {
		return 0, err
	}
	total += n
	e.follow = termset.Set(follow)

	return total, nil
}

// encInt/decInt, encString/decString follow internal/tunascript/binary.go's
// scheme exactly: ints as signed varints, strings as a rune count followed
// by their UTF-8 bytes.

func encInt(i int) []byte {
	enc := make([]byte, 8)
	return binary.AppendVarint(enc[:0], int64(i))
}

func decInt(data []byte) (int, int, error) {
	if len(data) < 1 {
		return 0, 0, fmt.Errorf("gramcache: unexpected end of data reading int")
	}
	val, read := binary.Varint(data)
	if read <= 0 {
		return 0, 0, fmt.Errorf("gramcache: malformed varint")
	}
	return int(val), read, nil
}

func encUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decUint64(data []byte) (uint64, int, error) {
	if len(data) < 8 {
		return 0, 0, fmt.Errorf("gramcache: unexpected end of data reading uint64")
	}
	return binary.BigEndian.Uint64(data[:8]), 8, nil
}

func encString(s string) []byte {
	var body []byte
	count := 0
	for _, r := range s {
		buf := make([]byte, utf8.UTFMax)
		n := utf8.EncodeRune(buf, r)
		body = append(body, buf[:n]...)
		count++
	}
	return append(encInt(count), body...)
}

func decString(data []byte) (string, int, error) {
	count, n, err := decInt(data)
	if err != nil {
		return "", 0, err
	}
	total := n
	data = data[n:]

	buf := make([]rune, 0, count)
	for i := 0; i < count; i++ {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			return "", 0, fmt.Errorf("gramcache: invalid utf-8 in cached string")
		}
		buf = append(buf, r)
		data = data[size:]
		total += size
	}
	return string(buf), total, nil
}
