package kv

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"lintang/knooppuntx/pkg/util"

	"github.com/cockroachdb/pebble"
	"github.com/uber/h3-go/v4"
)

// CellResolution h3 resolution used to bucket coordinates in cache keys (~5 km2 cells).
const CellResolution = 7

type entry struct {
	ExpiresAt time.Time
	Payload   []byte
}

// KVDB pebble-backed TTL cache. Values are gob encoded and zstd compressed.
type KVDB struct {
	db  *pebble.DB
	now func() time.Time
}

func NewKVDB(db *pebble.DB) *KVDB {
	return &KVDB{db: db, now: time.Now}
}

// Open opens (or creates) the pebble database at dir.
func Open(dir string) (*KVDB, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return NewKVDB(db), nil
}

func (k *KVDB) Close() error {
	return k.db.Close()
}

// Put stores value under key for ttl.
func (k *KVDB) Put(key string, value any, ttl time.Duration) error {
	payload := new(bytes.Buffer)
	if err := gob.NewEncoder(payload).Encode(value); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(entry{ExpiresAt: k.now().Add(ttl), Payload: payload.Bytes()}); err != nil {
		return err
	}
	val, err := util.Compress(buf.Bytes())
	if err != nil {
		return err
	}
	return k.db.Set([]byte(key), val, pebble.Sync)
}

// Get decodes the value under key into out. Missing and expired keys report false.
func (k *KVDB) Get(key string, out any) (bool, error) {
	val, closer, err := k.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()

	raw, err := util.Decompress(val)
	if err != nil {
		return false, err
	}
	var e entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&e); err != nil {
		return false, err
	}
	if k.now().After(e.ExpiresAt) {
		k.db.Delete([]byte(key), pebble.NoSync)
		return false, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(e.Payload)).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

// CellKey cache key for a coordinate: prefix, the h3 cell holding (lat, lon), and suffix.
func CellKey(prefix string, lat, lon float64, suffix string) string {
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lon), CellResolution)
	if suffix == "" {
		return prefix + ":" + cell.String()
	}
	return prefix + ":" + cell.String() + ":" + suffix
}
