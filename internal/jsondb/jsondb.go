// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package jsondb implements the JSON key-value store of spec.md §4's
// component J: a directory-per-database store mapping string keys to
// JSON files on disk, with an optional compression codec, an mtime
// ("created_after") filter and a lazily-rebuilt on-disk index.
// Grounded directly on original_source/dkit/data/json_db.py's JSONDB.
package jsondb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/transport"
)

const indexFileName = ".index.json"

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)
	wordChar   = regexp.MustCompile(`\w`)
)

// sanitiseName mirrors dkit.utilities.file_helper.sanitise_name: lower
// case, strip punctuation, collapse whitespace runs to a dash.
func sanitiseName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonWord.ReplaceAllStringFunc(s, func(m string) string {
		// \w in Python includes underscore and unicode word chars;
		// approximate with Go's \w plus underscore already covered.
		if wordChar.MatchString(m) {
			return m
		}
		return ""
	})
	s = whitespace.ReplaceAllString(s, "-")
	return s
}

// DB is a directory-backed JSON key-value store. Safe for concurrent
// use by multiple goroutines.
type DB struct {
	mu sync.Mutex

	dir          string
	suffix       string
	compress     string // "" or a name from internal/transport's compression set
	allowNull    bool
	createdAfter time.Time // zero value disables the filter

	indexPath  string
	index      map[string]string // key -> safe (filename-stem) key
	indexMtime time.Time
	mtimeCache map[string]time.Time
}

// Options configures a new DB.
type Options struct {
	// Compress names a compression codec known to internal/transport
	// ("gz", "zstd", "xz", "lz4", "snappy"); empty for none. Unlike
	// the original's bz2 option, write-side bz2 is not offered here —
	// see internal/transport's documented bz2 write limitation.
	Compress string
	// AllowNull, when false, rejects storing a nil value (used for
	// pipelines where null signals a failed/incomplete item).
	AllowNull bool
	// CreatedAfter, when non-zero, hides entries whose file mtime is
	// not strictly after this time.
	CreatedAfter time.Time
}

// Open creates the directory (if needed) and returns a DB rooted there.
func Open(dir string, opts Options) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &dkerr.IOError{URI: dir, Err: err}
	}
	suffix := "json"
	if opts.Compress != "" {
		suffix = "json." + opts.Compress
	}
	db := &DB{
		dir:          dir,
		suffix:       suffix,
		compress:     opts.Compress,
		allowNull:    opts.AllowNull,
		createdAfter: opts.CreatedAfter,
		indexPath:    filepath.Join(dir, indexFileName),
		mtimeCache:   map[string]time.Time{},
	}
	return db, nil
}

func (db *DB) filePath(safeKey string) string {
	return filepath.Join(db.dir, safeKey+"."+db.suffix)
}

func reverseTransform(filePath, suffix string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, "."+suffix)
}

func (db *DB) getMtime(safeKey string) (time.Time, bool) {
	if t, ok := db.mtimeCache[safeKey]; ok {
		return t, true
	}
	fi, err := os.Stat(db.filePath(safeKey))
	if err != nil {
		return time.Time{}, false
	}
	db.mtimeCache[safeKey] = fi.ModTime()
	return fi.ModTime(), true
}

func (db *DB) passesCreatedAfter(safeKey string) bool {
	if db.createdAfter.IsZero() {
		return true
	}
	mtime, ok := db.getMtime(safeKey)
	if !ok {
		return false
	}
	return mtime.After(db.createdAfter)
}

// loadIndex returns the cached index, reloading from disk if the
// index file's mtime has changed since the cache was filled.
func (db *DB) loadIndex() map[string]string {
	fi, err := os.Stat(db.indexPath)
	if err != nil {
		db.index = map[string]string{}
		db.indexMtime = time.Time{}
		return db.index
	}
	if db.index != nil && fi.ModTime().Equal(db.indexMtime) {
		return db.index
	}
	raw, err := os.ReadFile(db.indexPath)
	if err != nil {
		db.index = map[string]string{}
		db.indexMtime = time.Time{}
		return db.index
	}
	idx := map[string]string{}
	if err := json.Unmarshal(raw, &idx); err != nil {
		db.index = map[string]string{}
		db.indexMtime = time.Time{}
		return db.index
	}
	db.index = idx
	db.indexMtime = fi.ModTime()
	return db.index
}

// saveIndex atomically writes the index to disk via a temp file and
// rename, refreshing the in-memory cache.
func (db *DB) saveIndex(idx map[string]string) error {
	if len(idx) == 0 {
		os.Remove(db.indexPath)
		db.index = map[string]string{}
		db.indexMtime = time.Time{}
		return nil
	}
	raw, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	tmp := db.indexPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return &dkerr.IOError{URI: tmp, Err: err}
	}
	if err := os.Rename(tmp, db.indexPath); err != nil {
		return &dkerr.IOError{URI: db.indexPath, Err: err}
	}
	db.index = idx
	if fi, err := os.Stat(db.indexPath); err == nil {
		db.indexMtime = fi.ModTime()
	}
	return nil
}

// Refresh drops all caches, forcing the next operation to reload the
// index and mtimes from disk.
func (db *DB) Refresh() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.index = nil
	db.indexMtime = time.Time{}
	db.mtimeCache = map[string]time.Time{}
	db.loadIndex()
}

// RebuildIndex reconstructs the index by scanning the directory for
// files with this DB's suffix, for lazy recovery if the index file
// was lost.
func (db *DB) RebuildIndex() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	entries, err := os.ReadDir(db.dir)
	if err != nil {
		return &dkerr.IOError{URI: db.dir, Err: err}
	}
	idx := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || e.Name() == indexFileName {
			continue
		}
		if !strings.HasSuffix(e.Name(), "."+db.suffix) {
			continue
		}
		safeKey := reverseTransform(e.Name(), db.suffix)
		idx[safeKey] = safeKey
	}
	return db.saveIndex(idx)
}

// Set stores value under key, overwriting any existing entry. Key
// must be a non-empty string; a nil value is rejected unless AllowNull
// was set.
func (db *DB) Set(key string, value any) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if value == nil && !db.allowNull {
		return &dkerr.ValidationError{Entity: "jsondb", Field: key, Detail: "null value not allowed"}
	}
	safeKey := sanitiseName(key)
	fp := db.filePath(safeKey)
	if fp == db.indexPath {
		return &dkerr.ValidationError{Entity: "jsondb", Field: key, Detail: "reserved key"}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := db.writeFile(fp, raw); err != nil {
		return err
	}
	idx := db.loadIndex()
	idx[key] = safeKey
	if err := db.saveIndex(idx); err != nil {
		return err
	}
	if fi, err := os.Stat(fp); err == nil {
		db.mtimeCache[safeKey] = fi.ModTime()
	}
	return nil
}

func (db *DB) writeFile(path string, raw []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &dkerr.IOError{URI: tmp, Err: err}
	}
	w, err := transport.WrapWriter(db.compress, f)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		os.Remove(tmp)
		return &dkerr.IOError{URI: tmp, Err: err}
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return &dkerr.IOError{URI: path, Err: err}
	}
	return nil
}

func (db *DB) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := transport.WrapReader(db.compress, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	defer r.Close()
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	return buf, nil
}

// Get loads the value stored under key. ok is false if the key is
// absent or fails the CreatedAfter filter.
func (db *DB) Get(key string, out any) (ok bool, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	idx := db.loadIndex()
	safeKey, have := idx[key]
	if !have {
		safeKey = sanitiseName(key)
	}
	fp := db.filePath(safeKey)
	if fp == db.indexPath {
		return false, nil
	}
	if _, err := os.Stat(fp); err != nil {
		return false, nil
	}
	if !have {
		idx[key] = safeKey
		if err := db.saveIndex(idx); err != nil {
			return false, err
		}
	}
	if !db.passesCreatedAfter(safeKey) {
		return false, nil
	}
	raw, err := db.readFile(fp)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// Has reports whether key exists and passes the CreatedAfter filter.
func (db *DB) Has(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	idx := db.loadIndex()
	safeKey, have := idx[key]
	if !have {
		safeKey = sanitiseName(key)
	}
	fp := db.filePath(safeKey)
	if fp == db.indexPath {
		return false
	}
	if _, err := os.Stat(fp); err != nil {
		return false
	}
	if !have {
		idx[key] = safeKey
		db.saveIndex(idx)
	}
	return db.passesCreatedAfter(safeKey)
}

// Delete removes the entry for key.
func (db *DB) Delete(key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	idx := db.loadIndex()
	safeKey, have := idx[key]
	if !have {
		safeKey = sanitiseName(key)
	}
	fp := db.filePath(safeKey)
	if err := os.Remove(fp); err != nil {
		return &dkerr.IOError{URI: fp, Err: err}
	}
	if have {
		delete(idx, key)
		if err := db.saveIndex(idx); err != nil {
			return err
		}
	}
	delete(db.mtimeCache, safeKey)
	return nil
}

// Len returns the count of entries passing the CreatedAfter filter.
func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	idx := db.loadIndex()
	if db.createdAfter.IsZero() {
		return len(idx)
	}
	n := 0
	for _, safeKey := range idx {
		if db.passesCreatedAfter(safeKey) {
			n++
		}
	}
	return n
}

// Keys returns all keys passing the CreatedAfter filter.
func (db *DB) Keys() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	idx := db.loadIndex()
	keys := make([]string, 0, len(idx))
	for key, safeKey := range idx {
		if db.passesCreatedAfter(safeKey) {
			keys = append(keys, key)
		}
	}
	return keys
}

// GetInt64 is a convenience accessor for integer-valued entries used
// by the journal and verifier, which store plain scalars rather than
// full records.
func (db *DB) GetInt64(key string) (int64, bool, error) {
	var v json.Number
	ok, err := db.Get(key, &v)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.ParseInt(v.String(), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("jsondb: %s is not an integer: %w", key, err)
	}
	return n, true, nil
}
