package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xchecker/xchecker/internal/atomicfile"
	"github.com/xchecker/xchecker/internal/canon"
)

func sortedOutputHashes(hashes []OutputHash) []OutputHash {
	out := make([]OutputHash, len(hashes))
	copy(out, hashes)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Store persists and retrieves receipts for one spec directory.
type Store struct {
	receiptsDir string
}

// NewStore returns a Store rooted at receiptsDir (normally
// "<spec>/receipts").
func NewStore(receiptsDir string) *Store {
	return &Store{receiptsDir: receiptsDir}
}

// filename returns "<phase>-YYYYMMDD_HHMMSS.json" for r.
func filename(r Receipt) string {
	return fmt.Sprintf("%s-%s.json", r.Phase, r.EmittedAt.UTC().Format("20060102_150405"))
}

// Write serializes r via JCS and writes it atomically to
// receipts/<phase>-YYYYMMDD_HHMMSS.json.
func (s *Store) Write(r Receipt) (string, error) {
	if err := os.MkdirAll(s.receiptsDir, 0755); err != nil {
		return "", fmt.Errorf("receipt: creating %q: %w", s.receiptsDir, err)
	}
	body, err := canon.MarshalJCS(r)
	if err != nil {
		return "", fmt.Errorf("receipt: serializing: %w", err)
	}
	body = append(body, '\n')

	dest := filepath.Join(s.receiptsDir, filename(r))
	if _, err := atomicfile.Write(dest, body, 0644); err != nil {
		return "", fmt.Errorf("receipt: writing %q: %w", dest, err)
	}
	return dest, nil
}

// List reads every receipt for the spec, sorted ascending by emitted_at
// (ties broken by filename).
func (s *Store) List() ([]Receipt, error) {
	entries, err := os.ReadDir(s.receiptsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("receipt: listing %q: %w", s.receiptsDir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	receipts := make([]Receipt, 0, len(names))
	for _, name := range names {
		r, err := readReceiptFile(filepath.Join(s.receiptsDir, name))
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].EmittedAt.Before(receipts[j].EmittedAt)
	})
	return receipts, nil
}

// ReadLatest returns the most recent receipt for phase, or false if none
// exist.
func (s *Store) ReadLatest(phase string) (Receipt, bool, error) {
	all, err := s.List()
	if err != nil {
		return Receipt{}, false, err
	}
	var latest Receipt
	found := false
	for _, r := range all {
		if r.Phase != phase {
			continue
		}
		if !found || r.EmittedAt.After(latest.EmittedAt) {
			latest = r
			found = true
		}
	}
	return latest, found, nil
}

// LatestPath returns the on-disk path of the newest receipt across all
// phases (spec §4.11's last_receipt_path), or false if none exist.
func (s *Store) LatestPath() (string, bool, error) {
	all, err := s.List()
	if err != nil {
		return "", false, err
	}
	if len(all) == 0 {
		return "", false, nil
	}
	latest := all[len(all)-1]
	return filepath.Join(s.receiptsDir, filename(latest)), true, nil
}

// Latest returns the newest receipt across all phases, or false if
// none exist — the receipt companion to LatestPath, for callers (like
// internal/doctor) that need the parsed record rather than its path.
func (s *Store) Latest() (Receipt, bool, error) {
	all, err := s.List()
	if err != nil {
		return Receipt{}, false, err
	}
	if len(all) == 0 {
		return Receipt{}, false, nil
	}
	return all[len(all)-1], true, nil
}

func readReceiptFile(path string) (Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Receipt{}, fmt.Errorf("receipt: reading %q: %w", path, err)
	}
	var r Receipt
	if err := unmarshalReceipt(data, &r); err != nil {
		return Receipt{}, fmt.Errorf("receipt: parsing %q: %w", path, err)
	}
	return r, nil
}
