package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// lockRecord is the on-disk shape of a spec's ".lock" file (spec §5).
type lockRecord struct {
	Pid       int       `json:"pid"`
	Host      string    `json:"host"`
	CreatedAt time.Time `json:"created_at"`
}

// defaultStaleTTL is the default age after which a lock is considered
// stale even if its pid still looks live (spec §5: "configurable TTL,
// default 15 minutes").
const defaultStaleTTL = 15 * time.Minute

// ConcurrentExecution reports that another live process holds the lock.
type ConcurrentExecution struct {
	SpecID     string
	Pid        int
	CreatedAgo time.Duration
}

func (e *ConcurrentExecution) Error() string {
	return fmt.Sprintf("artifact: spec %q is locked by pid %d (held %s)", e.SpecID, e.Pid, e.CreatedAgo)
}

// StaleLock reports a lock file whose holder is gone, refused without
// --force.
type StaleLock struct {
	SpecID string
	Record lockRecord
	TTL    time.Duration
}

func (e *StaleLock) Error() string {
	return fmt.Sprintf("artifact: spec %q has a stale lock (pid %d, created %s, ttl %s)", e.SpecID, e.Record.Pid, e.Record.CreatedAt, e.TTL)
}

// acquireLock takes an OS-level exclusive, non-blocking lock on lockPath
// (spec §5: "an OS-level exclusive file lock is acquired") via
// github.com/gofrs/flock, then — still holding it — runs the
// read-check-write sequence that decides whether this is a fresh
// acquisition, a recovery of an abandoned one (via --force), or a
// rejection. Taking the flock first is what closes the TOCTOU window a
// plain read-then-write of the JSON record would otherwise leave open
// between two concurrent callers: only one caller can ever be inside the
// read-check-write section for a given lockPath at a time.
//
// staleTTL <= 0 uses defaultStaleTTL; it is carried into any returned
// StaleLock purely for diagnostics — once the OS-level lock is held,
// the leftover record can only belong to a holder the OS has already
// confirmed gone (flock is released on process exit, including a
// crash), so no TTL arithmetic is needed to tell stale from live.
func acquireLock(specID, lockPath string, force bool, staleTTL time.Duration) (*flock.Flock, error) {
	if staleTTL <= 0 {
		staleTTL = defaultStaleTTL
	}

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("artifact: acquiring OS-level lock %q: %w", lockPath, err)
	}
	if !locked {
		// Another process holds the OS-level lock, so it is live by
		// construction: the OS would have released the lock already
		// had that process exited or crashed.
		existing, _, _ := readLock(lockPath)
		return nil, &ConcurrentExecution{SpecID: specID, Pid: existing.Pid, CreatedAgo: time.Since(existing.CreatedAt)}
	}

	existing, ok, err := readLock(lockPath)
	if err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("artifact: reading lock %q: %w", lockPath, err)
	}
	if ok && !force {
		fl.Unlock()
		return nil, &StaleLock{SpecID: specID, Record: existing, TTL: staleTTL}
	}

	if err := writeLock(lockPath); err != nil {
		fl.Unlock()
		return nil, err
	}
	return fl, nil
}

func readLock(lockPath string) (lockRecord, bool, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return lockRecord{}, false, nil
		}
		return lockRecord{}, false, err
	}
	if len(data) == 0 {
		// flock.New(lockPath).TryLock() creates the file via O_CREATE
		// on the very first acquisition, before any record has ever
		// been written to it; an empty file is "no record", not a
		// corrupt one.
		return lockRecord{}, false, nil
	}
	var rec lockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt lock file is treated as stale rather than fatal: a
		// half-written lock from a crash should not permanently wedge
		// the spec.
		return lockRecord{}, true, nil
	}
	return rec, true, nil
}

func writeLock(lockPath string) error {
	rec := lockRecord{Pid: os.Getpid(), Host: hostname(), CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(lockPath, data, 0644)
}

// releaseLock unlocks the OS-level lock (if held) and removes the
// record file, in that order, so a concurrent TryLock never observes a
// removed file while the flock is still outstanding.
func releaseLock(lockPath string, fl *flock.Flock) error {
	if fl != nil {
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("artifact: releasing OS-level lock %q: %w", lockPath, err)
		}
	}
	err := os.Remove(lockPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
