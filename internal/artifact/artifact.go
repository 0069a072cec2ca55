// Package artifact owns the on-disk layout of one spec: its directory
// tree, the exclusive lock, and the .partial/ staging discipline that
// guarantees a crash never leaves a half-written artifact under
// artifacts/ (spec §4.6).
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/xchecker/xchecker/internal/atomicfile"
	"github.com/xchecker/xchecker/internal/canon"
	"github.com/xchecker/xchecker/internal/phaseid"
	"github.com/xchecker/xchecker/internal/sandbox"
)

// Classifier is the typed content kind an Artifact carries; it
// determines the final file extension.
type Classifier int

const (
	ClassMarkdown Classifier = iota
	ClassCoreYAML
	ClassPartial
	ClassContext
)

func (c Classifier) ext() string {
	switch c {
	case ClassCoreYAML:
		return ".core.yaml"
	case ClassContext:
		return ".txt"
	default:
		return ".md"
	}
}

// Artifact is one piece of phase output awaiting staging or promotion.
type Artifact struct {
	Name       string
	Content    []byte
	Classifier Classifier
}

// ArtifactStoreResult reports where a staged artifact landed.
type ArtifactStoreResult struct {
	Path         string
	Hash         string
	Retries      int
	FallbackUsed bool
}

// CanonType returns the canon.Type the canonicalizer should use when
// hashing an artifact of this classifier for a receipt's output_hashes.
func (c Classifier) CanonType() canon.Type {
	switch c {
	case ClassCoreYAML:
		return canon.YAML
	case ClassContext:
		return canon.Text
	default:
		return canon.Markdown
	}
}

var specIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// SanitizeSpecID rejects spec identifiers that could traverse upward or
// contain reserved characters.
func SanitizeSpecID(id string) error {
	if id == "" {
		return fmt.Errorf("artifact: spec id must not be empty")
	}
	if id == "." || id == ".." || strings.Contains(id, "/") || strings.Contains(id, `\`) {
		return fmt.Errorf("artifact: spec id %q would traverse the root", id)
	}
	if !specIDPattern.MatchString(id) {
		return fmt.Errorf("artifact: spec id %q contains reserved characters", id)
	}
	return nil
}

// Manager owns one spec's directory tree under root.
type Manager struct {
	specID   string
	root     string
	sb       *sandbox.Sandbox
	readonly bool
	locked   bool
	lock     *flock.Flock
}

// Options configures Manager construction.
type Options struct {
	Force    bool
	StaleTTL int64 // seconds; 0 uses the default TTL
}

// New acquires the lock, ensures the directory tree, and returns a
// Manager. Readonly callers should use NewReadonly instead.
func New(root, specID string, opts Options) (*Manager, error) {
	if err := SanitizeSpecID(specID); err != nil {
		return nil, err
	}
	specDir := filepath.Join(root, specID)
	if err := os.MkdirAll(specDir, 0755); err != nil {
		return nil, fmt.Errorf("artifact: creating %q: %w", specDir, err)
	}
	sb, err := sandbox.New(specDir, sandbox.Policy{})
	if err != nil {
		return nil, err
	}
	for _, sub := range []string{"artifacts", "receipts", "context", ".partial"} {
		if err := os.MkdirAll(filepath.Join(specDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("artifact: creating %q: %w", sub, err)
		}
	}

	lockPath := filepath.Join(specDir, ".lock")
	fl, err := acquireLock(specID, lockPath, opts.Force, time.Duration(opts.StaleTTL)*time.Second)
	if err != nil {
		return nil, err
	}
	return &Manager{specID: specID, root: specDir, sb: sb, locked: true, lock: fl}, nil
}

// NewReadonly constructs a Manager without acquiring the lock. It may be
// called on a non-existent spec (status queries only) and must not
// mutate any state.
func NewReadonly(root, specID string) (*Manager, error) {
	if err := SanitizeSpecID(specID); err != nil {
		return nil, err
	}
	specDir := filepath.Join(root, specID)
	sb, err := sandbox.New(specDir, sandbox.Policy{})
	if err != nil {
		return nil, err
	}
	return &Manager{specID: specID, root: specDir, sb: sb, readonly: true}, nil
}

// Close releases the lock, if held.
func (m *Manager) Close() error {
	if m.readonly || !m.locked {
		return nil
	}
	m.locked = false
	return releaseLock(filepath.Join(m.root, ".lock"), m.lock)
}

// Root returns the spec's root directory.
func (m *Manager) Root() string { return m.root }

// Readonly reports whether m was constructed via NewReadonly (and so
// never holds the spec's lock).
func (m *Manager) Readonly() bool { return m.readonly }

// LockInfo is a read-only snapshot of a spec's ".lock" record, for
// status reporting by callers that never acquired it themselves.
type LockInfo struct {
	Pid  int
	Host string
}

// PeekLock reads the spec's lock record without taking the OS-level
// lock — safe to call on any Manager, including read-only ones. ok is
// false when no lock file currently exists.
func (m *Manager) PeekLock() (LockInfo, bool, error) {
	rec, ok, err := readLock(filepath.Join(m.root, ".lock"))
	if err != nil || !ok {
		return LockInfo{}, false, err
	}
	return LockInfo{Pid: rec.Pid, Host: rec.Host}, true, nil
}

func (m *Manager) requireWritable() error {
	if m.readonly {
		return fmt.Errorf("artifact: spec %q is open read-only", m.specID)
	}
	return nil
}

// RemoveStaleePartialDir is a best-effort removal of .partial/, called
// at phase entry to discard stale staging.
func (m *Manager) RemoveStalePartialDir() error {
	if err := m.requireWritable(); err != nil {
		return err
	}
	partial := filepath.Join(m.root, ".partial")
	if err := os.RemoveAll(partial); err != nil {
		return fmt.Errorf("artifact: clearing .partial: %w", err)
	}
	return os.MkdirAll(partial, 0755)
}

// StorePartialStagedArtifact writes a to .partial/<name> via the atomic
// writer.
func (m *Manager) StorePartialStagedArtifact(a Artifact) (ArtifactStoreResult, error) {
	if err := m.requireWritable(); err != nil {
		return ArtifactStoreResult{}, err
	}
	dest, err := m.sb.Join(filepath.Join(".partial", a.Name))
	if err != nil {
		return ArtifactStoreResult{}, err
	}
	content := normalizeLineEndingsBytes(a.Content)
	res, err := atomicfile.Write(dest, content, 0644)
	if err != nil {
		return ArtifactStoreResult{}, err
	}
	return ArtifactStoreResult{Path: res.Path, Hash: canon.HashBytes(content), Retries: res.Retries, FallbackUsed: res.FallbackUsed}, nil
}

// PromoteStagedToFinal sandbox-validates both source and destination,
// then renames .partial/<name> to artifacts/<name>. Fails if no staged
// file exists.
func (m *Manager) PromoteStagedToFinal(name string) (string, error) {
	if err := m.requireWritable(); err != nil {
		return "", err
	}
	src, err := m.sb.Join(filepath.Join(".partial", name))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("artifact: no staged file %q to promote: %w", name, err)
	}
	dest, err := m.sb.Join(filepath.Join("artifacts", name))
	if err != nil {
		return "", err
	}
	if err := os.Rename(src, dest); err != nil {
		return "", fmt.Errorf("artifact: promoting %q: %w", name, err)
	}
	return dest, nil
}

// StoreContextFile writes content to context/<name>.txt.
func (m *Manager) StoreContextFile(name, content string) (string, error) {
	if err := m.requireWritable(); err != nil {
		return "", err
	}
	dest, err := m.sb.Join(filepath.Join("context", name+".txt"))
	if err != nil {
		return "", err
	}
	res, err := atomicfile.Write(dest, normalizeLineEndingsBytes([]byte(content)), 0644)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// ReadFinalArtifact reads a promoted artifact under artifacts/<name>,
// for phases that need a prior phase's final output as input (e.g.
// Design reads Requirements, Fixup reads Review).
func (m *Manager) ReadFinalArtifact(name string) ([]byte, error) {
	path, err := m.sb.Join(filepath.Join("artifacts", name))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// HasPartialArtifact reports whether phase has a staged artifact.
func (m *Manager) HasPartialArtifact(phase phaseid.ID) bool {
	name := phase.Prefix() + "-" + phase.Slug() + ".md"
	path, err := m.sb.Join(filepath.Join(".partial", name))
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// ReadPartialArtifact reads phase's staged .md artifact, if any.
func (m *Manager) ReadPartialArtifact(phase phaseid.ID) ([]byte, error) {
	name := phase.Prefix() + "-" + phase.Slug() + ".md"
	path, err := m.sb.Join(filepath.Join(".partial", name))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// DeletePartialArtifact removes phase's staged .md artifact.
func (m *Manager) DeletePartialArtifact(phase phaseid.ID) error {
	if err := m.requireWritable(); err != nil {
		return err
	}
	name := phase.Prefix() + "-" + phase.Slug() + ".md"
	path, err := m.sb.Join(filepath.Join(".partial", name))
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// PhaseCompleted reports true iff both the .md and .core.yaml final
// artifacts exist for phase.
func (m *Manager) PhaseCompleted(phase phaseid.ID) bool {
	base := phase.Prefix() + "-" + phase.Slug()
	md, err1 := m.sb.Join(filepath.Join("artifacts", base+".md"))
	yaml, err2 := m.sb.Join(filepath.Join("artifacts", base+".core.yaml"))
	if err1 != nil {
		return false
	}
	if _, err := os.Stat(md); err != nil {
		return false
	}
	// Fixup and Final never emit a .core.yaml companion; presence of the
	// .md is sufficient for those two.
	if phase == phaseid.Fixup || phase == phaseid.Final {
		return true
	}
	if err2 != nil {
		return false
	}
	_, err := os.Stat(yaml)
	return err == nil
}

// GetLatestCompletedPhase scans phases in reverse declared order and
// returns the first completed one.
func (m *Manager) GetLatestCompletedPhase() (phaseid.ID, bool) {
	for i := len(phaseid.All) - 1; i >= 0; i-- {
		if m.PhaseCompleted(phaseid.All[i]) {
			return phaseid.All[i], true
		}
	}
	return phaseid.NoneCompleted, false
}

// ListArtifacts returns a validated listing of the artifacts directory,
// sorted by name.
func (m *Manager) ListArtifacts() ([]string, error) {
	dir, err := m.sb.Join("artifacts")
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func normalizeLineEndingsBytes(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '\r' {
			if i+1 < len(b) && b[i+1] == '\n' {
				continue
			}
			out = append(out, '\n')
			continue
		}
		out = append(out, b[i])
	}
	return out
}
