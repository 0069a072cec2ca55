package packet

import "fmt"

// Budgets bounds a packet by total bytes and total lines.
type Budgets struct {
	ByteLimit int
	LineLimit int
}

// DefaultBudgets matches spec §4.7's defaults: 65,536 bytes / 1,200 lines.
var DefaultBudgets = Budgets{ByteLimit: 65536, LineLimit: 1200}

// SelectedFile is one admitted file, recorded for packet evidence.
type SelectedFile struct {
	Path          string
	LineCount     int
	HashPreRedact string
	Priority      Priority
}

// Evidence is the audit trail attached to a receipt: which files were
// admitted, their pre-redaction hashes and priority, and the budgets in
// force at construction time.
type Evidence struct {
	Files      []SelectedFile
	ByteBudget int
	LineBudget int
}

// Packet is the bounded, evidence-bearing context handed to a backend.
type Packet struct {
	Content         string
	HashOfContent   string
	Evidence        Evidence
	BudgetUsedBytes int
	BudgetUsedLines int
}

// Overflow reports that a candidate could not be admitted even after
// every eviction attempt was exhausted, and no lower-priority victim
// remained — spec §4.7's "never silently truncate an upstream" case.
type Overflow struct {
	UsedBytes  int
	LimitBytes int
	UsedLines  int
	LimitLines int
}

func (e *Overflow) Error() string {
	return fmt.Sprintf(
		"packet: overflow (bytes %d/%d, lines %d/%d)",
		e.UsedBytes, e.LimitBytes, e.UsedLines, e.LimitLines,
	)
}

// candidate is a discovered file plus its raw content, pending
// admission. discoveryIndex preserves walk order for the LIFO
// tie-break within a priority class.
type candidate struct {
	path          string
	raw           []byte
	lineCount     int
	priority      Priority
	discoveryIndex int
}
