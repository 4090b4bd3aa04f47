package alignment

import (
	"context"
	"fmt"

	"github.com/banshee-data/muonalign/internal/monitoring"
)

// Sink persists named transform and error collections.
type Sink interface {
	WriteAlignments(ctx context.Context, record string, a *Alignments) error
	WriteAlignmentErrors(ctx context.Context, record string, e *AlignmentErrors) error
}

// RecordNames are the four logical records written by Export.
type RecordNames struct {
	DTAlignments       string
	DTAlignmentErrors  string
	CSCAlignments      string
	CSCAlignmentErrors string
}

// DefaultRecordNames returns the conventional record names.
func DefaultRecordNames() RecordNames {
	return RecordNames{
		DTAlignments:       "DTAlignments",
		DTAlignmentErrors:  "DTAlignmentErrors",
		CSCAlignments:      "CSCAlignments",
		CSCAlignmentErrors: "CSCAlignmentErrors",
	}
}

// Records are the four collections Export writes together.
type Records struct {
	DTAlignments       *Alignments
	DTAlignmentErrors  *AlignmentErrors
	CSCAlignments      *Alignments
	CSCAlignmentErrors *AlignmentErrors
}

// BatchSink is a Sink that writes all four records in one unit: either
// every record is stored or none is.
type BatchSink interface {
	Sink
	WriteRecords(ctx context.Context, names RecordNames, r Records) error
}

// WriteRecords writes r through sink. A BatchSink stores the records
// atomically; any other sink gets DT alignments, DT errors, CSC
// alignments and CSC errors in that order, and a failure leaves the
// earlier records written.
func WriteRecords(ctx context.Context, sink Sink, names RecordNames, r Records) error {
	if b, ok := sink.(BatchSink); ok {
		return b.WriteRecords(ctx, names, r)
	}
	if err := sink.WriteAlignments(ctx, names.DTAlignments, r.DTAlignments); err != nil {
		return fmt.Errorf("write %s: %w", names.DTAlignments, err)
	}
	if err := sink.WriteAlignmentErrors(ctx, names.DTAlignmentErrors, r.DTAlignmentErrors); err != nil {
		return fmt.Errorf("write %s: %w", names.DTAlignmentErrors, err)
	}
	if err := sink.WriteAlignments(ctx, names.CSCAlignments, r.CSCAlignments); err != nil {
		return fmt.Errorf("write %s: %w", names.CSCAlignments, err)
	}
	if err := sink.WriteAlignmentErrors(ctx, names.CSCAlignmentErrors, r.CSCAlignmentErrors); err != nil {
		return fmt.Errorf("write %s: %w", names.CSCAlignmentErrors, err)
	}
	return nil
}

// Export collects the DT and CSC records of m and writes them with
// WriteRecords.
func Export(ctx context.Context, m *Muon, sink Sink, names RecordNames) error {
	var (
		r   Records
		err error
	)
	if r.DTAlignments, err = m.DTAlignments(); err != nil {
		return err
	}
	if r.DTAlignmentErrors, err = m.DTAlignmentErrors(); err != nil {
		return err
	}
	if r.CSCAlignments, err = m.CSCAlignments(); err != nil {
		return err
	}
	if r.CSCAlignmentErrors, err = m.CSCAlignmentErrors(); err != nil {
		return err
	}
	if err := WriteRecords(ctx, sink, names, r); err != nil {
		return err
	}

	monitoring.Opsf("Exported %d DT and %d CSC alignments", len(r.DTAlignments.Transforms), len(r.CSCAlignments.Transforms))
	return nil
}
