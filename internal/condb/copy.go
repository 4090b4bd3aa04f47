package condb

import (
	"context"
	"fmt"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/monitoring"
)

// CopyRecords copies the latest payloads of the four named records under
// tag from one store into another. Nothing is written unless all four
// records are found, and a Store destination receives them in one
// transaction.
func CopyRecords(ctx context.Context, from *Store, to alignment.Sink, names alignment.RecordNames, tag string) error {
	var (
		r   alignment.Records
		err error
	)
	if r.DTAlignments, err = from.ReadAlignments(ctx, names.DTAlignments, tag); err != nil {
		return err
	}
	if r.DTAlignmentErrors, err = from.ReadAlignmentErrors(ctx, names.DTAlignmentErrors, tag); err != nil {
		return err
	}
	if r.CSCAlignments, err = from.ReadAlignments(ctx, names.CSCAlignments, tag); err != nil {
		return err
	}
	if r.CSCAlignmentErrors, err = from.ReadAlignmentErrors(ctx, names.CSCAlignmentErrors, tag); err != nil {
		return err
	}

	if err := alignment.WriteRecords(ctx, to, names, r); err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	monitoring.Opsf("Copied %d DT and %d CSC alignments (tag %s)", len(r.DTAlignments.Transforms), len(r.CSCAlignments.Transforms), tag)
	return nil
}

// LoadInto reads the latest four records under tag and applies them to m.
func LoadInto(ctx context.Context, s *Store, m *alignment.Muon, names alignment.RecordNames, tag string) error {
	var (
		all  alignment.Alignments
		errs alignment.AlignmentErrors
	)
	for _, rec := range []string{names.DTAlignments, names.CSCAlignments} {
		a, err := s.ReadAlignments(ctx, rec, tag)
		if err != nil {
			return err
		}
		all.Transforms = append(all.Transforms, a.Transforms...)
	}
	for _, rec := range []string{names.DTAlignmentErrors, names.CSCAlignmentErrors} {
		e, err := s.ReadAlignmentErrors(ctx, rec, tag)
		if err != nil {
			return err
		}
		errs.Errors = append(errs.Errors, e.Errors...)
	}
	return m.ApplyAlignments(&all, &errs)
}
