// Package condb is the SQLite conditions store for alignment records.
//
// Every write creates a new payload, identified by a UUID and stamped
// with an interval-of-validity start taken from the store's clock. Reads
// return the latest payload of a record under a tag.
package condb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/geometry"
	"github.com/banshee-data/muonalign/internal/monitoring"
	"github.com/banshee-data/muonalign/internal/timeutil"
)

// ErrRecordNotFound is returned when no payload matches a record and tag.
var ErrRecordNotFound = errors.New("record not found")

// Payload kinds.
const (
	KindAlignments = "alignments"
	KindErrors     = "errors"
)

var _ alignment.BatchSink = (*Store)(nil)

// Store is a conditions database.
type Store struct {
	*sql.DB
	tag   string
	clock timeutil.Clock
}

// Open opens (creating if needed) the database at path. Writes are tagged
// with tag. The schema is not migrated; call MigrateUp.
func Open(path, tag string, clock timeutil.Clock) (*Store, error) {
	if tag == "" {
		return nil, fmt.Errorf("empty tag")
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Store{DB: db, tag: tag, clock: clock}, nil
}

// Tag is the tag new payloads are written under.
func (s *Store) Tag() string { return s.tag }

// WithTag returns a store sharing the connection but writing under tag.
func (s *Store) WithTag(tag string) *Store {
	return &Store{DB: s.DB, tag: tag, clock: s.clock}
}

// Payload describes one stored payload.
type Payload struct {
	ID      uuid.UUID
	Record  string
	Tag     string
	Kind    string
	Since   time.Time
	Created time.Time
	Entries int
}

func (s *Store) insertPayload(ctx context.Context, tx *sql.Tx, record, kind string) (uuid.UUID, error) {
	id := uuid.New()
	now := s.clock.Now()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payloads (payload_id, record, tag, kind, since, created) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), record, s.tag, kind, now.UnixNano(), now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert payload: %w", err)
	}
	return id, nil
}

// WriteAlignments stores a as a new payload of record.
func (s *Store) WriteAlignments(ctx context.Context, record string, a *alignment.Alignments) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.writeAlignments(ctx, tx, record, a)
	})
}

// WriteAlignmentErrors stores e as a new payload of record.
func (s *Store) WriteAlignmentErrors(ctx context.Context, record string, e *alignment.AlignmentErrors) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.writeAlignmentErrors(ctx, tx, record, e)
	})
}

// WriteRecords stores the four records in one transaction, so a failure
// on any of them leaves none behind.
func (s *Store) WriteRecords(ctx context.Context, names alignment.RecordNames, r alignment.Records) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.writeAlignments(ctx, tx, names.DTAlignments, r.DTAlignments); err != nil {
			return fmt.Errorf("write %s: %w", names.DTAlignments, err)
		}
		if err := s.writeAlignmentErrors(ctx, tx, names.DTAlignmentErrors, r.DTAlignmentErrors); err != nil {
			return fmt.Errorf("write %s: %w", names.DTAlignmentErrors, err)
		}
		if err := s.writeAlignments(ctx, tx, names.CSCAlignments, r.CSCAlignments); err != nil {
			return fmt.Errorf("write %s: %w", names.CSCAlignments, err)
		}
		if err := s.writeAlignmentErrors(ctx, tx, names.CSCAlignmentErrors, r.CSCAlignmentErrors); err != nil {
			return fmt.Errorf("write %s: %w", names.CSCAlignmentErrors, err)
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) writeAlignments(ctx context.Context, tx *sql.Tx, record string, a *alignment.Alignments) error {
	if a == nil {
		return fmt.Errorf("nil alignments for %s", record)
	}
	id, err := s.insertPayload(ctx, tx, record, KindAlignments)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO align_transforms
		(payload_id, position, det_id, x, y, z, r0, r1, r2, r3, r4, r5, r6, r7, r8)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, tr := range a.Transforms {
		r := tr.Rotation
		if _, err := stmt.ExecContext(ctx, id.String(), i, int64(tr.DetID),
			tr.Translation.X, tr.Translation.Y, tr.Translation.Z,
			r[0], r[1], r[2], r[3], r[4], r[5], r[6], r[7], r[8]); err != nil {
			return fmt.Errorf("insert transform %d: %w", i, err)
		}
	}
	monitoring.Diagf("wrote %s/%s payload %s with %d transforms", record, s.tag, id, len(a.Transforms))
	return nil
}

func (s *Store) writeAlignmentErrors(ctx context.Context, tx *sql.Tx, record string, e *alignment.AlignmentErrors) error {
	if e == nil {
		return fmt.Errorf("nil alignment errors for %s", record)
	}
	id, err := s.insertPayload(ctx, tx, record, KindErrors)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO align_errors
		(payload_id, position, det_id, xx, xy, xz, yy, yz, zz)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, te := range e.Errors {
		m := te.Matrix
		if _, err := stmt.ExecContext(ctx, id.String(), i, int64(te.DetID),
			m[0], m[1], m[2], m[3], m[4], m[5]); err != nil {
			return fmt.Errorf("insert error %d: %w", i, err)
		}
	}
	monitoring.Diagf("wrote %s/%s payload %s with %d errors", record, s.tag, id, len(e.Errors))
	return nil
}

func (s *Store) latestPayload(ctx context.Context, record, tag, kind string) (string, error) {
	var id string
	err := s.QueryRowContext(ctx,
		`SELECT payload_id FROM payloads
		 WHERE record = ? AND tag = ? AND kind = ?
		 ORDER BY since DESC, rowid DESC LIMIT 1`,
		record, tag, kind,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s/%s: %w", record, tag, ErrRecordNotFound)
	}
	return id, err
}

// ReadAlignments returns the latest alignments payload of record under tag.
func (s *Store) ReadAlignments(ctx context.Context, record, tag string) (*alignment.Alignments, error) {
	id, err := s.latestPayload(ctx, record, tag, KindAlignments)
	if err != nil {
		return nil, err
	}
	rows, err := s.QueryContext(ctx,
		`SELECT det_id, x, y, z, r0, r1, r2, r3, r4, r5, r6, r7, r8
		 FROM align_transforms WHERE payload_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &alignment.Alignments{}
	for rows.Next() {
		var (
			detID int64
			tr    alignment.AlignTransform
			r     = &tr.Rotation
		)
		if err := rows.Scan(&detID, &tr.Translation.X, &tr.Translation.Y, &tr.Translation.Z,
			&r[0], &r[1], &r[2], &r[3], &r[4], &r[5], &r[6], &r[7], &r[8]); err != nil {
			return nil, err
		}
		tr.DetID = geometry.DetID(detID)
		out.Transforms = append(out.Transforms, tr)
	}
	return out, rows.Err()
}

// ReadAlignmentErrors returns the latest errors payload of record under tag.
func (s *Store) ReadAlignmentErrors(ctx context.Context, record, tag string) (*alignment.AlignmentErrors, error) {
	id, err := s.latestPayload(ctx, record, tag, KindErrors)
	if err != nil {
		return nil, err
	}
	rows, err := s.QueryContext(ctx,
		`SELECT det_id, xx, xy, xz, yy, yz, zz
		 FROM align_errors WHERE payload_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &alignment.AlignmentErrors{}
	for rows.Next() {
		var (
			detID int64
			te    alignment.AlignTransformError
			m     = &te.Matrix
		)
		if err := rows.Scan(&detID, &m[0], &m[1], &m[2], &m[3], &m[4], &m[5]); err != nil {
			return nil, err
		}
		te.DetID = geometry.DetID(detID)
		out.Errors = append(out.Errors, te)
	}
	return out, rows.Err()
}

// ListPayloads lists stored payloads, oldest first. An empty tag lists
// every tag.
func (s *Store) ListPayloads(ctx context.Context, tag string) ([]Payload, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT p.payload_id, p.record, p.tag, p.kind, p.since, p.created,
		       CASE p.kind
		         WHEN 'alignments' THEN (SELECT COUNT(*) FROM align_transforms t WHERE t.payload_id = p.payload_id)
		         ELSE (SELECT COUNT(*) FROM align_errors e WHERE e.payload_id = p.payload_id)
		       END
		FROM payloads p
		WHERE ? = '' OR p.tag = ?
		ORDER BY p.since, p.rowid`, tag, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payload
	for rows.Next() {
		var (
			p       Payload
			id      string
			since   int64
			created string
		)
		if err := rows.Scan(&id, &p.Record, &p.Tag, &p.Kind, &since, &created, &p.Entries); err != nil {
			return nil, err
		}
		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("payload %q: %w", id, err)
		}
		p.Since = time.Unix(0, since).UTC()
		if p.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("payload %s created: %w", id, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
