// Package sqlite exports annotation runs to SQLite database files
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/fragannot/pkg/annotate"
	"github.com/ChrisMcGann/fragannot/pkg/core"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	// Timestamp format for RunTable
	runTimeFormat = time.RFC3339

	schemaVersion = 1
)

// Writer handles writing annotation results to SQLite database files. All
// rows of a run are written in a single transaction committed by Finalize;
// closing a Writer that was not finalized discards the run.
type Writer struct {
	db         *sql.DB
	tx         *sql.Tx
	outputPath string
	runID      uuid.UUID

	spectrumStmt *sql.Stmt
	psmStmt      *sql.Stmt
	matchStmt    *sql.Stmt

	spectrumIDs map[string]int64
	psmCount    int64
	matchCount  int64
	closed      bool
}

// NewWriter creates the output database and records a new run with the
// given annotation parameters.
func NewWriter(outputPath string, cfg annotate.Config) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:          db,
		outputPath:  outputPath,
		runID:       uuid.New(),
		spectrumIDs: make(map[string]int64),
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	w.tx, err = db.Begin()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := w.insertRun(cfg); err != nil {
		w.tx.Rollback()
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		w.tx.Rollback()
		db.Close()
		return nil, err
	}

	return w, nil
}

// RunID returns the identifier of the run being written.
func (w *Writer) RunID() uuid.UUID {
	return w.runID
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS RunTable (
		RunId TEXT PRIMARY KEY,
		CreationDate TEXT,
		Tolerance DOUBLE,
		ToleranceUnit TEXT,
		NTermTypes TEXT,
		CTermTypes TEXT,
		Charges TEXT,
		Losses TEXT,
		Deisotope BOOL,
		Internal BOOL,
		Parameters TEXT,
		PSMCount INTEGER,
		MatchCount INTEGER
	);

	CREATE TABLE IF NOT EXISTS SpectrumTable (
		SpectrumId INTEGER PRIMARY KEY,
		RunId TEXT REFERENCES RunTable(RunId),
		SpectrumRef TEXT,
		SourceFile TEXT,
		PrecursorMass DOUBLE,
		Charge INTEGER,
		RetentionTime DOUBLE,
		CollisionEnergy DOUBLE,
		PeakCount INTEGER,
		blobMass BLOB,
		blobIntensity BLOB
	);

	CREATE TABLE IF NOT EXISTS PSMTable (
		PSMId INTEGER PRIMARY KEY,
		RunId TEXT REFERENCES RunTable(RunId),
		SpectrumId INTEGER REFERENCES SpectrumTable(SpectrumId),
		PSMRef TEXT,
		Sequence TEXT,
		Peptidoform TEXT,
		Charge INTEGER,
		NeutralMass DOUBLE,
		MatchedPeaks INTEGER,
		ExplainedIntensity DOUBLE
	);

	CREATE TABLE IF NOT EXISTS MatchTable (
		MatchId INTEGER PRIMARY KEY AUTOINCREMENT,
		PSMId INTEGER REFERENCES PSMTable(PSMId),
		PeakIndex INTEGER,
		ObservedMZ DOUBLE,
		Intensity DOUBLE,
		Label TEXT,
		IonType TEXT,
		Kind TEXT,
		StartPos INTEGER,
		EndPos INTEGER,
		NCap TEXT,
		CCap TEXT,
		FragmentCharge INTEGER,
		Loss TEXT,
		FragmentSequence TEXT,
		TheoreticalMZ DOUBLE,
		Error DOUBLE,
		PPMError DOUBLE
	);

	CREATE INDEX IF NOT EXISTS MatchByPSM ON MatchTable(PSMId);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		LastModifiedDate TEXT,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

func (w *Writer) insertRun(cfg annotate.Config) error {
	params, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	charges := make([]string, len(cfg.Charges))
	for i, z := range cfg.Charges {
		charges[i] = fmt.Sprint(z)
	}

	_, err = w.tx.Exec(`
		INSERT INTO RunTable (
			RunId, CreationDate, Tolerance, ToleranceUnit, NTermTypes, CTermTypes,
			Charges, Losses, Deisotope, Internal, Parameters, PSMCount, MatchCount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)
	`,
		w.runID.String(),
		time.Now().Format(runTimeFormat),
		cfg.Tolerance,
		cfg.ToleranceUnit,
		strings.Join(cfg.NTermTypes, ","),
		strings.Join(cfg.CTermTypes, ","),
		strings.Join(charges, ","), // empty = up to precursor charge
		strings.Join(cfg.Losses, ","),
		cfg.Deisotope,
		cfg.Internal,
		string(params),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.spectrumStmt, err = w.tx.Prepare(`
		INSERT INTO SpectrumTable (
			RunId, SpectrumRef, SourceFile, PrecursorMass, Charge,
			RetentionTime, CollisionEnergy, PeakCount, blobMass, blobIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare spectrum statement: %w", err)
	}

	w.psmStmt, err = w.tx.Prepare(`
		INSERT INTO PSMTable (
			RunId, SpectrumId, PSMRef, Sequence, Peptidoform, Charge,
			NeutralMass, MatchedPeaks, ExplainedIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare psm statement: %w", err)
	}

	w.matchStmt, err = w.tx.Prepare(`
		INSERT INTO MatchTable (
			PSMId, PeakIndex, ObservedMZ, Intensity, Label, IonType, Kind,
			StartPos, EndPos, NCap, CCap, FragmentCharge, Loss, FragmentSequence,
			TheoreticalMZ, Error, PPMError
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare match statement: %w", err)
	}

	return nil
}

// spectrumRow returns the row id of spec, inserting it on first use.
func (w *Writer) spectrumRow(spec *core.Spectrum) (int64, error) {
	if id, ok := w.spectrumIDs[spec.ID]; ok {
		return id, nil
	}

	var rt, ce interface{}
	if spec.RetentionTime != nil {
		rt = *spec.RetentionTime
	}
	if spec.CollisionEnergy != nil {
		ce = *spec.CollisionEnergy
	}

	res, err := w.spectrumStmt.Exec(
		w.runID.String(),
		spec.ID,
		spec.SourceFile,
		spec.PrecursorMZ,
		spec.Charge,
		rt,
		ce,
		len(spec.Peaks),
		encodePeaksFloat64(spec.Peaks, true),
		encodePeaksFloat64(spec.Peaks, false),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert spectrum: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read spectrum id: %w", err)
	}
	w.spectrumIDs[spec.ID] = id
	return id, nil
}

// WriteResult writes one annotated PSM, its spectrum (once per spectrum) and
// every match of every annotated peak.
func (w *Writer) WriteResult(psm *core.PSM, spec *core.Spectrum, res *annotate.Result) error {
	if w.closed {
		return fmt.Errorf("writer for %s is closed", w.outputPath)
	}
	if spec.ID != res.SpectrumID {
		return fmt.Errorf("result %s belongs to spectrum %s, got %s", res.PSMID, res.SpectrumID, spec.ID)
	}

	spectrumID, err := w.spectrumRow(spec)
	if err != nil {
		return err
	}

	var neutralMass float64
	if psm.Peptide != nil {
		neutralMass = psm.Peptide.NeutralMass()
	}

	row, err := w.psmStmt.Exec(
		w.runID.String(),
		spectrumID,
		res.PSMID,
		res.Sequence,
		res.Peptidoform,
		res.Charge,
		neutralMass,
		len(res.Peaks),
		res.ExplainedIntensity(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert psm %s: %w", res.PSMID, err)
	}
	psmID, err := row.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read psm id: %w", err)
	}
	w.psmCount++

	for _, peak := range res.MatchedPeaks() {
		for _, m := range res.Peaks[peak] {
			_, err := w.matchStmt.Exec(
				psmID,
				m.PeakIndex,
				m.ObservedMZ,
				m.Intensity,
				m.Label(),
				m.Fragment.Type(),
				m.Fragment.Kind.String(),
				m.Fragment.Start,
				m.Fragment.End,
				m.Fragment.NCap,
				m.Fragment.CCap,
				m.Charge,
				m.Loss.Name,
				m.Fragment.Sequence,
				m.TheoreticalMZ,
				m.Error,
				m.PPMError,
			)
			if err != nil {
				return fmt.Errorf("failed to insert match for psm %s: %w", res.PSMID, err)
			}
			w.matchCount++
		}
	}

	return nil
}

// Counts returns the number of PSMs and matches written so far.
func (w *Writer) Counts() (psms, matches int64) {
	return w.psmCount, w.matchCount
}

// encodePeaksFloat64 encodes peak data as little-endian float64 blob
func encodePeaksFloat64(peaks []core.Peak, useMZ bool) []byte {
	buf := make([]byte, len(peaks)*8)
	for i, peak := range peaks {
		var value float64
		if useMZ {
			value = peak.MZ
		} else {
			value = peak.Intensity
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

// DecodePeaksFloat64 decodes a blob written by the exporter.
func DecodePeaksFloat64(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(blob))
	}
	values := make([]float64, len(blob)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return values, nil
}

// Finalize writes the run totals and header, commits and closes the database
func (w *Writer) Finalize() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.tx.Exec(`UPDATE RunTable SET PSMCount = ?, MatchCount = ? WHERE RunId = ?`,
		w.psmCount, w.matchCount, w.runID.String())
	if err != nil {
		w.abort()
		return fmt.Errorf("failed to update run: %w", err)
	}

	now := time.Now().Format(headerDateFormat)
	_, err = w.tx.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description)
		VALUES (?, ?, ?, ?)
	`, schemaVersion, now, now, "fragannot run "+w.runID.String())
	if err != nil {
		w.abort()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	w.closeStatements()

	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		return fmt.Errorf("failed to commit: %w", err)
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close rolls back the run unless Finalize has committed it, then closes the
// database. It is safe to defer alongside an explicit Finalize.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.abort()
	return nil
}

func (w *Writer) closeStatements() {
	for _, stmt := range []*sql.Stmt{w.spectrumStmt, w.psmStmt, w.matchStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func (w *Writer) abort() {
	w.closeStatements()
	w.tx.Rollback()
	w.db.Close()
}
