// Package importer reads planned stages from CSV and merges them into a
// snapshot.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"plantpulse/internal/domain"
)

// Header is the required first CSV line.
var Header = []string{"id", "equipment_id", "batch_chain_id", "stage_type", "start", "end", "state"}

// LocalLayout is accepted besides RFC 3339 and is read in facility time.
const LocalLayout = "2006-01-02 15:04"

var namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("plantpulse.stage"))

// StageID derives a stable id for a stage row without one.
func StageID(equipmentID, chainID string, start, end time.Time) string {
	key := equipmentID + "|" + chainID + "|" + start.UTC().Format(time.RFC3339) + "|" + end.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

// LoadFile reads stages from a CSV file.
func LoadFile(path string, loc *time.Location) ([]domain.Stage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stages file %s: %w", path, err)
	}
	defer f.Close()
	return ReadStages(f, loc)
}

// ReadStages parses stage rows. Errors name the 1-based CSV line.
func ReadStages(r io.Reader, loc *time.Location) ([]domain.Stage, error) {
	if loc == nil {
		loc = time.Local
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read stages CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("stages CSV must have header and at least one data row")
	}
	if !validateHeader(records[0], Header) {
		return nil, fmt.Errorf("stages CSV header mismatch. Expected: %v, Got: %v", Header, records[0])
	}

	var out []domain.Stage
	for i, record := range records[1:] {
		if len(record) != len(Header) {
			return nil, fmt.Errorf("stages CSV row %d: expected %d columns, got %d", i+2, len(Header), len(record))
		}
		st, err := parseStage(record, loc)
		if err != nil {
			return nil, fmt.Errorf("stages CSV row %d: %w", i+2, err)
		}
		out = append(out, st)
	}
	return out, nil
}

func parseStage(record []string, loc *time.Location) (domain.Stage, error) {
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	st := domain.Stage{
		ID:           record[0],
		EquipmentID:  record[1],
		BatchChainID: record[2],
		StageType:    record[3],
	}
	if st.EquipmentID == "" {
		return st, fmt.Errorf("equipment_id is required")
	}
	if st.BatchChainID == "" {
		return st, fmt.Errorf("batch_chain_id is required")
	}
	var err error
	if st.Start, err = parseTime(record[4], loc); err != nil {
		return st, fmt.Errorf("invalid start: %w", err)
	}
	if st.End, err = parseTime(record[5], loc); err != nil {
		return st, fmt.Errorf("invalid end: %w", err)
	}
	if st.End.Before(st.Start) {
		return st, fmt.Errorf("end %s is before start %s", record[5], record[4])
	}
	switch state := domain.StageState(strings.ToLower(record[6])); state {
	case "":
		st.State = domain.StagePlanned
	case domain.StagePlanned, domain.StageActive, domain.StageCompleted:
		st.State = state
	default:
		return st, fmt.Errorf("invalid state %q", record[6])
	}
	if st.ID == "" {
		st.ID = StageID(st.EquipmentID, st.BatchChainID, st.Start, st.End)
	}
	return st, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(LocalLayout, s, loc)
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.TrimSpace(strings.TrimPrefix(actual[i], "\ufeff")) != col {
			return false
		}
	}
	return true
}

// WriteStages writes stages in the import format.
func WriteStages(w io.Writer, stages []domain.Stage) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, st := range stages {
		if err := cw.Write([]string{
			st.ID,
			st.EquipmentID,
			st.BatchChainID,
			st.StageType,
			st.Start.Format(time.RFC3339),
			st.End.Format(time.RFC3339),
			string(st.State),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// MergeResult counts what Merge changed.
type MergeResult struct {
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Chains  []string `json:"created_chains,omitempty"`
}

// Merge upserts stages into snap by id, keeping existing order and
// appending new stages. Chains referenced but missing are created as drafts.
func Merge(snap *domain.Snapshot, stages []domain.Stage) MergeResult {
	var res MergeResult
	index := make(map[string]int, len(snap.Stages))
	for i, st := range snap.Stages {
		index[st.ID] = i
	}
	chains := make(map[string]bool, len(snap.BatchChains))
	for _, c := range snap.BatchChains {
		chains[c.ID] = true
	}
	for _, st := range stages {
		if i, ok := index[st.ID]; ok {
			snap.Stages[i] = st
			res.Updated++
		} else {
			index[st.ID] = len(snap.Stages)
			snap.Stages = append(snap.Stages, st)
			res.Added++
		}
		if !chains[st.BatchChainID] {
			chains[st.BatchChainID] = true
			snap.BatchChains = append(snap.BatchChains, domain.BatchChain{
				ID:           st.BatchChainID,
				BatchName:    st.BatchChainID,
				SeriesNumber: seriesOf(st.BatchChainID),
				Status:       domain.BatchDraft,
			})
			res.Chains = append(res.Chains, st.BatchChainID)
		}
	}
	return res
}

// seriesOf reads the trailing number of ids like "KK-42".
func seriesOf(id string) int {
	n, mul := 0, 1
	for i := len(id) - 1; i >= 0 && id[i] >= '0' && id[i] <= '9'; i-- {
		n += int(id[i]-'0') * mul
		mul *= 10
	}
	return n
}
