// ABOUTME: CRUD operations for the dev document store
// ABOUTME: Stores analysis and proposal records as JSON documents scoped by user id
package remotestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/presencehq/radar/remote"
)

// NewRecordID generates a server-assigned id for an inserted analysis.
func NewRecordID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// InsertAnalysis stores a new analysis record, assigning a server id, and
// returns the record as stored.
func InsertAnalysis(db *sql.DB, rec remote.AnalysisRecord) (remote.AnalysisRecord, error) {
	if rec.ID == "" {
		rec.ID = NewRecordID()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return remote.AnalysisRecord{}, fmt.Errorf("failed to marshal analysis: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO analyses (id, user_id, company_name, analysis_date, payload)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.CompanyName, rec.AnalysisDate, string(payload))
	if err != nil {
		return remote.AnalysisRecord{}, fmt.Errorf("failed to insert analysis: %w", err)
	}

	return rec, nil
}

// ListAnalyses returns all analysis records for a user, newest first.
func ListAnalyses(db *sql.DB, userID string) ([]remote.AnalysisRecord, error) {
	rows, err := db.Query(`
		SELECT payload FROM analyses
		WHERE user_id = ?
		ORDER BY analysis_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []remote.AnalysisRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		var rec remote.AnalysisRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode analysis payload: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}
	return records, nil
}

// UpdateAnalysisName patches the display name of a record. Returns false
// when no record matches.
func UpdateAnalysisName(db *sql.DB, id, userID, companyName string) (bool, error) {
	var payload string
	err := db.QueryRow(`
		SELECT payload FROM analyses WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load analysis: %w", err)
	}

	var rec remote.AnalysisRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return false, fmt.Errorf("failed to decode analysis payload: %w", err)
	}
	rec.CompanyName = companyName
	updated, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal analysis: %w", err)
	}

	_, err = db.Exec(`
		UPDATE analyses SET company_name = ?, payload = ? WHERE id = ? AND user_id = ?
	`, companyName, string(updated), id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to update analysis: %w", err)
	}
	return true, nil
}

// DeleteAnalysis removes a record by id. Returns false when no record
// matched.
func DeleteAnalysis(db *sql.DB, id, userID string) (bool, error) {
	res, err := db.Exec(`DELETE FROM analyses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return n > 0, nil
}

// UpsertProposal inserts or replaces a proposal document keyed by its
// client-assigned id.
func UpsertProposal(db *sql.DB, rec remote.ProposalRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal proposal: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO proposals (id, user_id, payload, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`, rec.ID, rec.UserID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to upsert proposal: %w", err)
	}
	return nil
}

// ListProposals returns all proposal records for a user.
func ListProposals(db *sql.DB, userID string) ([]remote.ProposalRecord, error) {
	rows, err := db.Query(`
		SELECT payload FROM proposals WHERE user_id = ? ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []remote.ProposalRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		var rec remote.ProposalRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode proposal payload: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proposals: %w", err)
	}
	return records, nil
}

// DeleteProposal removes a proposal by id. Returns false when no record
// matched.
func DeleteProposal(db *sql.DB, id, userID string) (bool, error) {
	res, err := db.Exec(`DELETE FROM proposals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete proposal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return n > 0, nil
}
