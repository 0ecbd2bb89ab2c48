package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

type TrackingRepository struct {
	db *sql.DB
}

func NewTrackingRepository(db *sql.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

// Create allocates a tracking record for a (campaign, recipient) pair.
// The generated ID is the tracking identifier embedded into the message.
func (r *TrackingRepository) Create(t *models.TrackingRecord) error {
	t.ID = uuid.New().String()
	if t.Status == "" {
		t.Status = models.TrackingStatusPending
	}
	t.CreatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO campaign_recipients (id, campaign_id, lead_id, email, rendered_subject, status, opens, clicks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		t.ID, t.CampaignID, t.LeadID, t.Email, t.RenderedSubject, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tracking record: %w", err)
	}
	return nil
}

// GetByID returns a tracking record by its tracking identifier
func (r *TrackingRepository) GetByID(id string) (*models.TrackingRecord, error) {
	t := &models.TrackingRecord{}
	err := r.db.QueryRow(`
		SELECT id, campaign_id, lead_id, email, rendered_subject, status, COALESCE(error, ''), opens, clicks, sent_at, created_at
		FROM campaign_recipients WHERE id = ?`, id,
	).Scan(&t.ID, &t.CampaignID, &t.LeadID, &t.Email, &t.RenderedSubject, &t.Status, &t.Error, &t.Opens, &t.Clicks, &t.SentAt, &t.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListByCampaign returns all tracking records for a campaign
func (r *TrackingRepository) ListByCampaign(campaignID string) ([]models.TrackingRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, campaign_id, lead_id, email, rendered_subject, status, COALESCE(error, ''), opens, clicks, sent_at, created_at
		FROM campaign_recipients WHERE campaign_id = ?
		ORDER BY created_at`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.TrackingRecord{}
	for rows.Next() {
		var t models.TrackingRecord
		err := rows.Scan(&t.ID, &t.CampaignID, &t.LeadID, &t.Email, &t.RenderedSubject, &t.Status, &t.Error, &t.Opens, &t.Clicks, &t.SentAt, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, t)
	}

	return records, rows.Err()
}

// MarkSent records a successful transmission
func (r *TrackingRepository) MarkSent(id string) error {
	_, err := r.db.Exec(`
		UPDATE campaign_recipients SET status = ?, sent_at = ? WHERE id = ?`,
		models.TrackingStatusSent, time.Now(), id)
	return err
}

// MarkFailed records a failed transmission with the transport error
func (r *TrackingRepository) MarkFailed(id, errMsg string) error {
	_, err := r.db.Exec(`
		UPDATE campaign_recipients SET status = ?, error = ? WHERE id = ?`,
		models.TrackingStatusFailed, errMsg, id)
	return err
}

// SentLeadIDs returns the lead IDs a campaign has already sent to. The
// batch dispatcher uses this to avoid re-sending across days.
func (r *TrackingRepository) SentLeadIDs(campaignID string) (map[string]bool, error) {
	rows, err := r.db.Query(`
		SELECT lead_id FROM campaign_recipients WHERE campaign_id = ?`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}

	return ids, rows.Err()
}

// CountSentSince counts sends for a campaign since a cutoff, used to
// enforce the batch mode per-day cap.
func (r *TrackingRepository) CountSentSince(campaignID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM campaign_recipients
		WHERE campaign_id = ? AND created_at >= ?`, campaignID, since).Scan(&n)
	return n, err
}

// RecordOpen increments the open counter for a tracking record.
// The increment is applied in SQL so concurrent pings cannot clobber
// each other.
func (r *TrackingRepository) RecordOpen(id string) (bool, error) {
	res, err := r.db.Exec("UPDATE campaign_recipients SET opens = opens + 1 WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RecordClick increments the click counter for a tracking record
func (r *TrackingRepository) RecordClick(id string) (bool, error) {
	res, err := r.db.Exec("UPDATE campaign_recipients SET clicks = clicks + 1 WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
