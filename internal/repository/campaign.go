package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, name, subject, body_html, body_text, purpose, audience, mode,
	scheduled_at, daily_limit, status, recipients, sent, failed, opens, clicks, archived,
	started_at, completed_at, created_at, updated_at`

// Create creates a new campaign
func (r *CampaignRepository) Create(c *models.Campaign) error {
	c.ID = uuid.New().String()
	if c.Purpose == "" {
		c.Purpose = models.PurposeMarketing
	}
	if c.Mode == "" {
		c.Mode = models.ModeNow
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusDraft
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Subject, c.BodyHTML, c.BodyText, c.Purpose, c.Audience, c.Mode,
		c.ScheduledAt, c.DailyLimit, c.Status, c.Recipients, c.Sent, c.Failed, c.Opens, c.Clicks, c.Archived,
		c.StartedAt, c.CompletedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func scanCampaign(row interface{ Scan(...any) error }) (*models.Campaign, error) {
	c := &models.Campaign{}
	err := row.Scan(&c.ID, &c.Name, &c.Subject, &c.BodyHTML, &c.BodyText, &c.Purpose, &c.Audience, &c.Mode,
		&c.ScheduledAt, &c.DailyLimit, &c.Status, &c.Recipients, &c.Sent, &c.Failed, &c.Opens, &c.Clicks, &c.Archived,
		&c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByID returns a campaign by ID
func (r *CampaignRepository) GetByID(id string) (*models.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRow(`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns campaigns with optional filtering
func (r *CampaignRepository) List(filter models.CampaignFilter) ([]models.Campaign, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Archived != nil {
		where += " AND archived = ?"
		args = append(args, *filter.Archived)
	}
	if filter.Search != "" {
		where += " AND (name LIKE ? OR subject LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM campaigns"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, *c)
	}

	return campaigns, total, rows.Err()
}

// ListDue returns scheduled campaigns whose scheduled_at has passed, plus
// batch campaigns still in sending state, for the dispatcher to pick up.
func (r *CampaignRepository) ListDue(now time.Time) ([]models.Campaign, error) {
	rows, err := r.db.Query(`
		SELECT `+campaignColumns+` FROM campaigns
		WHERE (status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?)
		   OR (status = ? AND mode = ?)
		ORDER BY scheduled_at`,
		models.CampaignStatusScheduled, now, models.CampaignStatusSending, models.ModeBatch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}

	return campaigns, rows.Err()
}

// UpdateStatus changes a campaign's status, stamping started/completed times
func (r *CampaignRepository) UpdateStatus(id, status string) error {
	now := time.Now()
	query := "UPDATE campaigns SET status = ?, updated_at = ?"
	args := []any{status, now}

	switch status {
	case models.CampaignStatusSending:
		query += ", started_at = COALESCE(started_at, ?)"
		args = append(args, now)
	case models.CampaignStatusSent, models.CampaignStatusFailed:
		query += ", completed_at = ?"
		args = append(args, now)
	}

	query += " WHERE id = ?"
	args = append(args, id)

	_, err := r.db.Exec(query, args...)
	return err
}

// AddTotals accumulates delivery results into the campaign counters
func (r *CampaignRepository) AddTotals(id string, recipients, sent, failed int) error {
	_, err := r.db.Exec(`
		UPDATE campaigns SET recipients = recipients + ?, sent = sent + ?, failed = failed + ?, updated_at = ?
		WHERE id = ?`,
		recipients, sent, failed, time.Now(), id,
	)
	return err
}

// SetArchived toggles the archived flag
func (r *CampaignRepository) SetArchived(id string, archived bool) error {
	_, err := r.db.Exec("UPDATE campaigns SET archived = ?, updated_at = ? WHERE id = ?",
		archived, time.Now(), id)
	return err
}

// IncrementOpens bumps the aggregate open counter
func (r *CampaignRepository) IncrementOpens(id string) error {
	_, err := r.db.Exec("UPDATE campaigns SET opens = opens + 1 WHERE id = ?", id)
	return err
}

// IncrementClicks bumps the aggregate click counter
func (r *CampaignRepository) IncrementClicks(id string) error {
	_, err := r.db.Exec("UPDATE campaigns SET clicks = clicks + 1 WHERE id = ?", id)
	return err
}

// Delete deletes a campaign and its tracking records
func (r *CampaignRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM campaigns WHERE id = ?", id)
	return err
}
