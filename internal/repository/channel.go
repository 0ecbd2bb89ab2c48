package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

type ChannelRepository struct {
	db *sql.DB
}

func NewChannelRepository(db *sql.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

const channelColumns = `id, name, host, port, username, password, security, from_email, from_name,
	reply_to, purposes, is_default, is_active, dkim_selector, dkim_key_file, created_at, updated_at`

// Create creates a new channel
func (r *ChannelRepository) Create(c *models.Channel) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO channels (`+channelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Host, c.Port, c.Username, c.Password, c.Security, c.FromEmail, c.FromName,
		c.ReplyTo, c.Purposes, c.IsDefault, c.IsActive, c.DKIMSelector, c.DKIMKeyFile, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func (r *ChannelRepository) scan(row interface{ Scan(...any) error }) (*models.Channel, error) {
	c := &models.Channel{}
	err := row.Scan(&c.ID, &c.Name, &c.Host, &c.Port, &c.Username, &c.Password, &c.Security,
		&c.FromEmail, &c.FromName, &c.ReplyTo, &c.Purposes, &c.IsDefault, &c.IsActive,
		&c.DKIMSelector, &c.DKIMKeyFile, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByID returns a channel by ID
func (r *ChannelRepository) GetByID(id string) (*models.Channel, error) {
	c, err := r.scan(r.db.QueryRow(`SELECT `+channelColumns+` FROM channels WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns channels, most recently created first. Purposes live in
// a JSON column, so the purpose filter is applied after scanning and
// limit/offset are applied after the filter.
func (r *ChannelRepository) List(filter models.ChannelFilter) ([]models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE 1=1`

	if filter.ActiveOnly {
		query += " AND is_active = 1"
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []models.Channel{}
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		if filter.Purpose != "" && !c.HasPurpose(filter.Purpose) {
			continue
		}
		channels = append(channels, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(channels) {
			return []models.Channel{}, nil
		}
		channels = channels[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(channels) {
		channels = channels[:filter.Limit]
	}

	return channels, nil
}

// ListActive returns all active channels, most recently created first.
// This is the ordering the channel resolver depends on.
func (r *ChannelRepository) ListActive() ([]models.Channel, error) {
	return r.List(models.ChannelFilter{ActiveOnly: true})
}

// Update updates a channel
func (r *ChannelRepository) Update(c *models.Channel) error {
	c.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		UPDATE channels SET name = ?, host = ?, port = ?, username = ?, password = ?, security = ?,
			from_email = ?, from_name = ?, reply_to = ?, purposes = ?, is_default = ?, is_active = ?,
			dkim_selector = ?, dkim_key_file = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Host, c.Port, c.Username, c.Password, c.Security,
		c.FromEmail, c.FromName, c.ReplyTo, c.Purposes, c.IsDefault, c.IsActive,
		c.DKIMSelector, c.DKIMKeyFile, c.UpdatedAt, c.ID,
	)
	return err
}

// Delete deletes a channel
func (r *ChannelRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM channels WHERE id = ?", id)
	return err
}
