package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

type SegmentRepository struct {
	db *sql.DB
}

func NewSegmentRepository(db *sql.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// Create creates a new saved segment
func (r *SegmentRepository) Create(s *models.Segment) error {
	s.ID = uuid.New().String()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO segments (id, name, description, criteria, lead_count, refreshed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Description, s.Criteria, s.LeadCount, s.RefreshedAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create segment: %w", err)
	}
	return nil
}

// GetByID returns a segment by ID
func (r *SegmentRepository) GetByID(id string) (*models.Segment, error) {
	s := &models.Segment{}
	err := r.db.QueryRow(`
		SELECT id, name, description, criteria, lead_count, refreshed_at, created_at, updated_at
		FROM segments WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Description, &s.Criteria, &s.LeadCount, &s.RefreshedAt, &s.CreatedAt, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List returns all saved segments
func (r *SegmentRepository) List() ([]models.Segment, error) {
	rows, err := r.db.Query(`
		SELECT id, name, description, criteria, lead_count, refreshed_at, created_at, updated_at
		FROM segments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	segments := []models.Segment{}
	for rows.Next() {
		var s models.Segment
		err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Criteria, &s.LeadCount, &s.RefreshedAt, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}

	return segments, rows.Err()
}

// Update updates a segment definition
func (r *SegmentRepository) Update(s *models.Segment) error {
	s.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		UPDATE segments SET name = ?, description = ?, criteria = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.Description, s.Criteria, s.UpdatedAt, s.ID,
	)
	return err
}

// UpdateCount persists a freshly computed lead count
func (r *SegmentRepository) UpdateCount(id string, count int) error {
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE segments SET lead_count = ?, refreshed_at = ?, updated_at = ?
		WHERE id = ?`,
		count, now, now, id,
	)
	return err
}

// Delete deletes a segment
func (r *SegmentRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM segments WHERE id = ?", id)
	return err
}
