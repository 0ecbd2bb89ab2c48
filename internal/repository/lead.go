package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `id, name, email, phone, city, state, service, message, status,
	COALESCE(assigned_to, ''), created_at, updated_at`

// Create creates a new lead
func (r *LeadRepository) Create(l *models.Lead) error {
	l.ID = uuid.New().String()
	if l.Status == "" {
		l.Status = models.LeadStatusNew
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	l.UpdatedAt = l.CreatedAt

	var assigned any
	if l.AssignedTo != "" {
		assigned = l.AssignedTo
	}

	_, err := r.db.Exec(`
		INSERT INTO leads (id, name, email, phone, city, state, service, message, status, assigned_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Email, l.Phone, l.City, l.State, l.Service, l.Message, l.Status, assigned, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// GetByID returns a lead by ID
func (r *LeadRepository) GetByID(id string) (*models.Lead, error) {
	l := &models.Lead{}
	err := r.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id).Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.City, &l.State, &l.Service, &l.Message,
		&l.Status, &l.AssignedTo, &l.CreatedAt, &l.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// List returns leads with optional filtering
func (r *LeadRepository) List(filter models.LeadFilter) ([]models.Lead, int, error) {
	countQuery := "SELECT COUNT(*) FROM leads WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		countQuery += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.AssignedTo != "" {
		countQuery += " AND assigned_to = ?"
		args = append(args, filter.AssignedTo)
	}
	if filter.Search != "" {
		countQuery += " AND (name LIKE ? OR email LIKE ? OR service LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`

	args = []any{}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.AssignedTo != "" {
		query += " AND assigned_to = ?"
		args = append(args, filter.AssignedTo)
	}
	if filter.Search != "" {
		query += " AND (name LIKE ? OR email LIKE ? OR service LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	query += " ORDER BY created_at DESC"

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

	leads := []models.Lead{}
	for rows.Next() {
		var l models.Lead
		err := rows.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.City, &l.State, &l.Service,
			&l.Message, &l.Status, &l.AssignedTo, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, l)
	}

	return leads, total, rows.Err()
}

// All returns the entire lead population ordered by creation time.
// The segment engine evaluates criteria in memory against this list.
func (r *LeadRepository) All() ([]models.Lead, error) {
	leads, _, err := r.List(models.LeadFilter{})
	return leads, err
}

// UpdateStatus changes a lead's status
func (r *LeadRepository) UpdateStatus(id, status string) error {
	res, err := r.db.Exec("UPDATE leads SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("lead %s not found", id)
	}
	return nil
}

// Assign assigns a lead to an operator. Empty userID clears the assignment.
func (r *LeadRepository) Assign(id, userID string) error {
	var assigned any
	if userID != "" {
		assigned = userID
	}
	_, err := r.db.Exec("UPDATE leads SET assigned_to = ?, updated_at = ? WHERE id = ?",
		assigned, time.Now(), id)
	return err
}

// Delete deletes a lead
func (r *LeadRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM leads WHERE id = ?", id)
	return err
}
