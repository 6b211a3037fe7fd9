package store

import (
	"time"

	"gorm.io/gorm"

	apperrors "github.com/regimen-health/regimen/internal/errors"
)

// ==================== Condition Methods ====================

func (s *Store) CreateCondition(cond *Condition) error {
	cond.CreatedAt = time.Now()
	cond.UpdatedAt = cond.CreatedAt
	return s.db.Create(cond).Error
}

func (s *Store) GetCondition(id string) (*Condition, error) {
	var cond Condition
	err := s.db.Where("id = ?", id).First(&cond).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cond, nil
}

func (s *Store) UpdateCondition(cond *Condition) error {
	cond.UpdatedAt = time.Now()
	return s.db.Save(cond).Error
}

func (s *Store) DeleteCondition(id string) error {
	return s.db.Where("id = ?", id).Delete(&Condition{}).Error
}

func (s *Store) ListConditions(userID string) ([]Condition, error) {
	var conds []Condition
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&conds).Error
	return conds, err
}

// ==================== Treatment Methods ====================

func (s *Store) CreateTreatment(t *Treatment) error {
	if !ValidFrequency(t.Frequency) {
		return apperrors.ErrInvalidFrequency
	}
	if !ValidType(t.Type) {
		return apperrors.New(apperrors.ErrBadRequest.Code, "invalid treatment type")
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	return s.db.Create(t).Error
}

func (s *Store) GetTreatment(id string) (*Treatment, error) {
	var t Treatment
	err := s.db.Where("id = ?", id).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) UpdateTreatment(t *Treatment) error {
	if !ValidFrequency(t.Frequency) {
		return apperrors.ErrInvalidFrequency
	}
	t.UpdatedAt = time.Now()
	return s.db.Save(t).Error
}

// DeleteTreatment removes a treatment. Completion events referencing it are
// left in place; readers ignore events whose treatment no longer exists.
func (s *Store) DeleteTreatment(id string) error {
	return s.db.Where("id = ?", id).Delete(&Treatment{}).Error
}

func (s *Store) ListTreatments(userID string) ([]Treatment, error) {
	var treatments []Treatment
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&treatments).Error
	return treatments, err
}

// RateTreatment sets the effectiveness rating and notes independently of
// completion tracking
func (s *Store) RateTreatment(id string, effectiveness int, notes string) error {
	if effectiveness < 1 || effectiveness > 10 {
		return apperrors.ErrInvalidRating
	}
	res := s.db.Model(&Treatment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"effectiveness": effectiveness,
		"notes":         notes,
		"updated_at":    time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrTreatmentNotFound
	}
	return nil
}
