package repository

import (
	"reading_edu_backend/internal/model"

	"gorm.io/gorm"
)

type AnswerRecordRepository struct {
	DB *gorm.DB
}

func NewAnswerRecordRepository(db *gorm.DB) *AnswerRecordRepository {
	return &AnswerRecordRepository{DB: db}
}

func (r *AnswerRecordRepository) Create(record *model.AnswerRecord) error {
	return r.DB.Create(record).Error
}

func (r *AnswerRecordRepository) ListByRound(roundID string) ([]model.AnswerRecord, error) {
	var records []model.AnswerRecord
	err := r.DB.Where("round_id = ?", roundID).
		Order("created_at asc").
		Find(&records).Error
	return records, err
}

func (r *AnswerRecordRepository) CountByRound(roundID string) (total int64, correct int64, err error) {
	err = r.DB.Model(&model.AnswerRecord{}).
		Where("round_id = ?", roundID).
		Count(&total).Error
	if err != nil {
		return 0, 0, err
	}
	err = r.DB.Model(&model.AnswerRecord{}).
		Where("round_id = ? AND is_correct = ?", roundID, true).
		Count(&correct).Error
	if err != nil {
		return 0, 0, err
	}
	return total, correct, nil
}
