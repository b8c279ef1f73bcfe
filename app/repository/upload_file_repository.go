package repository

import (
	"github.com/ManuelReschke/AdMarket/app/models"
	"gorm.io/gorm"
)

type uploadFileRepository struct {
	db *gorm.DB
}

// NewUploadFileRepository creates a new upload file repository instance
func NewUploadFileRepository(db *gorm.DB) UploadFileRepository {
	return &uploadFileRepository{db: db}
}

func (r *uploadFileRepository) Create(file *models.UploadFile) error {
	return r.db.Create(file).Error
}

func (r *uploadFileRepository) GetByID(id uint) (*models.UploadFile, error) {
	var file models.UploadFile
	if err := r.db.First(&file, id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *uploadFileRepository) Delete(id uint) error {
	return r.db.Delete(&models.UploadFile{}, id).Error
}
