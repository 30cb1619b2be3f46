package service

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/comfyshop/internal/model"
	"github.com/mmeshcher/comfyshop/internal/storage"
)

// ImageUpload описывает загружаемый файл изображения товара.
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

// ListProducts возвращает каталог товаров.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct создаёт товар, сохраняя изображение при его наличии,
// и ставит в очередь уведомления администраторам.
func (s *Service) CreateProduct(ctx context.Context, p model.Product, img *ImageUpload) (*model.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, ErrMissingFields
	}

	if img != nil {
		saved, err := s.saveImage(ctx, img)
		if err != nil {
			return nil, err
		}
		p.Image, p.Thumbnail = saved.URL, saved.ThumbnailURL
	}

	created, err := s.repo.CreateProduct(ctx, &p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.Int64("productID", created.ID))
	s.notifier.NotifyProductCreated(*created)
	if created.Stock <= s.lowStockThreshold {
		s.notifier.NotifyLowStock(*created)
	}

	return created, nil
}

// UpdateProduct частично обновляет товар. Уведомление о низком остатке
// отправляется, если остаток изменялся и опустился до порога.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch model.ProductPatch, img *ImageUpload) (*model.Product, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrMissingFields
		}
		patch.Name = &name
	}

	if img != nil {
		if _, err := s.repo.GetProduct(ctx, id); err != nil {
			return nil, err
		}
		saved, err := s.saveImage(ctx, img)
		if err != nil {
			return nil, err
		}
		patch.Image, patch.Thumbnail = &saved.URL, &saved.ThumbnailURL
	}

	updated, err := s.repo.UpdateProduct(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if patch.Stock != nil && updated.Stock <= s.lowStockThreshold {
		s.notifier.NotifyLowStock(*updated)
	}

	return updated, nil
}

// DeleteProduct удаляет товар из каталога.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.Int64("productID", id))
	return nil
}

func (s *Service) saveImage(ctx context.Context, img *ImageUpload) (*storage.Image, error) {
	if s.images == nil {
		return nil, ErrImageStorageDisabled
	}
	return s.images.SaveImage(ctx, img.Filename, img.Body)
}
