package service

import (
	"context"
	"strings"

	"safeguard/internal/models"
	"safeguard/internal/repository"
)

const notAuthorized = "Not authorized"

type PostService struct {
	postRepo repository.PostRepository
}

type PostInput struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Summary     string `json:"summary" form:"summary"`
	ContactInfo string `json:"contact_info" form:"contact_info"`
	Photo       []byte `json:"-" form:"-"`
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

func (in PostInput) validate() error {
	const maxTitleLen = 300
	const maxDescriptionLen = 50000

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	if len(in.Description) > maxDescriptionLen {
		return models.NewValidationError("Description too long (max 50000 characters)")
	}
	return nil
}

// CreatePost stores a listing. The photo is fitted onto a fixed white tile.
func (s *PostService) CreatePost(ctx context.Context, owner *models.User, in PostInput) (*models.Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var photo []byte
	if len(in.Photo) > 0 {
		tile, err := FitOnCanvas(in.Photo, PostTileWidth, PostTileHeight)
		if err != nil {
			return nil, err
		}
		photo = tile
	}
	post := &models.Post{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Summary:     strings.TrimSpace(in.Summary),
		ContactInfo: strings.TrimSpace(in.ContactInfo),
		Photo:       photo,
		OwnerID:     owner.ID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns visible posts plus the viewer's own hidden ones.
func (s *PostService) ListPosts(ctx context.Context, viewerID uint) ([]models.Post, error) {
	return s.postRepo.ListVisible(ctx, viewerID)
}

func (s *PostService) MyPosts(ctx context.Context, ownerID uint) ([]models.Post, error) {
	return s.postRepo.ListByOwner(ctx, ownerID)
}

// GetPost hides other users' hidden posts.
func (s *PostService) GetPost(ctx context.Context, viewerID, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.IsHidden && post.OwnerID != viewerID {
		return nil, models.NewNotFoundError("Post", "Post not found")
	}
	return post, nil
}

func (s *PostService) Photo(ctx context.Context, viewerID, id uint) ([]byte, error) {
	post, err := s.GetPost(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	if len(post.Photo) == 0 {
		return nil, models.NewNotFoundError("Photo", "Photo not found")
	}
	return post.Photo, nil
}

func (s *PostService) owned(ctx context.Context, userID, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.OwnerID != userID {
		return nil, models.NewForbiddenError(notAuthorized)
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, userID, id uint, in PostInput) (*models.Post, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		"title":        strings.TrimSpace(in.Title),
		"description":  strings.TrimSpace(in.Description),
		"summary":      strings.TrimSpace(in.Summary),
		"contact_info": strings.TrimSpace(in.ContactInfo),
	}
	if len(in.Photo) > 0 {
		tile, err := FitOnCanvas(in.Photo, PostTileWidth, PostTileHeight)
		if err != nil {
			return nil, err
		}
		fields["photo"] = tile
	}
	if err := s.postRepo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) ToggleVisibility(ctx context.Context, userID, id uint) (*models.Post, error) {
	post, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.UpdateFields(ctx, id, map[string]interface{}{"is_hidden": !post.IsHidden}); err != nil {
		return nil, err
	}
	post.IsHidden = !post.IsHidden
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, userID, id uint) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, id)
}
