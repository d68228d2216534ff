package server

import (
	"safeguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListPosts handles GET /posts
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext(), userIDFrom(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(posts)
}

// MyPosts handles GET /posts/mine
func (s *Server) MyPosts(c *fiber.Ctx) error {
	posts, err := s.postService.MyPosts(c.UserContext(), userIDFrom(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /posts as JSON or multipart with "photo".
func (s *Server) CreatePost(c *fiber.Ctx) error {
	owner, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	var in service.PostInput
	if in.Photo, err = bindWithPhoto(c, &in); err != nil {
		return respondAppError(c, err)
	}
	post, err := s.postService.CreatePost(c.UserContext(), owner, in)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), userIDFrom(c), id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(post)
}

// GetPostPhoto handles GET /posts/:id/photo
func (s *Server) GetPostPhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	photo, err := s.postService.Photo(c.UserContext(), userIDFrom(c), id)
	if err != nil {
		return respondAppError(c, err)
	}
	return sendImage(c, photo)
}

// UpdatePost handles PUT /posts/:id. Owner only; a new photo is optional.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.PostInput
	if in.Photo, err = bindWithPhoto(c, &in); err != nil {
		return respondAppError(c, err)
	}
	post, err := s.postService.UpdatePost(c.UserContext(), userIDFrom(c), id, in)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(post)
}

// TogglePostVisibility handles POST /posts/:id/toggle-visibility
func (s *Server) TogglePostVisibility(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.ToggleVisibility(c.UserContext(), userIDFrom(c), id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"id": post.ID, "is_hidden": post.IsHidden})
}

// DeletePost handles DELETE /posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), userIDFrom(c), id); err != nil {
		return respondAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
