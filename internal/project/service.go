package project

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/refract/refract-studio/internal/timeline"
)

type ProjectService interface {
	List(ctx context.Context) ([]*Project, error)
	Create(ctx context.Context, name string, wf Workflow) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	Replace(ctx context.Context, id, name string, wf Workflow) (*Project, error)
	Delete(ctx context.Context, id string) error
	SaveTimeline(ctx context.Context, id string, clips []timeline.Clip) error
	MoveShot(ctx context.Context, id, shotID string, dir Direction) (*Project, error)
	MoveTextShot(ctx context.Context, id, textShotID string, dir Direction) (*Project, error)
	Count(ctx context.Context) (int, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]*Project, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []*Project{}
	}
	return projects, nil
}

// Create stores a new project. Both timestamps are set to the same instant.
func (s *Service) Create(ctx context.Context, name string, wf Workflow) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	wf.normalize()

	now := s.now().UTC().Truncate(time.Second)
	p := &Project{
		ID:        NewID(),
		Name:      name,
		Workflow:  wf,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("project created", "project_id", p.ID, "name", p.Name)
	}
	return p, nil
}

// Get returns nil, nil when the project does not exist.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	return s.repo.GetProject(ctx, id)
}

// Replace overwrites the name and workflow of an existing project and
// refreshes updatedAt.
func (s *Service) Replace(ctx context.Context, id, name string, wf Workflow) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	existing, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	next := existing.Workflow
	next.UpdateMetaPrompt(wf.MetaPrompt.GeneralPrompt, wf.MetaPrompt.Objs)
	next.UpdateTextShots(wf.TextShots)
	next.UpdateShots(wf.Shots)
	next.UpdateGeneratedContent(wf.GeneratedContent)
	next.normalize()

	existing.Name = name
	existing.Workflow = next
	existing.UpdatedAt = s.now().UTC().Truncate(time.Second)

	if err := s.repo.ReplaceProject(ctx, existing); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("project replaced", "project_id", id)
	}
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("project deleted", "project_id", id)
	}
	return nil
}

func (s *Service) SaveTimeline(ctx context.Context, id string, clips []timeline.Clip) error {
	if clips == nil {
		clips = []timeline.Clip{}
	}
	if err := s.repo.SaveTimeline(ctx, id, clips, s.now().UTC().Truncate(time.Second)); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Debug("timeline saved", "project_id", id, "clips", len(clips))
	}
	return nil
}

func (s *Service) MoveShot(ctx context.Context, id, shotID string, dir Direction) (*Project, error) {
	return s.reorder(ctx, id, func(wf *Workflow) (bool, error) {
		return wf.MoveShot(shotID, dir)
	})
}

func (s *Service) MoveTextShot(ctx context.Context, id, textShotID string, dir Direction) (*Project, error) {
	return s.reorder(ctx, id, func(wf *Workflow) (bool, error) {
		return wf.MoveTextShot(textShotID, dir)
	})
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.CountProjects(ctx)
}

// reorder applies fn to the stored workflow and persists it only when the
// order actually changed.
func (s *Service) reorder(ctx context.Context, id string, fn func(*Workflow) (bool, error)) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}

	moved, err := fn(&p.Workflow)
	if err != nil {
		return nil, err
	}
	if !moved {
		return p, nil
	}

	p.UpdatedAt = s.now().UTC().Truncate(time.Second)
	if err := s.repo.ReplaceProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
