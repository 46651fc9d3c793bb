package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rpggio/aerial/internal/domain/project"

// CollectionName is the per-user collection holding project documents.
const CollectionName = "client_projects"

// Service handles project operations.
type Service struct {
	store    Store
	activity ActivityRecorder
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates a new project service.
func NewService(store Store, recorder ActivityRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:    store,
		activity: recorder,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
}

// CollectionPath returns the document collection for a user's projects.
func CollectionPath(appID, uid string) (string, error) {
	if err := checkSegment("application id", appID); err != nil {
		return "", err
	}
	if err := checkSegment("uid", uid); err != nil {
		return "", err
	}
	return docstore.Join("artifacts", appID, "users", uid, CollectionName), nil
}

func checkSegment(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
	}
	if strings.Contains(v, "/") {
		return fmt.Errorf("%w: %s must not contain '/'", ErrInvalidInput, name)
	}
	return nil
}

// Watch subscribes to a user's projects.
func (s *Service) Watch(ctx context.Context, appID, uid string) (*Subscription, error) {
	ctx, span := s.startSpan(ctx, "project.Watch", uid)
	defer span.End()

	path, err := CollectionPath(appID, uid)
	if err != nil {
		return nil, recordErr(span, err)
	}
	src, err := s.store.Watch(ctx, path)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("%w: %v", ErrDataLoadFailed, err))
	}
	return newSubscription(src, s.logger.With("uid", uid)), nil
}

// List returns a user's projects in stream order.
func (s *Service) List(ctx context.Context, appID, uid string) ([]Project, error) {
	ctx, span := s.startSpan(ctx, "project.List", uid)
	defer span.End()

	path, err := CollectionPath(appID, uid)
	if err != nil {
		return nil, recordErr(span, err)
	}
	snap, err := s.store.List(ctx, path)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("%w: %v", ErrDataLoadFailed, err))
	}
	projects, err := decodeSnapshot(snap)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("%w: %v", ErrDataLoadFailed, err))
	}
	warnAnomalies(s.logger, projects)
	return projects, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, appID, uid, id string) (*Project, error) {
	ctx, span := s.startSpan(ctx, "project.Get", uid)
	defer span.End()

	path, err := CollectionPath(appID, uid)
	if err != nil {
		return nil, recordErr(span, err)
	}
	doc, err := s.store.Get(ctx, path, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, recordErr(span, fmt.Errorf("getting project: %w", err))
	}
	p, err := DecodeDocument(*doc)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("%w: %v", ErrDataLoadFailed, err))
	}
	return &p, nil
}

// Upsert writes a project. An empty ID is assigned a new one.
func (s *Service) Upsert(ctx context.Context, appID, uid string, p Project) (*Project, error) {
	out, err := s.upsert(ctx, appID, uid, p)
	if err != nil {
		return nil, err
	}
	if s.activity != nil {
		s.activity.Record(ctx, uid, "", activity.TypeProjectUpserted, "Saved project "+out.ID)
	}
	return out, nil
}

func (s *Service) upsert(ctx context.Context, appID, uid string, p Project) (*Project, error) {
	ctx, span := s.startSpan(ctx, "project.Upsert", uid)
	defer span.End()

	path, err := CollectionPath(appID, uid)
	if err != nil {
		return nil, recordErr(span, err)
	}
	if strings.TrimSpace(p.ClientName) == "" || strings.TrimSpace(p.ProjectName) == "" {
		return nil, recordErr(span, fmt.Errorf("%w: client and project names are required", ErrInvalidInput))
	}
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	span.SetAttributes(attribute.String("project.id", p.ID))

	data, err := EncodeDocument(p)
	if err != nil {
		return nil, recordErr(span, err)
	}
	doc, err := s.store.Upsert(ctx, path, p.ID, data)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("saving project: %w", err))
	}

	out, err := DecodeDocument(*doc)
	if err != nil {
		return nil, recordErr(span, err)
	}
	return &out, nil
}

func (s *Service) startSpan(ctx context.Context, name, uid string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("user.uid", uid)))
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
