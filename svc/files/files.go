package files

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/storage"
	"github.com/dmitrymomot/authstarter/pkg/validator"
	"github.com/dmitrymomot/authstarter/svc/auth"
)

// Config is read from UPLOAD_* variables.
type Config struct {
	MaxFileCount int      `env:"UPLOAD_MAX_FILE_COUNT" envDefault:"10"`
	MaxFileSize  int64    `env:"UPLOAD_MAX_FILE_SIZE" envDefault:"20000000"`
	Accept       []string `env:"UPLOAD_ACCEPT" envSeparator:"," envDefault:"image/*,application/pdf"`
}

// Limits converts the config into upload limits.
func (c Config) Limits() storage.Limits {
	return storage.Limits{MaxFileCount: c.MaxFileCount, MaxFileSize: c.MaxFileSize, Accept: c.Accept}
}

// Presigner issues upload and preview URLs. *storage.Storage implements it.
type Presigner interface {
	GenerateUploadURLs(ctx context.Context, reqs []storage.UploadRequest) (map[string]string, error)
	PreviewURL(ctx context.Context, owner, id string) (string, error)
}

// UploadRequest lists the files the browser is about to upload.
type UploadRequest struct {
	Files []storage.FileInfo `json:"files"`
}

// UploadResponse carries one presigned PUT URL per file id. Images also get
// a preview URL that becomes readable once the upload finished.
type UploadResponse struct {
	URLs    map[string]string `json:"urls"`
	Uploads []storage.Upload  `json:"uploads"`
}

type Service struct {
	store  Presigner
	limits storage.Limits
	log    *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(store Presigner, limits storage.Limits, opts ...Option) *Service {
	s := &Service{store: store, limits: limits, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("files"))
	return s
}

// Handle mounts POST /uploads. The route must sit behind the session
// middleware; requests without a user are rejected.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/uploads", handler.Wrap(s.CreateUploads,
		handler.WithBinders[handler.Context, UploadRequest](handler.BindJSON),
		handler.WithErrorHandler[handler.Context, UploadRequest](s.onError),
	))
	return r
}

// CreateUploads validates the batch and presigns one PUT URL per file.
// Files without an id get a random one. Object keys live under the user's
// id, so ids chosen by different users never collide.
func (s *Service) CreateUploads(ctx handler.Context, req UploadRequest) handler.Response {
	user := auth.GetUserFromContext(ctx)
	if user == nil {
		return handler.JSONError(handler.ErrUnauthorized)
	}
	if len(req.Files) == 0 {
		return handler.JSONError(validator.ValidationErrors{{
			Field: "files", Key: "files.required", Message: "Select at least one file",
		}})
	}
	if err := s.limits.Validate(req.Files); err != nil {
		return handler.JSONError(limitErrors(err))
	}

	uploads := make([]storage.Upload, len(req.Files))
	reqs := make([]storage.UploadRequest, len(req.Files))
	for i, f := range req.Files {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		uploads[i] = storage.Upload{File: f}
		reqs[i] = storage.UploadRequest{Owner: user.ID, ID: f.ID, MIMEType: f.MIMEType}
	}

	urls, err := s.store.GenerateUploadURLs(ctx, reqs)
	if err != nil {
		return s.storageError(ctx, err)
	}
	for i := range uploads {
		uploads[i].UploadURL = urls[uploads[i].File.ID]
		if !uploads[i].IsImage() {
			continue
		}
		preview, err := s.store.PreviewURL(ctx, user.ID, uploads[i].File.ID)
		if err != nil {
			return s.storageError(ctx, err)
		}
		uploads[i].PreviewURL = preview
	}

	s.log.InfoContext(ctx, "upload urls issued", slog.Int("count", len(uploads)))
	return handler.JSON(UploadResponse{URLs: urls, Uploads: uploads})
}

func (s *Service) storageError(ctx context.Context, err error) handler.Response {
	switch {
	case errors.Is(err, storage.ErrInvalidObjectID), errors.Is(err, storage.ErrDuplicateObjectID):
		return handler.JSONError(validator.ValidationErrors{{Field: "files", Key: "files.invalid_id", Message: err.Error()}})
	case errors.Is(err, storage.ErrOperationCanceled):
		return handler.JSONError(handler.ErrBadRequest)
	}
	s.log.ErrorContext(ctx, "presign failed", logger.Error(err))
	return handler.JSONError(err)
}

func (s *Service) onError(ctx handler.Context, err error) {
	if err := handler.JSONError(err).Render(ctx.ResponseWriter(), ctx.Request()); err != nil {
		s.log.ErrorContext(ctx, "write error response", logger.Error(err))
	}
}

func limitErrors(err error) error {
	var le *storage.LimitError
	if !errors.As(err, &le) {
		return err
	}
	return validator.ValidationErrors{{
		Field:   "files",
		Key:     "files." + limitKey(le.Err),
		Message: le.Message,
		Params:  map[string]any{"file": le.File},
	}}
}

func limitKey(err error) string {
	switch {
	case errors.Is(err, storage.ErrTooManyFiles):
		return "too_many"
	case errors.Is(err, storage.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, storage.ErrEmptyFile):
		return "empty"
	default:
		return "unsupported_type"
	}
}
