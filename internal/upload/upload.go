package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/aipdfchat/docchat/internal/api"
	"github.com/aipdfchat/docchat/internal/models"
	"github.com/aipdfchat/docchat/internal/registry"
)

// ErrNoFileSelected means Upload was called with an empty file selection.
var ErrNoFileSelected = errors.New("no file selected")

// DefaultMaxFiles bounds how many files one upload may carry.
const DefaultMaxFiles = 2

// Uploader is the slice of the api client the orchestrator needs.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*api.UploadResult, error)
}

// Result summarizes a successful upload batch.
type Result struct {
	Documents []models.Document
	Options   []models.PostprocessOption
}

// Names returns the uploaded document names for the confirmation message.
func (r *Result) Names() []string {
	names := make([]string, len(r.Documents))
	for i, d := range r.Documents {
		names[i] = d.Name
	}
	return names
}

// Summary is the human-readable confirmation including the returned names.
func (r *Result) Summary() string {
	return "Uploaded: " + strings.Join(r.Names(), ", ")
}

// Orchestrator coordinates local file selection, submission and the
// backend-driven post-processing options returned after ingestion.
type Orchestrator struct {
	backend  Uploader
	registry *registry.Registry
	logger   *zap.Logger
	maxFiles int

	mu       sync.Mutex
	selected []string
	options  []models.PostprocessOption
}

func New(backend Uploader, reg *registry.Registry, maxFiles int, logger *zap.Logger) *Orchestrator {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Orchestrator{
		backend:  backend,
		registry: reg,
		logger:   logger,
		maxFiles: maxFiles,
	}
}

// Select replaces the local file selection. Selecting more than the limit is
// rejected outright, not truncated, and issues no network call.
func (o *Orchestrator) Select(paths ...string) error {
	if len(paths) > o.maxFiles {
		return fmt.Errorf("you can upload at most %d files at a time", o.maxFiles)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.selected = append([]string(nil), paths...)
	return nil
}

// Selected returns the current local file selection.
func (o *Orchestrator) Selected() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.selected...)
}

// Upload submits the selected files. On success the returned documents are
// merged into the registry and the selection resets; on failure the registry
// stays untouched and the selection is kept so the user can retry.
func (o *Orchestrator) Upload(ctx context.Context) (*Result, error) {
	paths := o.Selected()
	if len(paths) == 0 {
		return nil, ErrNoFileSelected
	}

	result := &Result{}
	for _, path := range paths {
		doc, options, err := o.uploadFile(ctx, path)
		if err != nil {
			o.logger.Error("Upload failed",
				zap.Error(err),
				zap.String("file", path))
			return nil, err
		}
		result.Documents = append(result.Documents, doc)
		if len(options) > 0 {
			result.Options = options
		}
	}

	o.registry.Add(result.Documents...)

	o.mu.Lock()
	o.selected = nil
	if len(result.Options) > 0 {
		o.options = result.Options
	}
	o.mu.Unlock()

	return result, nil
}

// UploadReader submits a single in-memory file, bypassing the local path
// selection. Used by frontends that receive file content over the wire.
func (o *Orchestrator) UploadReader(ctx context.Context, name string, r io.Reader) (*Result, error) {
	res, err := o.backend.Upload(ctx, name, r)
	if err != nil {
		return nil, err
	}

	doc := documentFromResult(name, res)
	o.registry.Add(doc)

	o.mu.Lock()
	if len(res.PostprocessOptions) > 0 {
		o.options = res.PostprocessOptions
	}
	o.mu.Unlock()

	return &Result{
		Documents: []models.Document{doc},
		Options:   res.PostprocessOptions,
	}, nil
}

// Options returns the post-processing options the backend advertised with the
// most recent upload.
func (o *Orchestrator) Options() []models.PostprocessOption {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.PostprocessOption(nil), o.options...)
}

func (o *Orchestrator) uploadFile(ctx context.Context, path string) (models.Document, []models.PostprocessOption, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Document{}, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	res, err := o.backend.Upload(ctx, name, f)
	if err != nil {
		return models.Document{}, nil, err
	}

	return documentFromResult(name, res), res.PostprocessOptions, nil
}

// documentFromResult builds the cache entry for an uploaded file. The
// backend's document id for uploads is the filename itself.
func documentFromResult(name string, res *api.UploadResult) models.Document {
	if res.Filename != "" {
		name = res.Filename
	}
	return models.Document{
		ID:      name,
		Name:    name,
		Chunks:  res.ChunksAdded,
		FileURL: res.FileURL,
	}
}
