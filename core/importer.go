package core

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"pkt.systems/taskdeck/internal/logx"
	"pkt.systems/taskdeck/schema"
)

// ArchiveContentType is the only media type offered by the upload control.
const ArchiveContentType = "application/zip"

// Importer accepts project archives from the upload panel.
type Importer struct {
	registry *ImportRegistry
	appPath  string
	now      func() time.Time
}

// NewImporter constructs an importer storing archives in registry.
func NewImporter(cfg schema.HomeConfig, registry *ImportRegistry) (*Importer, error) {
	normalized, err := schema.NormalizeHomeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, errors.New("import registry is required")
	}
	return &Importer{registry: registry, appPath: normalized.AppPath, now: time.Now}, nil
}

// Import validates the archive, replaces the visitor's previous one and
// redirects to the app. A nil or nameless file reports ErrNoFile.
func (i *Importer) Import(ctx context.Context, visitor schema.VisitorID, file *schema.ImportedFile) (string, error) {
	log := logx.WithVisitor(ctx, visitor)
	if file == nil || strings.TrimSpace(file.Name) == "" {
		log.Debug("import skipped", "reason", "no file")
		return "", schema.ErrNoFile
	}
	if !acceptsArchive(file.ContentType, file.Name) {
		log.Info("import rejected", "name", file.Name, "content_type", file.ContentType)
		return "", fmt.Errorf("%w: content type %q", schema.ErrInvalidArchive, file.ContentType)
	}
	if _, err := zip.NewReader(bytes.NewReader(file.Data), int64(len(file.Data))); err != nil {
		log.Info("import rejected", "name", file.Name, "err", err)
		return "", fmt.Errorf("%w: %v", schema.ErrInvalidArchive, err)
	}
	stored := *file
	stored.Name = path.Base(strings.ReplaceAll(file.Name, "\\", "/"))
	stored.Size = int64(len(file.Data))
	if stored.ReceivedAt.IsZero() {
		stored.ReceivedAt = i.now()
	}
	i.registry.Put(visitor, stored)
	log.Info("import ok", "name", stored.Name, "bytes", stored.Size)
	return i.appPath, nil
}

// Current returns the visitor's pending archive, if any.
func (i *Importer) Current(visitor schema.VisitorID) (schema.ImportedFile, bool) {
	return i.registry.Peek(visitor)
}

// Claim hands the visitor's archive to the app and forgets it.
func (i *Importer) Claim(visitor schema.VisitorID) (schema.ImportedFile, bool) {
	return i.registry.Take(visitor)
}

// Discard drops the visitor's pending archive without handing it over.
func (i *Importer) Discard(visitor schema.VisitorID) {
	i.registry.Delete(visitor)
}

func acceptsArchive(contentType, name string) bool {
	mediaType := strings.TrimSpace(contentType)
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	switch strings.ToLower(mediaType) {
	case ArchiveContentType, "application/x-zip-compressed", "application/x-zip":
		return true
	case "", "application/octet-stream":
		return strings.EqualFold(path.Ext(name), ".zip")
	default:
		return false
	}
}
