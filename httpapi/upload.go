package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/schema"
)

const multipartMemory = 8 << 20

// handleImport accepts the archive chosen in the upload panel. A post
// without a file is the cancelled-dialog case and changes nothing.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := pslog.Ctx(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			log.Warn("home import too large", "limit", tooLarge.Limit)
			writeText(w, http.StatusRequestEntityTooLarge, "archive too large")
		case errors.Is(err, http.ErrNotMultipart):
			w.WriteHeader(http.StatusNoContent)
		default:
			log.Warn("home import decode failed", "err", err)
			writeText(w, http.StatusBadRequest, "invalid upload")
		}
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	part, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			log.Debug("home import without file")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		log.Warn("home import read failed", "err", err)
		writeText(w, http.StatusBadRequest, "invalid upload")
		return
	}
	defer part.Close()
	data, err := io.ReadAll(part)
	if err != nil {
		log.Warn("home import read failed", "err", err)
		writeText(w, http.StatusBadRequest, "invalid upload")
		return
	}

	target, err := s.importer.Import(ctx, visitorFrom(ctx), &schema.ImportedFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
		ReceivedAt:  time.Now().UTC(),
	})
	switch {
	case err == nil:
		s.redirect(w, r, target)
	case errors.Is(err, schema.ErrNoFile):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, schema.ErrInvalidArchive):
		writeText(w, http.StatusUnsupportedMediaType, "only .zip archives can be imported")
	default:
		log.Warn("home import failed", "err", err)
		s.report(ctx, "import_archive", err)
		writeText(w, http.StatusInternalServerError, "import failed")
	}
}
