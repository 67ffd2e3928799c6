package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/logging"
	"go.uber.org/zap"
)

const (
	msgBadFileType  = "Invalid file type. Only JPEG, JPG and PNG files are allowed."
	msgFileTooLarge = "File too large."
	msgBadField     = "Unexpected field."
	msgBadForm      = "Invalid multipart form."

	maxFieldBytes = 64 << 10
)

// UploadOptions bounds multipart staging.
type UploadOptions struct {
	TempDir      string
	MaxBytes     int64
	AllowedMimes []string
}

// staged holds the text fields and staged file paths of one multipart request.
type staged struct {
	Values map[string]string
	Files  map[string]string

	log *zap.Logger
}

// Cleanup removes every staged file. Safe to call more than once.
func (s *staged) Cleanup() {
	for field, p := range s.Files {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("staged file not removed", zap.String("field", field), zap.Error(err))
		}
		delete(s.Files, field)
	}
}

// stage streams a multipart body, writing the accepted file fields to the temp dir.
// The caller must defer Cleanup on success; on error nothing is left behind.
func (s *Server) stage(w http.ResponseWriter, r *http.Request, fileFields ...string) (*staged, error) {
	up := s.opts.Upload
	limit := int64(len(fileFields))*up.MaxBytes + s.opts.BodyLimit + maxFieldBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalid, msgBadForm, err)
	}

	st := &staged{
		Values: map[string]string{},
		Files:  map[string]string{},
		log:    logging.FromContext(r.Context()),
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			st.Cleanup()
			return nil, errs.Wrap(errs.ErrInvalid, msgBadForm, err)
		}
		if err := s.stagePart(st, part, fileFields); err != nil {
			_ = part.Close()
			st.Cleanup()
			return nil, err
		}
		_ = part.Close()
	}
}

func (s *Server) stagePart(st *staged, part *multipart.Part, fileFields []string) error {
	name := part.FormName()
	if part.FileName() == "" {
		b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
		if err != nil {
			return errs.Wrap(errs.ErrInvalid, msgBadForm, err)
		}
		if len(b) > maxFieldBytes {
			return errs.E(errs.ErrInvalid, fmt.Sprintf("%s is too long.", name))
		}
		st.Values[name] = string(b)
		return nil
	}

	if !contains(fileFields, name) {
		return errs.E(errs.ErrInvalid, msgBadField)
	}
	if _, dup := st.Files[name]; dup {
		return errs.E(errs.ErrInvalid, msgBadField)
	}
	if !contains(s.opts.Upload.AllowedMimes, strings.ToLower(part.Header.Get("Content-Type"))) {
		return errs.E(errs.ErrInvalid, msgBadFileType)
	}

	f, err := createStaged(s.opts.Upload.TempDir, part.FileName())
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	st.Files[name] = f.Name()

	n, err := io.Copy(f, io.LimitReader(part, s.opts.Upload.MaxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return errs.E(errs.ErrInvalid, msgFileTooLarge)
		}
		return fmt.Errorf("stage %s: %w", name, err)
	}
	if n > s.opts.Upload.MaxBytes {
		return errs.E(errs.ErrInvalid, msgFileTooLarge)
	}
	return nil
}

// createStaged opens a new file named <unix-millis>-<basename> in dir.
func createStaged(dir, original string) (*os.File, error) {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" {
		base = "upload"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	stamp := time.Now().UnixMilli()
	for i := 0; ; i++ {
		name := fmt.Sprintf("%d-%s", stamp, base)
		if i > 0 {
			name = fmt.Sprintf("%d-%d-%s", stamp, i, base)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) && i < 100 {
			continue
		}
		return f, err
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
