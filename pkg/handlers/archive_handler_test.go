package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubArchiveService returns canned archive bytes and records imports.
type stubArchiveService struct {
	exportErr error
	importErr error
	imported  []byte
}

func (s *stubArchiveService) Export(_ context.Context) (string, []byte, error) {
	if s.exportErr != nil {
		return "", nil, s.exportErr
	}
	return "mldata-export-20250415-120000.tar.gz", []byte("archive-bytes"), nil
}

func (s *stubArchiveService) Import(_ context.Context, r io.Reader) error {
	if s.importErr != nil {
		return s.importErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.imported = data
	return nil
}

func newArchiveMux(svc *stubArchiveService) *http.ServeMux {
	mux := http.NewServeMux()
	NewArchiveHandler(svc, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestArchiveHandlerExport(t *testing.T) {
	mux := newArchiveMux(&stubArchiveService{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "mldata-export-")
	assert.Equal(t, "archive-bytes", rec.Body.String())
}

func TestArchiveHandlerExportFailure(t *testing.T) {
	mux := newArchiveMux(&stubArchiveService{exportErr: assert.AnError})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	envelope := decodeEnvelope(t, rec.Body)
	assert.Equal(t, "export_failed", envelope["error"])
}

func TestArchiveHandlerImport(t *testing.T) {
	svc := &stubArchiveService{}
	mux := newArchiveMux(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("archive", "backup.tar.gz")
	require.NoError(t, err)
	_, err = fw.Write([]byte("tarball-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("tarball-bytes"), svc.imported)
}

func TestArchiveHandlerImportRequiresFile(t *testing.T) {
	mux := newArchiveMux(&stubArchiveService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("unrelated", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchiveHandlerImportFailure(t *testing.T) {
	mux := newArchiveMux(&stubArchiveService{importErr: fmt.Errorf("archive has no manifest")})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("archive", "broken.tar.gz")
	require.NoError(t, err)
	_, err = fw.Write([]byte("junk"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec.Body)
	assert.Equal(t, "import_failed", envelope["error"])
}
