package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mediarouter "github.com/shoraid/go-media-router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(service MediaService) http.Handler {
	return New(Config{SignedURLTTL: 10 * time.Minute}, service, zerolog.Nop()).Handler()
}

func serve(t *testing.T, handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func ownedRequest(method, target string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(ownerHeader, "user-1")
	return req
}

func uploadRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("title", "Beach"))

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="beach.png"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := ownedRequest(http.MethodPost, "/v1/media", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func ownedRecord() *mediarouter.MediaRecord {
	return &mediarouter.MediaRecord{
		ID:         "rec-1",
		OwnerID:    "user-1",
		ObjectKey:  "user-1/1.jpg",
		MimeType:   "image/jpeg",
		ProviderID: mediarouter.Storage2,
	}
}

func getOwned(ctx context.Context, id string) (*mediarouter.MediaRecord, error) {
	if id != "rec-1" {
		return nil, mediarouter.ErrRecordNotFound
	}
	return ownedRecord(), nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestMediaHandler_Upload(t *testing.T) {
	tests := []struct {
		name           string
		contentType    string
		uploadErr      error
		expectedStatus int
		expectedMIME   string
	}{
		{
			name:           "should create media with declared content type",
			contentType:    "image/png",
			expectedStatus: http.StatusCreated,
			expectedMIME:   "image/png",
		},
		{
			name:           "should sniff content type when none is declared",
			contentType:    "application/octet-stream",
			expectedStatus: http.StatusCreated,
			expectedMIME:   "image/png",
		},
		{
			name:           "should map unsupported media to 415",
			contentType:    "image/png",
			uploadErr:      &mediarouter.UploadError{Stage: mediarouter.StageTransforming, Err: mediarouter.ErrUnsupportedMediaType},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "should map storage failures to 502",
			contentType:    "image/png",
			uploadErr:      &mediarouter.UploadError{Stage: mediarouter.StageUploading, Provider: mediarouter.Storage1, Err: errors.New("timeout")},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "should map metadata failures to 500",
			contentType:    "image/png",
			uploadErr:      &mediarouter.UploadError{Stage: mediarouter.StageSavingMetadata, Provider: mediarouter.Storage1, Err: errors.New("db")},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got mediarouter.UploadInput
			service := &MockMediaService{
				MockUploadMedia: func(ctx context.Context, in mediarouter.UploadInput, progress mediarouter.ProgressFunc) (*mediarouter.MediaRecord, error) {
					got = in
					if tt.uploadErr != nil {
						return nil, tt.uploadErr
					}
					return &mediarouter.MediaRecord{ID: "rec-1", OwnerID: in.OwnerID, MimeType: in.File.ContentType}, nil
				},
			}

			rec := serve(t, newTestServer(service), uploadRequest(t, tt.contentType, pngHeader))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "user-1", got.OwnerID)
			assert.Equal(t, "Beach", got.Title)
			assert.Equal(t, "beach.png", got.File.Name)
			assert.Equal(t, pngHeader, got.File.Data)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.uploadErr != nil {
				assert.Equal(t, mediarouter.UserMessage(tt.uploadErr), body["error"])
				return
			}
			assert.Equal(t, tt.expectedMIME, body["mime_type"])
		})
	}
}

func TestMediaHandler_UploadRequiresFileAndOwner(t *testing.T) {
	server := newTestServer(&MockMediaService{})

	rec := serve(t, server, ownedRequest(http.MethodPost, "/v1/media", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := uploadRequest(t, "image/png", pngHeader)
	req.Header.Del(ownerHeader)
	rec = serve(t, server, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMediaHandler_Get(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		owner          string
		expectedStatus int
	}{
		{name: "should return owned record", id: "rec-1", owner: "user-1", expectedStatus: http.StatusOK},
		{name: "should hide records of other owners", id: "rec-1", owner: "user-2", expectedStatus: http.StatusNotFound},
		{name: "should return 404 for unknown record", id: "missing", owner: "user-1", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockMediaService{MockGetMedia: getOwned}
			req := ownedRequest(http.MethodGet, "/v1/media/"+tt.id, nil)
			req.Header.Set(ownerHeader, tt.owner)

			rec := serve(t, newTestServer(service), req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestMediaHandler_List(t *testing.T) {
	var gotLimit, gotOffset int
	service := &MockMediaService{
		MockListMedia: func(ctx context.Context, ownerID string, limit, offset int) ([]mediarouter.MediaRecord, error) {
			gotLimit, gotOffset = limit, offset
			return nil, nil
		},
	}

	rec := serve(t, newTestServer(service), ownedRequest(http.MethodGet, "/v1/media?limit=20&offset=40", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 40, gotOffset)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestMediaHandler_URL(t *testing.T) {
	service := &MockMediaService{
		MockGetMedia: getOwned,
		MockGetMediaURL: func(ctx context.Context, objectKey string, providerID mediarouter.ProviderID) (string, error) {
			return "https://cdn.example.com/two/" + objectKey, nil
		},
		MockGetSignedMediaURL: func(ctx context.Context, objectKey string, providerID mediarouter.ProviderID, expiry time.Duration) (string, error) {
			assert.Equal(t, mediarouter.Storage2, providerID)
			assert.Equal(t, 10*time.Minute, expiry)
			return "https://signed.example.com/" + objectKey + "?sig=1", nil
		},
	}
	server := newTestServer(service)

	rec := serve(t, server, ownedRequest(http.MethodGet, "/v1/media/rec-1/url", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"rec-1","url":"https://signed.example.com/user-1/1.jpg?sig=1","signed":true,"expires_in":600}`, rec.Body.String())

	rec = serve(t, server, ownedRequest(http.MethodGet, "/v1/media/rec-1/url?signed=false", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"rec-1","url":"https://cdn.example.com/two/user-1/1.jpg","signed":false}`, rec.Body.String())
}

func TestMediaHandler_Content(t *testing.T) {
	service := &MockMediaService{
		MockGetMedia: getOwned,
		MockFetchObject: func(ctx context.Context, record *mediarouter.MediaRecord) ([]byte, error) {
			return []byte("jpeg-bytes"), nil
		},
	}

	rec := serve(t, newTestServer(service), ownedRequest(http.MethodGet, "/v1/media/rec-1/content", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg-bytes", rec.Body.String())
}

func TestMediaHandler_Update(t *testing.T) {
	service := &MockMediaService{
		MockGetMedia: getOwned,
		MockUpdateDetails: func(ctx context.Context, id, title, description string) (*mediarouter.MediaRecord, error) {
			record := ownedRecord()
			record.Title, record.Description = title, description
			return record, nil
		},
	}
	server := newTestServer(service)

	rec := serve(t, server, ownedRequest(http.MethodPatch, "/v1/media/rec-1", bytes.NewBufferString(`{"title":"New","description":"Desc"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var record mediarouter.MediaRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "New", record.Title)
	assert.Equal(t, "Desc", record.Description)

	rec = serve(t, server, ownedRequest(http.MethodPatch, "/v1/media/rec-1", bytes.NewBufferString(`{"title":"`+strings.Repeat("x", 201)+`"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaHandler_Delete(t *testing.T) {
	tests := []struct {
		name           string
		deleted        bool
		expectedStatus int
	}{
		{name: "should return 204 when deletion succeeds", deleted: true, expectedStatus: http.StatusNoContent},
		{name: "should return 500 when deletion fails", deleted: false, expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got mediarouter.DeleteInput
			service := &MockMediaService{
				MockGetMedia: getOwned,
				MockDeleteMedia: func(ctx context.Context, in mediarouter.DeleteInput) bool {
					got = in
					return tt.deleted
				},
			}

			rec := serve(t, newTestServer(service), ownedRequest(http.MethodDelete, "/v1/media/rec-1", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, mediarouter.DeleteInputFor(ownedRecord()), got)
		})
	}
}

func TestServer_Usage(t *testing.T) {
	service := &MockMediaService{
		MockStorageUsage: func(ctx context.Context) ([]mediarouter.ProviderUsage, error) {
			return []mediarouter.ProviderUsage{{ProviderID: mediarouter.Storage1, Objects: 3, Bytes: 1024}}, nil
		},
	}

	rec := serve(t, newTestServer(service), httptest.NewRequest(http.MethodGet, "/v1/admin/storage-usage", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []mediarouter.ProviderUsage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []mediarouter.ProviderUsage{{ProviderID: mediarouter.Storage1, Objects: 3, Bytes: 1024}}, body.Data)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	server := newTestServer(&MockMediaService{})

	rec := serve(t, server, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, server, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{err: mediarouter.ErrInvalidInput, expected: http.StatusBadRequest},
		{err: &mediarouter.TransformError{Op: "decode", Err: errors.New("eof")}, expected: http.StatusBadRequest},
		{err: mediarouter.ErrNotFound, expected: http.StatusNotFound},
		{err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestServer_HealthReportsStoreFailure(t *testing.T) {
	tests := []struct {
		name           string
		pingErr        error
		expectedStatus int
		expectedBody   string
	}{
		{name: "should be healthy when the store answers", expectedStatus: http.StatusOK, expectedBody: `{"status":"healthy"}`},
		{name: "should be unavailable when the store does not answer", pingErr: errors.New("connection refused"), expectedStatus: http.StatusServiceUnavailable, expectedBody: `{"status":"unhealthy"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pinged bool
			server := New(Config{Ping: func(ctx context.Context) error {
				pinged = true
				return tt.pingErr
			}}, &MockMediaService{}, zerolog.Nop()).Handler()

			rec := serve(t, server, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.True(t, pinged)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
		})
	}
}
