package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"briefapi/internal/http/middleware"
	"briefapi/internal/ingest"
	"briefapi/internal/model"
	"briefapi/internal/service"
	serviceMocks "briefapi/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListMedia(t *testing.T) {
	mockSvc := new(serviceMocks.MockMediaService)
	app := fiber.New()
	app.Get("/media", ListMedia(mockSvc))

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.MediaListResult{
			Items: []model.Media{{ID: uuid.New().String(), OriginalName: "cover.jpg"}},
			Total: 1,
		}
		mockSvc.On("List", mock.Anything, 10, 0).Return(expectedRes, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/media?limit=10&offset=0", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.MediaListResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, "cover.jpg", result.Items[0].OriginalName)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_LIMIT", body.Error.Code)
	})

	t.Run("invalid offset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media?offset=-x", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_OFFSET", body.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, 10, 0).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/media", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadMedia(t *testing.T) {
	mockSvc := new(serviceMocks.MockMediaService)
	app := fiber.New()
	app.Use(middleware.RequestID())
	app.Post("/media", UploadMedia(mockSvc))

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, "cover.jpg", "image/jpeg", []byte("jpeg bytes"))

		expected := &model.Media{ID: uuid.New().String(), OriginalName: "cover.jpg", MimeType: "image/jpeg", SizeBytes: 10}
		mockSvc.On("UploadMedia", mock.Anything, mock.MatchedBy(func(req ingest.UploadRequest) bool {
			return req.Filename == "cover.jpg" &&
				req.ContentType == "image/jpeg" &&
				req.Size == 10 &&
				req.OwnerID == "user-42" &&
				req.Body != nil
		})).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/media", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(OwnerHeader, "user-42")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Media
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expected.ID, result.ID)
		assert.Equal(t, "cover.jpg", result.OriginalName)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/media", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
		assert.NotEmpty(t, res.RequestID)
	})

	errorCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation error",
			err:        &ingest.Error{Code: ingest.CodeValidation, Op: "validate", Err: fmt.Errorf("%w: image/tiff", ingest.ErrMimeTypeNotAllowed)},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantMsg:    "mime type not allowed: image/tiff",
		},
		{
			name:       "storage error",
			err:        &ingest.Error{Code: ingest.CodeStorage, Op: "put object", Err: errors.New("dial tcp 10.0.0.5:9000: connection refused")},
			wantStatus: http.StatusBadGateway,
			wantCode:   "STORAGE_ERROR",
			wantMsg:    "object storage is unavailable",
		},
		{
			name:       "persistence error",
			err:        &ingest.Error{Code: ingest.CodePersistence, Op: "insert media record", Err: errors.New("pq: deadlock")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "PERSISTENCE_ERROR",
			wantMsg:    "failed to save media metadata",
		},
		{
			name:       "unclassified error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, "scan.tiff", "image/tiff", []byte("II*"))
			mockSvc.On("UploadMedia", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/media", body)
			req.Header.Set("Content-Type", ct)
			resp, _ := app.Test(req)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var res errorPayload
			json.NewDecoder(resp.Body).Decode(&res)
			assert.Equal(t, tt.wantCode, res.Error.Code)
			assert.Equal(t, tt.wantMsg, res.Error.Message)
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestGetMedia(t *testing.T) {
	mockSvc := new(serviceMocks.MockMediaService)
	app := fiber.New()
	app.Get("/media/:id", GetMedia(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expected := &model.Media{ID: id, OriginalName: "cover.jpg"}
		mockSvc.On("Get", mock.Anything, id).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/media/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Media
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/media/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/invalid-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/media/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteMedia(t *testing.T) {
	mockSvc := new(serviceMocks.MockMediaService)
	app := fiber.New()
	app.Delete("/media/:id", DeleteMedia(mockSvc))

	t.Run("success returns the previous record", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DeleteMedia", mock.Anything, id).Return(&model.Media{ID: id, StorageKey: "k.jpg"}, nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/media/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result model.Media
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		assert.Equal(t, "k.jpg", result.StorageKey)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DeleteMedia", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/media/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DeleteMedia", mock.Anything, id).
			Return(nil, &ingest.Error{Code: ingest.CodeStorage, Op: "delete object", Err: errors.New("down")}).Once()

		req := httptest.NewRequest(http.MethodDelete, "/media/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/media/123", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "briefapi_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	app := fiber.New()
	RegisterMetrics(app, reg)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "briefapi_test_total 1")
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockMediaService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})

	t.Run("health without database", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}
