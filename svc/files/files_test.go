package files_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/pkg/storage"
	"github.com/dmitrymomot/authstarter/svc/auth"
	"github.com/dmitrymomot/authstarter/svc/files"
)

const testUserID = "5b0c7a52-0f5e-4c4e-9a57-6c1f3a2d9e10"

type mockPresigner struct {
	mock.Mock
}

func (m *mockPresigner) GenerateUploadURLs(ctx context.Context, reqs []storage.UploadRequest) (map[string]string, error) {
	args := m.Called(ctx, reqs)
	if v := args.Get(0); v != nil {
		return v.(map[string]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPresigner) PreviewURL(ctx context.Context, owner, id string) (string, error) {
	args := m.Called(ctx, owner, id)
	return args.String(0), args.Error(1)
}

var testLimits = files.Config{MaxFileCount: 2, MaxFileSize: 1000, Accept: []string{"image/*", "application/pdf"}}.Limits()

func post(t *testing.T, svc *files.Service, body string) (*httptest.ResponseRecorder, handler.Envelope) {
	t.Helper()
	return postAs(t, svc, &identity.User{ID: testUserID}, body)
}

func postAs(t *testing.T, svc *files.Service, user *identity.User, body string) (*httptest.ResponseRecorder, handler.Envelope) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/uploads", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if user != nil {
		r = r.WithContext(auth.SetUserToContext(r.Context(), user))
	}
	w := httptest.NewRecorder()
	svc.Handle().ServeHTTP(w, r)

	var env handler.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestCreateUploads(t *testing.T) {
	t.Parallel()

	t.Run("presigns every file and previews images", func(t *testing.T) {
		t.Parallel()
		store := &mockPresigner{}
		store.On("GenerateUploadURLs", mock.Anything, []storage.UploadRequest{
			{Owner: testUserID, ID: "avatar.png", MIMEType: "image/png"},
			{Owner: testUserID, ID: "cv.pdf", MIMEType: "application/pdf"},
		}).Return(map[string]string{
			"avatar.png": "https://s3.example.com/uploads/avatar.png?X-Amz-Signature=a",
			"cv.pdf":     "https://s3.example.com/uploads/cv.pdf?X-Amz-Signature=b",
		}, nil).Once()
		store.On("PreviewURL", mock.Anything, testUserID, "avatar.png").
			Return("https://s3.example.com/uploads/avatar.png?X-Amz-Signature=c", nil).Once()

		w, _ := post(t, files.NewService(store, testLimits), `{"files":[
			{"id":"avatar.png","name":"me.png","size":120,"mimeType":"image/png"},
			{"id":"cv.pdf","name":"cv.pdf","size":800,"mimeType":"application/pdf"}
		]}`)
		require.Equal(t, http.StatusOK, w.Code)

		var got struct {
			Data files.UploadResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got.Data.URLs, 2)
		require.Len(t, got.Data.Uploads, 2)
		assert.Equal(t, "https://s3.example.com/uploads/avatar.png?X-Amz-Signature=c", got.Data.Uploads[0].PreviewURL)
		assert.Empty(t, got.Data.Uploads[1].PreviewURL)
		assert.Equal(t, got.Data.URLs["cv.pdf"], got.Data.Uploads[1].UploadURL)
		assert.Zero(t, got.Data.Uploads[0].Progress)
		store.AssertExpectations(t)
	})

	t.Run("assigns ids to anonymous files", func(t *testing.T) {
		t.Parallel()
		store := &mockPresigner{}
		store.On("GenerateUploadURLs", mock.Anything, mock.MatchedBy(func(reqs []storage.UploadRequest) bool {
			return len(reqs) == 1 && len(reqs[0].ID) == 36
		})).Return(map[string]string{}, nil).Once()

		w, _ := post(t, files.NewService(store, testLimits), `{"files":[{"name":"a.pdf","size":10,"mimeType":"application/pdf"}]}`)
		assert.Equal(t, http.StatusOK, w.Code)
		store.AssertExpectations(t)
	})

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"no files", `{"files":[]}`, "Select at least one file"},
		{"too many files", `{"files":[
			{"name":"a.png","size":1,"mimeType":"image/png"},
			{"name":"b.png","size":1,"mimeType":"image/png"},
			{"name":"c.png","size":1,"mimeType":"image/png"}]}`, "You can only upload 2 files at a time"},
		{"too large", `{"files":[{"name":"big.png","size":5000,"mimeType":"image/png"}]}`, "File big.png is larger than 1.0 kB"},
		{"wrong type", `{"files":[{"name":"x.exe","size":10,"mimeType":"application/x-msdownload"}]}`, "File x.exe has an unsupported type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &mockPresigner{}
			w, env := post(t, files.NewService(store, testLimits), tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.message, env.Error.Message)
			store.AssertNotCalled(t, "GenerateUploadURLs", mock.Anything, mock.Anything)
		})
	}

	t.Run("invalid object id", func(t *testing.T) {
		t.Parallel()
		store := &mockPresigner{}
		store.On("GenerateUploadURLs", mock.Anything, mock.Anything).
			Return(nil, errors.Join(storage.ErrInvalidObjectID, errors.New(`"../etc"`))).Once()

		w, env := post(t, files.NewService(store, testLimits), `{"files":[{"id":"../etc","name":"a.png","size":1,"mimeType":"image/png"}]}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "validation_error", env.Error.Code)
	})

	t.Run("storage failure is hidden", func(t *testing.T) {
		t.Parallel()
		store := &mockPresigner{}
		store.On("GenerateUploadURLs", mock.Anything, mock.Anything).
			Return(nil, storage.ErrAccessDenied).Once()

		w, env := post(t, files.NewService(store, testLimits), `{"files":[{"name":"a.png","size":1,"mimeType":"image/png"}]}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotNil(t, env.Error)
		assert.NotContains(t, env.Error.Message, "access denied")
	})

	t.Run("users share ids but not objects", func(t *testing.T) {
		t.Parallel()
		var owners []string
		store := &mockPresigner{}
		store.On("GenerateUploadURLs", mock.Anything, mock.MatchedBy(func(reqs []storage.UploadRequest) bool {
			return len(reqs) == 1 && reqs[0].ID == "report.pdf"
		})).Run(func(args mock.Arguments) {
			owners = append(owners, args.Get(1).([]storage.UploadRequest)[0].Owner)
		}).Return(map[string]string{"report.pdf": "u"}, nil).Twice()

		svc := files.NewService(store, testLimits)
		body := `{"files":[{"id":"report.pdf","name":"report.pdf","size":10,"mimeType":"application/pdf"}]}`
		for _, id := range []string{"user-a", "user-b"} {
			w, _ := postAs(t, svc, &identity.User{ID: id}, body)
			require.Equal(t, http.StatusOK, w.Code)
		}
		assert.Equal(t, []string{"user-a", "user-b"}, owners)
		store.AssertExpectations(t)
	})

	t.Run("requires a user", func(t *testing.T) {
		t.Parallel()
		store := &mockPresigner{}
		w, env := postAs(t, files.NewService(store, testLimits), nil, `{"files":[{"name":"a.pdf","size":10,"mimeType":"application/pdf"}]}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "unauthorized", env.Error.Code)
		store.AssertNotCalled(t, "GenerateUploadURLs", mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		w, env := post(t, files.NewService(&mockPresigner{}, testLimits), `{"files":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "bad_request", env.Error.Code)
	})
}
