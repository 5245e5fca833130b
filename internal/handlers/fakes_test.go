package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/models"
	"github.com/nkiryanov/studyplanner/internal/repository"
	"github.com/nkiryanov/studyplanner/internal/service/task"
	"github.com/nkiryanov/studyplanner/internal/service/user"
)

const (
	goodToken  = "good-token"
	testUserID = int64(7)
)

// Auth service that trusts only goodToken
type fakeAuth struct {
	login       func(email, password string) (models.Session, error)
	googleLogin func(email string) (models.Session, error)
	logout      func(token string) error
}

func (f *fakeAuth) Login(_ context.Context, email string, password string) (models.Session, error) {
	return f.login(email, password)
}

func (f *fakeAuth) LoginWithGoogle(_ context.Context, email string) (models.Session, error) {
	return f.googleLogin(email)
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	return f.logout(token)
}

func (f *fakeAuth) Authenticate(_ context.Context, header string) (models.Identity, error) {
	if header != "Bearer "+goodToken {
		return models.Identity{}, apperrors.ErrUnauthenticated
	}
	return models.Identity{UserID: testUserID, Email: "a@x.com", FullName: "Alice", TokenID: "jti"}, nil
}

type googleFunc func(accessToken string) (models.GoogleProfile, error)

func (f googleFunc) UserInfo(_ context.Context, accessToken string) (models.GoogleProfile, error) {
	return f(accessToken)
}

// Fakes panic on calls not set up by test
type fakeUsers struct {
	create       func(p user.CreateParams) (models.User, error)
	createGoogle func(p models.GoogleProfile) (models.User, error)
	activate     func(token string) (models.User, error)
	get          func(userID int64) (models.User, error)
	update       func(userID int64, p user.UpdateParams) (models.User, error)
	delete       func(userID int64) error
	uploadAvatar func(userID int64, filename, contentType string, body []byte) (models.User, error)
}

func (f *fakeUsers) Create(_ context.Context, p user.CreateParams) (models.User, error) {
	return f.create(p)
}

func (f *fakeUsers) CreateGoogleAccount(_ context.Context, p models.GoogleProfile) (models.User, error) {
	return f.createGoogle(p)
}

func (f *fakeUsers) Activate(_ context.Context, token string) (models.User, error) {
	return f.activate(token)
}

func (f *fakeUsers) Get(_ context.Context, userID int64) (models.User, error) {
	return f.get(userID)
}

func (f *fakeUsers) Update(_ context.Context, userID int64, p user.UpdateParams) (models.User, error) {
	return f.update(userID, p)
}

func (f *fakeUsers) Delete(_ context.Context, userID int64) error {
	return f.delete(userID)
}

func (f *fakeUsers) UploadAvatar(_ context.Context, userID int64, filename string, contentType string, r io.Reader) (models.User, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return models.User{}, err
	}
	return f.uploadAvatar(userID, filename, contentType, body)
}

type fakeTasks struct {
	create      func(userID int64, p task.CreateParams) (models.Task, error)
	get         func(userID, taskID int64) (models.Task, error)
	update      func(userID, taskID int64, p repository.UpdateTaskParams) (models.Task, error)
	delete      func(userID, taskID int64) error
	recent      func(userID int64) (models.TaskPage, error)
	thisMonth   func(userID int64, page int) (models.TaskPage, error)
	otherMonths func(userID int64, page int) (models.TaskPage, error)
	taskRange   func(userID int64, from, to time.Time) (models.TaskPage, error)
	analyze     func(userID int64) (string, error)
}

func (f *fakeTasks) Create(_ context.Context, userID int64, p task.CreateParams) (models.Task, error) {
	return f.create(userID, p)
}

func (f *fakeTasks) Get(_ context.Context, userID int64, taskID int64) (models.Task, error) {
	return f.get(userID, taskID)
}

func (f *fakeTasks) Update(_ context.Context, userID int64, taskID int64, p repository.UpdateTaskParams) (models.Task, error) {
	return f.update(userID, taskID, p)
}

func (f *fakeTasks) Delete(_ context.Context, userID int64, taskID int64) error {
	return f.delete(userID, taskID)
}

func (f *fakeTasks) Recent(_ context.Context, userID int64) (models.TaskPage, error) {
	return f.recent(userID)
}

func (f *fakeTasks) ThisMonth(_ context.Context, userID int64, page int) (models.TaskPage, error) {
	return f.thisMonth(userID, page)
}

func (f *fakeTasks) OtherMonths(_ context.Context, userID int64, page int) (models.TaskPage, error) {
	return f.otherMonths(userID, page)
}

func (f *fakeTasks) Range(_ context.Context, userID int64, from time.Time, to time.Time) (models.TaskPage, error) {
	return f.taskRange(userID, from, to)
}

func (f *fakeTasks) AnalyzeSchedule(_ context.Context, userID int64) (string, error) {
	return f.analyze(userID)
}

type fakeFocus struct {
	create   func(userID, taskID int64, status models.FocusStatus) (models.FocusSession, error)
	update   func(userID, taskID, seconds int64, status models.FocusStatus) (models.FocusSession, error)
	get      func(userID, sessionID int64) (models.FocusSession, error)
	summary  func(userID int64, year int) ([]models.FocusSummary, error)
	feedback func(userID int64, year int) (string, error)
}

func (f *fakeFocus) Create(_ context.Context, userID int64, taskID int64, status models.FocusStatus) (models.FocusSession, error) {
	return f.create(userID, taskID, status)
}

func (f *fakeFocus) Update(_ context.Context, userID int64, taskID int64, seconds int64, status models.FocusStatus) (models.FocusSession, error) {
	return f.update(userID, taskID, seconds, status)
}

func (f *fakeFocus) Get(_ context.Context, userID int64, sessionID int64) (models.FocusSession, error) {
	return f.get(userID, sessionID)
}

func (f *fakeFocus) Summary(_ context.Context, userID int64, year int) ([]models.FocusSummary, error) {
	return f.summary(userID, year)
}

func (f *fakeFocus) Feedback(_ context.Context, userID int64, year int) (string, error) {
	return f.feedback(userID, year)
}

// Router with fake services. Unset services are replaced with empty fakes
func newTestRouter(s Services) http.Handler {
	if s.Auth == nil {
		s.Auth = &fakeAuth{}
	}
	if s.Users == nil {
		s.Users = &fakeUsers{}
	}
	if s.Tasks == nil {
		s.Tasks = &fakeTasks{}
	}
	if s.Focus == nil {
		s.Focus = &fakeFocus{}
	}
	return NewRouter(s, Config{})
}

type testResponse struct {
	status int
	header http.Header
	body   string
}

// Serve request. Authorized with goodToken if auth is true
func serve(t *testing.T, h http.Handler, method string, path string, body string, auth bool) testResponse {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if auth {
		r.Header.Set("Authorization", "Bearer "+goodToken)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	res := w.Result()
	defer res.Body.Close() // nolint:errcheck
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return testResponse{status: res.StatusCode, header: res.Header, body: string(data)}
}
