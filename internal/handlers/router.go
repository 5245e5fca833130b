package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/nkiryanov/studyplanner/internal/handlers/middleware"
	"github.com/nkiryanov/studyplanner/internal/logger"
	"github.com/nkiryanov/studyplanner/internal/models"
	"github.com/nkiryanov/studyplanner/internal/repository"
	"github.com/nkiryanov/studyplanner/internal/service/task"
	"github.com/nkiryanov/studyplanner/internal/service/user"
)

const defaultRequestTimeout = 10 * time.Second

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Services served by the API
type Services struct {
	Auth   authService
	Google googleClient
	Users  userService
	Tasks  taskService
	Focus  focusService
}

type Config struct {
	// NoOp logger if not set
	Logger logger.Logger

	// 10 seconds if not set
	RequestTimeout time.Duration

	// Origins allowed to call the API from browser. '*' allows any
	CORSOrigins []string

	// Optional. Limits login and google endpoints
	RateLimiter *middleware.RateLimiter

	// Optional. Request metrics and their exposition on /metrics
	Metrics        metricsRecorder
	MetricsHandler http.Handler
}

func NewRouter(s Services, cfg Config) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	withAuth := middleware.AuthMiddleware(s.Auth, l)
	limited := func(h http.Handler) http.Handler {
		if cfg.RateLimiter == nil {
			return h
		}
		return cfg.RateLimiter.Middleware(h)
	}

	api := http.NewServeMux()

	api.Handle("POST /auth/login", limited(handleLogin(s.Auth, l)))
	api.Handle("POST /auth/logout", handleLogout(s.Auth, l))
	api.Handle("GET /auth/profile", withAuth(handleProfile()))
	api.Handle("POST /auth/google", limited(handleGoogleLogin(s.Google, s.Auth, l)))
	api.Handle("POST /auth/google/signup", limited(handleGoogleSignup(s.Google, s.Users, l)))

	api.Handle("POST /users", handleCreateUser(s.Users, l))
	api.Handle("GET /users/activate/{token}", handleActivateUser(s.Users, l))
	api.Handle("GET /users", withAuth(handleGetUser(s.Users, l)))
	api.Handle("PUT /users", withAuth(handleUpdateUser(s.Users, l)))
	api.Handle("DELETE /users", withAuth(handleDeleteUser(s.Users, l)))
	api.Handle("POST /users/avatar", withAuth(handleUploadAvatar(s.Users, l)))

	api.Handle("POST /tasks", withAuth(handleCreateTask(s.Tasks, l)))
	api.Handle("GET /tasks/recent", withAuth(handleRecentTasks(s.Tasks, l)))
	api.Handle("GET /tasks/this-month", withAuth(handleThisMonthTasks(s.Tasks, l)))
	api.Handle("GET /tasks/other-months", withAuth(handleOtherMonthsTasks(s.Tasks, l)))
	api.Handle("GET /tasks/range", withAuth(handleRangeTasks(s.Tasks, l)))
	api.Handle("POST /tasks/analyze", withAuth(handleAnalyzeSchedule(s.Tasks, l)))
	api.Handle("GET /tasks/{id}", withAuth(handleGetTask(s.Tasks, l)))
	api.Handle("PUT /tasks/{id}", withAuth(handleUpdateTask(s.Tasks, l)))
	api.Handle("DELETE /tasks/{id}", withAuth(handleDeleteTask(s.Tasks, l)))

	api.Handle("POST /focus-sessions", withAuth(handleCreateFocusSession(s.Focus, l)))
	api.Handle("PUT /focus-sessions", withAuth(handleUpdateFocusSession(s.Focus, l)))
	api.Handle("GET /focus-sessions/{id}", withAuth(handleGetFocusSession(s.Focus, l)))
	api.Handle("GET /focus-sessions/all/{year}", withAuth(handleFocusSummary(s.Focus, l)))
	api.Handle("GET /focus-sessions/feedback/{year}", withAuth(handleFocusFeedback(s.Focus, l)))

	root := http.NewServeMux()
	root.Handle("/api/v1/", http.StripPrefix("/api/v1", api))
	if cfg.MetricsHandler != nil {
		root.Handle("GET /metrics", cfg.MetricsHandler)
	}

	mds := []func(http.Handler) http.Handler{
		middleware.Recover(l),
		middleware.RequestID(l),
		middleware.LoggerMiddleware(l),
	}
	if cfg.Metrics != nil {
		mds = append(mds, middleware.Metrics(cfg.Metrics))
	}
	mds = append(mds,
		middleware.CORS(cfg.CORSOrigins),
		middleware.Timeout(timeout),
	)

	return chain(root, mds...)
}

type metricsRecorder interface {
	RecordRequest(method string, statusCode int, duration time.Duration)
}

type authService interface {
	// Has to return apperrors.ErrInvalidCredentials if email or password is wrong
	// and apperrors.ErrAccountInactive if account not activated yet
	Login(ctx context.Context, email string, password string) (models.Session, error)
	LoginWithGoogle(ctx context.Context, email string) (models.Session, error)

	// Revoke token until it expires
	// Has to return apperrors.ErrLogoutNotGuaranteed if revocation could not be stored
	Logout(ctx context.Context, token string) error

	// Authenticate request by Authorization header value
	Authenticate(ctx context.Context, header string) (models.Identity, error)
}

type googleClient interface {
	// Has to return apperrors.ErrGoogleTokenInvalid if google rejected the token
	UserInfo(ctx context.Context, accessToken string) (models.GoogleProfile, error)
}

type userService interface {
	Create(ctx context.Context, p user.CreateParams) (models.User, error)
	CreateGoogleAccount(ctx context.Context, profile models.GoogleProfile) (models.User, error)
	Activate(ctx context.Context, token string) (models.User, error)
	Get(ctx context.Context, userID int64) (models.User, error)
	Update(ctx context.Context, userID int64, p user.UpdateParams) (models.User, error)
	Delete(ctx context.Context, userID int64) error
	UploadAvatar(ctx context.Context, userID int64, filename string, contentType string, r io.Reader) (models.User, error)
}

type taskService interface {
	Create(ctx context.Context, userID int64, p task.CreateParams) (models.Task, error)
	Get(ctx context.Context, userID int64, taskID int64) (models.Task, error)
	Update(ctx context.Context, userID int64, taskID int64, p repository.UpdateTaskParams) (models.Task, error)
	Delete(ctx context.Context, userID int64, taskID int64) error

	Recent(ctx context.Context, userID int64) (models.TaskPage, error)
	ThisMonth(ctx context.Context, userID int64, page int) (models.TaskPage, error)
	OtherMonths(ctx context.Context, userID int64, page int) (models.TaskPage, error)
	Range(ctx context.Context, userID int64, from time.Time, to time.Time) (models.TaskPage, error)

	AnalyzeSchedule(ctx context.Context, userID int64) (string, error)
}

type focusService interface {
	Create(ctx context.Context, userID int64, taskID int64, status models.FocusStatus) (models.FocusSession, error)
	Update(ctx context.Context, userID int64, taskID int64, seconds int64, status models.FocusStatus) (models.FocusSession, error)
	Get(ctx context.Context, userID int64, sessionID int64) (models.FocusSession, error)
	Summary(ctx context.Context, userID int64, year int) ([]models.FocusSummary, error)
	Feedback(ctx context.Context, userID int64, year int) (string, error)
}
