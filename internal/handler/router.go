package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/chainlearn/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionGate       *middleware.SessionGate
	RateLimiter       *middleware.RateLimiter
	RequestRecorder   middleware.RequestRecorder
	CORSAllowedOrigin string

	// セッション解決
	Sessions *Sessions

	// 認可
	AdminAuthorizer AdminAuthorizer

	// サービス
	AuthClient           AuthClientInterface
	CourseService        CourseServiceInterface
	LessonService        LessonServiceInterface
	AdminOpsService      AdminOpsServiceInterface
	ProgressService      ProgressServiceInterface
	QuestionLister       QuestionListerInterface
	QuestionAdminService QuestionAdminServiceInterface

	// デザインギャラリー
	DesignHandler *DesignHandler

	// 運用系
	HealthHandler  *HealthHandler
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SecurityHeaders → SessionGate
//
// セッションゲートは助言的であり、リクエストを拒否するのはパスワード
// リセット画面のリダイレクトのみ。認可はハンドラー側で行う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.RequestRecorder))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(deps.SessionGate.Middleware())

	authHandler := NewAuthHandler(deps.AuthClient, deps.Sessions.cookies)
	adminAuthHandler := NewAdminAuthHandler(deps.Sessions, deps.AdminAuthorizer)
	courseHandler := NewCourseHandler(deps.Sessions, deps.AdminAuthorizer, deps.CourseService)
	adminLessonsHandler := NewAdminLessonsHandler(deps.Sessions, deps.AdminAuthorizer, deps.LessonService)
	adminQuestionsHandler := NewAdminQuestionsHandler(deps.Sessions, deps.AdminAuthorizer, deps.QuestionAdminService)
	adminUsersHandler := NewAdminUsersHandler(deps.Sessions, deps.AdminAuthorizer, deps.AdminOpsService)
	progressHandler := NewProgressHandler(deps.Sessions, deps.ProgressService)
	questionHandler := NewQuestionHandler(deps.QuestionLister)

	// --- 運用系エンドポイント（セッションゲートの対象外） ---
	r.Get("/health", deps.HealthHandler.Check)
	r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)

	// --- 認証フロー ---
	r.Get("/auth/callback", authHandler.Callback)
	r.Post("/api/auth/force-logout", authHandler.ForceLogout)

	// --- 公開エンドポイント ---
	r.Get("/api/designs", deps.DesignHandler.ListDesigns)
	r.Post("/api/designs", deps.DesignHandler.SaveDesign)
	r.Delete("/api/designs/{id}", deps.DesignHandler.DeleteDesign)
	r.Get("/api/practice-questions", questionHandler.ListQuestions)

	// --- セッションが必要なエンドポイント ---
	r.Get("/api/progress", progressHandler.LoadProgress)
	r.Put("/api/progress", progressHandler.SyncProgress)

	// --- 管理API ---
	r.Route("/api/admin", func(r chi.Router) {
		// 管理者判定は専用の厳しいレート制限を課す
		r.With(deps.RateLimiter.AdminAuthMiddleware()).Get("/auth", adminAuthHandler.CheckAuth)
		r.With(deps.RateLimiter.AdminAuthMiddleware()).Post("/auth", adminAuthHandler.VerifyAdmin)

		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AdminMiddleware())

			// コース一覧は一般画面からも参照されるため認証不要
			r.Get("/courses", courseHandler.ListCourses)
			r.Post("/courses", courseHandler.CreateCourse)

			r.Get("/lessons", adminLessonsHandler.ListLessons)
			r.Post("/lessons", adminLessonsHandler.CreateLesson)
			r.Get("/lessons/{lessonId}", adminLessonsHandler.GetLesson)
			r.Put("/lessons/{lessonId}", adminLessonsHandler.UpdateLesson)
			r.Delete("/lessons/{lessonId}", adminLessonsHandler.DeleteLesson)

			r.Get("/practice-questions", adminQuestionsHandler.ListQuestions)
			r.Post("/practice-questions", adminQuestionsHandler.CreateQuestion)
			r.Get("/practice-questions/export", adminQuestionsHandler.ExportQuestions)
			r.Post("/practice-questions/import", adminQuestionsHandler.ImportQuestions)
			r.Get("/practice-questions/{id}", adminQuestionsHandler.GetQuestion)
			r.Put("/practice-questions/{id}", adminQuestionsHandler.UpdateQuestion)
			r.Delete("/practice-questions/{id}", adminQuestionsHandler.DeleteQuestion)

			r.Get("/users", adminUsersHandler.ListUsers)
			r.Post("/users/{userId}/reset-password", adminUsersHandler.ResetPassword)
			r.Post("/users/{userId}/reset-progress", adminUsersHandler.ResetProgress)
		})
	})

	return r
}
