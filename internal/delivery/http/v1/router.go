package v1

import (
	"autopost-backend/config"
	"autopost-backend/internal/delivery/http/middleware"
	"autopost-backend/internal/domain"
	"autopost-backend/internal/usecase"
	"autopost-backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	OnboardingUC domain.OnboardingUsecase
	IntakeUC     domain.IntakeUsecase
	CredentialUC domain.CredentialUsecase
	AdminUC      domain.AdminUsecase
	UploadUC     domain.UploadUsecase
	HealthUC     usecase.HealthUsecase
	Authorizer   domain.Authorizer
	Verifier     *middleware.TokenVerifier
	Audit        *security.SecurityLogger
	Config       *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	r := gin.New()

	// Global Middlewares
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware(cfg.IsProduction()))
	r.Use(middleware.ErrorHandler())

	limits := middleware.NewRateLimits(cfg, deps.Audit)

	v1 := r.Group("/v1")
	v1.Use(middleware.CORSMiddleware(allowedOrigins(cfg), cfg.IsProduction()))
	v1.Use(limits.Middleware(limits.Global))

	NewHealthHandler(v1, deps.HealthUC)

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public forms
	forms := v1.Group("")
	forms.Use(limits.Middleware(limits.Forms))

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Verifier))
	{
		NewOnboardingHandler(protected, deps.OnboardingUC)
		NewIntakeHandler(forms, protected, deps.IntakeUC)
		NewCredentialHandler(protected, deps.CredentialUC, limits.Middleware(limits.Credentials))

		admin := protected.Group("/admin")
		admin.Use(middleware.AdminGuard(deps.Authorizer, deps.Audit))
		NewAdminHandler(admin, deps.AdminUC)
	}

	// Edge functions called straight from the browser with the anon key
	functions := r.Group("/functions/v1")
	functions.Use(middleware.FunctionsCORS())
	functions.Use(middleware.OptionalAuth(deps.Verifier))
	NewUploadHandler(functions, deps.UploadUC, cfg.MaxUploadBytes)

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	origins := append([]string{}, cfg.CORSOrigins...)
	for _, o := range []string{cfg.FrontendURL, cfg.SiteURL} {
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
