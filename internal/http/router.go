package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/cookies"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "userhub"

// Deps are the collaborators the router wires into handlers. Prom, Tracing
// and the limiters are optional.
type Deps struct {
	Log         *slog.Logger
	Users       handlers.UserService
	Auth        handlers.Authenticator
	Tokens      middlewares.TokenVerifier
	Ping        func(ctx context.Context) error
	Prom        *observability.Prom
	AuthLimiter *middlewares.RateLimiter
	// WriteLimiter caps admin writes per signed-in user.
	WriteLimiter *middlewares.RateLimiter

	Env            string
	CookieMaxAge   time.Duration
	SecureCookies  bool
	AllowedOrigins []string
	MaxBodyBytes   int64
	Tracing        bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" && d.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	if d.Tracing {
		r.Use(otelgin.Middleware(serviceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(d.SecureCookies))
	r.Use(middlewares.CORSMiddleware(d.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.ErrorHandler(d.Log))

	// health
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	am := middlewares.NewAuthMiddleware(d.Tokens)
	api := r.Group("/api")

	// auth
	authHandler := handlers.NewAuthHandler(d.Auth, cookies.NewJar(d.CookieMaxAge, d.SecureCookies))
	authGroup := api.Group("/auth")
	if d.AuthLimiter != nil {
		authGroup.Use(d.AuthLimiter.Middleware(middlewares.KeyByIP))
	}
	authGroup.POST("/sign-up", authHandler.SignUp)
	authGroup.POST("/sign-in", authHandler.SignIn)
	authGroup.POST("/sign-out", authHandler.SignOut)

	// users: any signed-in caller may read, only admins may write
	usersHandler := handlers.NewUsersHandler(d.Users)
	users := api.Group("/users", am.RequireAuth())
	users.GET("", usersHandler.ListUsers)
	users.GET("/:id", usersHandler.GetUser)

	admin := users.Group("", am.RequireRole(user.RoleAdmin))
	if d.WriteLimiter != nil {
		admin.Use(d.WriteLimiter.Middleware(middlewares.KeyByUserOrIP))
	}
	admin.PUT("/:id", usersHandler.UpdateUser)
	admin.PATCH("/:id", usersHandler.UpdateUser)
	admin.DELETE("/:id", usersHandler.DeleteUser)

	return r
}
