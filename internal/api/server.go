package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/dropspot/dropspot-api/docs"
	v1 "github.com/dropspot/dropspot-api/internal/api/handler/v1"
	"github.com/dropspot/dropspot-api/internal/api/middleware"
	"github.com/dropspot/dropspot-api/internal/config"
	"github.com/dropspot/dropspot-api/internal/pkg/clock"
	"github.com/dropspot/dropspot-api/internal/pkg/redeemcode"
	"github.com/dropspot/dropspot-api/internal/repository"
	"github.com/dropspot/dropspot-api/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

type handlers struct {
	auth     *v1.AuthHandler
	drop     *v1.DropHandler
	waitlist *v1.WaitlistHandler
	claim    *v1.ClaimHandler
	admin    *v1.AdminHandler
}

func NewServer(conf *config.AppConfig, daos repository.DAOs) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()
	s.MountHandlers(s.initHandlers(daos))

	return s
}

func (s *Server) initHandlers(daos repository.DAOs) handlers {
	userRepo := repository.NewUserRepository(daos.Users)
	uSvc := service.NewUserService(userRepo)
	authSvc := service.NewAuthService(userRepo, s.Config.API.AdminEmails)

	dropSvc := service.NewDropService(repository.NewDropRepository(daos.Drops))
	registry := service.NewWaitlistRegistry(repository.NewWaitlistRepository(daos.Waitlist))
	engine := service.NewClaimEngine(
		repository.NewClaimRepository(daos.Claims),
		s.Config.Claim,
		clock.New(),
		redeemcode.New(),
		zap.L(),
	)

	return handlers{
		auth:     v1.NewAuthHandler(s.Config.API, authSvc),
		drop:     v1.NewDropHandler(dropSvc),
		waitlist: v1.NewWaitlistHandler(registry, uSvc),
		claim:    v1.NewClaimHandler(engine, uSvc),
		admin:    v1.NewAdminHandler(dropSvc, uSvc),
	}
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(h handlers) {
	const basePath = "/api/v1"

	verifyJWT := middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT()

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/signup", h.auth.HandleSignup)
		auth.POST("/auth/login", h.auth.HandleLogin)
	}

	public := s.Router.Group(basePath)
	{
		public.GET("/drops", h.drop.HandleListDrops)
		public.GET("/drops/:dropID", h.drop.HandleGetDrop)
	}

	users := s.Router.Group(basePath, verifyJWT)
	{
		users.POST("/drops/:dropID/join", h.waitlist.HandleJoin)
		users.POST("/drops/:dropID/leave", h.waitlist.HandleLeave)
		users.GET("/drops/:dropID/waitlist", h.waitlist.HandleMembership)
		users.POST("/drops/:dropID/claim", h.claim.HandleClaim)
		users.GET("/drops/:dropID/claim", h.claim.HandleGetClaim)
		users.GET("/claims", h.claim.HandleListClaims)
	}

	admin := s.Router.Group(basePath+"/admin", verifyJWT, h.admin.RequireAdmin)
	{
		admin.POST("/drops", h.admin.HandleCreateDrop)
		admin.GET("/drops", h.admin.HandleListDrops)
		admin.PUT("/drops/:dropID", h.admin.HandleUpdateDrop)
		admin.DELETE("/drops/:dropID", h.admin.HandleDeleteDrop)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "DropSpot API"
	docs.SwaggerInfo.Description = "Waitlists and atomic claims for limited-stock drops."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
