// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"citas/config"
	"citas/internal/delivery/api/middleware"
	"citas/internal/delivery/api/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	CompanyHandler  *handler.CompanyHandler
	AccessHandler   *handler.AccessHandler
	WizardHandler   *handler.WizardHandler
	AdminHandler    *handler.AdminHandler
	AuthMiddleware  *middleware.AuthMiddleware
	ScopeMiddleware *middleware.ClientScopeMiddleware
	Config          *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	companyHandler  *handler.CompanyHandler
	accessHandler   *handler.AccessHandler
	wizardHandler   *handler.WizardHandler
	adminHandler    *handler.AdminHandler
	authMiddleware  *middleware.AuthMiddleware
	scopeMiddleware *middleware.ClientScopeMiddleware
	config          *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		companyHandler:  params.CompanyHandler,
		accessHandler:   params.AccessHandler,
		wizardHandler:   params.WizardHandler,
		adminHandler:    params.AdminHandler,
		authMiddleware:  params.AuthMiddleware,
		scopeMiddleware: params.ScopeMiddleware,
		config:          params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	apiV1 := e.Group("/api/v1")

	// Stateless input helper, no client scope needed
	apiV1.POST("/access/codes/normalize", r.accessHandler.NormalizeCode)

	// Everything below runs inside the caller's client scope
	client := apiV1.Group("")
	client.Use(r.scopeMiddleware.Process)

	companies := client.Group("/companies")
	{
		companies.POST("/verify", r.companyHandler.Verify)
		companies.GET("/current", r.companyHandler.Current)
		companies.GET("/access", r.companyHandler.Access)
	}

	access := client.Group("/access")
	{
		access.POST("/sessions", r.accessHandler.StartSession)
		access.POST("/recover", r.accessHandler.RecoverSession)
		access.GET("/session", r.accessHandler.GetSession)
		access.PUT("/session/step", r.accessHandler.UpdateStep)
		access.DELETE("/session", r.accessHandler.Logout)
		access.GET("/session/qr", r.accessHandler.SessionQR)
	}

	wizard := client.Group("/exam/wizard")
	wizard.Use(r.scopeMiddleware.RequireExamAccess)
	{
		wizard.GET("", r.wizardHandler.View)
		wizard.PUT("/receipt", r.wizardHandler.SetReceipt)
		wizard.POST("/persons", r.wizardHandler.AddPerson)
		wizard.POST("/persons/lookup", r.wizardHandler.LookupPerson)
		wizard.PUT("/persons/:id/contact", r.wizardHandler.UpdatePersonContact)
		wizard.DELETE("/persons/:id", r.wizardHandler.RemovePerson)
		wizard.PUT("/persons/:id/documents/:side", r.wizardHandler.AttachDocument)
		wizard.DELETE("/persons/:id/documents/:side", r.wizardHandler.DetachDocument)
		wizard.POST("/advance", r.wizardHandler.Advance)
		wizard.POST("/finalize", r.wizardHandler.Finalize)
	}

	admin := apiV1.Group("/admin")
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(r.authMiddleware.RequireRole(r.config.Admin.Role))
	{
		admin.GET("/exams", r.adminHandler.ListRequests)
		admin.GET("/exams/:id", r.adminHandler.GetRequest)
		admin.POST("/exams/:id/review", r.adminHandler.Review)
		admin.POST("/exams/:id/appointment", r.adminHandler.Schedule)
	}
}
