package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/electivepro/internal/app/controllers"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/middleware"
)

// Controllers groups every HTTP handler set
type Controllers struct {
	Auth        *controllers.AuthController
	Plan        *controllers.PlanController
	Institution *controllers.InstitutionController
	User        *controllers.UserController
	Course      *controllers.CourseController
	University  *controllers.UniversityController
	Pack        *controllers.OfferingController
	Program     *controllers.OfferingController
	Dashboard   *controllers.DashboardController
	Health      *controllers.HealthController
}

// Middlewares groups the middleware the routes are guarded by
type Middlewares struct {
	Auth       *middleware.AuthMiddleware
	Tenant     *middleware.TenantMiddleware
	LoginLimit gin.HandlerFunc
}

var (
	staffRoles = []models.RoleType{models.RoleAdmin, models.RoleProgramManager}
	adminRoles = []models.RoleType{models.RoleAdmin}
)

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, m Middlewares) {
	v1 := router.Group("/api/v1")

	v1.GET("/health", c.Health.Health)

	// --- Public auth routes, valid on tenant and admin hosts ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", m.LoginLimit, c.Auth.Login)
		auth.POST("/refresh", c.Auth.RefreshToken)
		auth.POST("/logout", c.Auth.Logout)
	}

	authenticated := v1.Group("/auth")
	authenticated.Use(m.Auth.JWTAuth())
	{
		authenticated.GET("/me", c.Auth.Me)
		authenticated.GET("/landing", c.Auth.Landing)
		authenticated.PUT("/password", c.Auth.ChangePassword)
	}

	// --- Platform administration, admin host only ---
	admin := v1.Group("/admin")
	admin.Use(m.Tenant.AdminHostRequired(), m.Auth.JWTAuth(), m.Auth.SuperAdminOnly())
	{
		plans := admin.Group("/plans")
		{
			plans.POST("", c.Plan.Create)
			plans.GET("", c.Plan.List)
			plans.GET("/:id", c.Plan.Get)
			plans.PUT("/:id", c.Plan.Update)
			plans.DELETE("/:id", c.Plan.Delete)
		}

		institutions := admin.Group("/institutions")
		{
			institutions.POST("", c.Institution.Create)
			institutions.GET("", c.Institution.List)
			institutions.GET("/:id", c.Institution.Get)
			institutions.PUT("/:id", c.Institution.Update)
			institutions.PATCH("/:id/status", c.Institution.SetActive)
			institutions.PUT("/:id/plan", c.Institution.AssignPlan)
			institutions.GET("/:id/usage", c.Institution.Usage)
			institutions.DELETE("/:id", c.Institution.Delete)
		}
	}

	// --- Tenant routes ---
	v1.GET("/institution", m.Tenant.TenantRequired(), c.Institution.Branding)

	tenant := v1.Group("")
	tenant.Use(m.Tenant.TenantRequired(), m.Auth.JWTAuth(), m.Auth.TenantMatch())

	adminOnly := tenant.Group("")
	adminOnly.Use(m.Auth.RoleRequired(adminRoles...))
	{
		adminOnly.PUT("/institution/branding", c.Institution.UpdateBranding)
		adminOnly.POST("/institution/logo", c.Institution.UploadLogo)
		adminOnly.GET("/institution/usage", c.Institution.CurrentUsage)

		users := adminOnly.Group("/users")
		{
			users.POST("", c.User.Create)
			users.GET("", c.User.List)
			users.POST("/import", c.User.ImportStudents)
			users.GET("/:id", c.User.Get)
			users.PUT("/:id", c.User.Update)
			users.PATCH("/:id/status", c.User.SetActive)
		}
	}

	staff := tenant.Group("")
	staff.Use(m.Auth.RoleRequired(staffRoles...))
	{
		staff.GET("/dashboard", c.Dashboard.Stats)

		courses := staff.Group("/courses")
		{
			courses.POST("", c.Course.Create)
			courses.GET("", c.Course.List)
			courses.GET("/:id", c.Course.Get)
			courses.PUT("/:id", c.Course.Update)
			courses.PATCH("/:id/status", c.Course.SetStatus)
			courses.DELETE("/:id", c.Course.Delete)
		}

		universities := staff.Group("/universities")
		{
			universities.POST("", c.University.Create)
			universities.GET("", c.University.List)
			universities.GET("/:id", c.University.Get)
			universities.PUT("/:id", c.University.Update)
			universities.PATCH("/:id/status", c.University.SetStatus)
			universities.DELETE("/:id", c.University.Delete)
		}

		offeringRoutes(staff.Group("/packs"), c.Pack)
		offeringRoutes(staff.Group("/programs"), c.Program)
	}

	student := tenant.Group("/student")
	student.Use(m.Auth.StudentOnly())
	{
		studentOfferingRoutes(student.Group("/packs"), c.Pack)
		studentOfferingRoutes(student.Group("/programs"), c.Program)
	}
}

// offeringRoutes registers the staff endpoints shared by packs and programs
func offeringRoutes(g *gin.RouterGroup, ctrl *controllers.OfferingController) {
	g.POST("", ctrl.Create)
	g.GET("", ctrl.List)
	g.GET("/:id", ctrl.Get)
	g.PUT("/:id", ctrl.Update)
	g.PUT("/:id/options", ctrl.SetOptions)
	g.PATCH("/:id/status", ctrl.ChangeStatus)
	g.DELETE("/:id", ctrl.Delete)
	g.GET("/:id/selections", ctrl.Selections)
	g.GET("/:id/selections/export", ctrl.Export)
	g.PATCH("/selections/:selectionId", ctrl.Review)
}

// studentOfferingRoutes registers the student endpoints shared by packs and programs
func studentOfferingRoutes(g *gin.RouterGroup, ctrl *controllers.OfferingController) {
	g.GET("", ctrl.StudentList)
	g.GET("/selections", ctrl.MySelections)
	g.GET("/:id", ctrl.StudentGet)
	g.PUT("/:id/selection", ctrl.Submit)
	g.DELETE("/:id/selection", ctrl.Withdraw)
}
