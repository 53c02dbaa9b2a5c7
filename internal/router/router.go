package router

import (
	"github.com/gin-gonic/gin"

	"github.com/learnsphere/academy-api/internal/handler"
	"github.com/learnsphere/academy-api/internal/middleware"
	"github.com/learnsphere/academy-api/internal/models"
	"github.com/learnsphere/academy-api/internal/repository"
	"github.com/learnsphere/academy-api/internal/service"
)

// Handlers aggregates every HTTP handler the API mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Courses    *handler.CourseHandler
	Batches    *handler.BatchHandler
	Enrollment *handler.EnrollmentHandler
	Invoices   *handler.InvoiceHandler
	Promos     *handler.PromoHandler
	Blog       *handler.BlogHandler
	Reviews    *handler.ReviewHandler
	Newsletter *handler.NewsletterHandler
	Contact    *handler.ContactHandler
	SEO        *handler.SEOHandler
	Dashboard  *handler.DashboardHandler
	Exports    *handler.ExportHandler
	Metrics    *handler.MetricsHandler
}

// Register mounts all API routes under the given prefix. Admin mutation
// groups get request-level audit entries on top of the field-level ones
// the services write.
func Register(r *gin.Engine, prefix string, auth *service.AuthService, audit *repository.AuditRepository, h Handlers) {
	admin := string(models.RoleAdmin)
	mentor := string(models.RoleMentor)
	student := string(models.RoleStudent)
	marketing := string(models.RoleMarketing)
	support := string(models.RoleSupport)

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	// Authentication.
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", middleware.JWT(auth), h.Auth.Logout)
		authGroup.POST("/change-password", middleware.JWT(auth), h.Auth.ChangePassword)
		authGroup.GET("/me", middleware.JWT(auth), h.Auth.Me)
	}

	// Public catalog.
	api.GET("/courses", middleware.OptionalJWT(auth), h.Courses.List)
	api.GET("/courses/slug/:slug", h.Courses.GetBySlug)
	api.GET("/courses/:id", middleware.OptionalJWT(auth), h.Courses.Get)
	api.GET("/courses/:id/rating", h.Reviews.CourseRating)
	api.GET("/batches", h.Batches.List)
	api.GET("/batches/:id", h.Batches.Get)
	api.GET("/mentors", h.Users.ListMentors)

	// Catalog administration.
	catalogAdmin := api.Group("", middleware.JWT(auth), middleware.RBAC(admin, marketing),
		middleware.Audit(audit, models.AuditActionAdminMutation, "catalog"))
	{
		catalogAdmin.POST("/courses", h.Courses.Create)
		catalogAdmin.PUT("/courses/:id", h.Courses.Update)
		catalogAdmin.DELETE("/courses/:id", h.Courses.Delete)
		catalogAdmin.POST("/batches", h.Batches.Create)
		catalogAdmin.PUT("/batches/:id", h.Batches.Update)
		catalogAdmin.PUT("/batches/:id/status", h.Batches.UpdateStatus)
		catalogAdmin.DELETE("/batches/:id", h.Batches.Delete)
	}

	// Enrollments.
	enrollments := api.Group("/enrollments", middleware.JWT(auth))
	{
		enrollments.GET("", h.Enrollment.List)
		enrollments.GET("/:id", h.Enrollment.Get)
		enrollments.POST("", middleware.RBAC(student), h.Enrollment.Create)
		enrollments.PUT("/:id/approve", middleware.RBAC(admin), h.Enrollment.Approve)
		enrollments.PUT("/:id/reject", middleware.RBAC(admin), h.Enrollment.Reject)
		enrollments.PUT("/:id/complete", middleware.RBAC(admin, mentor), h.Enrollment.Complete)
	}

	// Invoices and payments.
	invoices := api.Group("/invoices", middleware.JWT(auth))
	{
		invoices.GET("", h.Invoices.List)
		invoices.GET("/:id", h.Invoices.Get)
		invoices.POST("", middleware.RBAC(admin), h.Invoices.Create)
		invoices.POST("/:id/payments", h.Invoices.SubmitPayment)
		invoices.POST("/:id/recalculate", middleware.RBAC(admin), h.Invoices.Recalculate)
		invoices.PUT("/:id/cancel", middleware.RBAC(admin), h.Invoices.Cancel)
		invoices.POST("/:id/export", middleware.RBAC(admin), h.Exports.InvoicePDF)
	}
	payments := api.Group("/payments", middleware.JWT(auth), middleware.RBAC(admin),
		middleware.Audit(audit, models.AuditActionAdminMutation, "payments"))
	{
		payments.PUT("/:id/verify", h.Invoices.VerifyPayment)
		payments.PUT("/:id/reject", h.Invoices.RejectPayment)
		payments.DELETE("/:id", h.Invoices.DeletePayment)
	}

	// Promo codes.
	api.POST("/promos/quote", middleware.JWT(auth), h.Promos.Quote)
	promos := api.Group("/promos", middleware.JWT(auth), middleware.RBAC(admin, marketing))
	{
		promos.GET("", h.Promos.List)
		promos.GET("/:id", h.Promos.Get)
		promos.POST("", h.Promos.Create)
		promos.PUT("/:id", h.Promos.Update)
		promos.DELETE("/:id", h.Promos.Delete)
	}

	// Users.
	users := api.Group("/users", middleware.JWT(auth), middleware.RBAC(admin),
		middleware.Audit(audit, models.AuditActionAdminMutation, "users"))
	{
		users.GET("", h.Users.List)
		users.GET("/mentors", h.Users.ListMentors)
		users.GET("/:id", h.Users.Get)
		users.POST("", h.Users.Create)
		users.PUT("/:id", h.Users.Update)
		users.DELETE("/:id", h.Users.Delete)
		users.POST("/bulk-deactivate", h.Users.BulkDeactivate)
	}

	// Blog.
	api.GET("/blog", middleware.OptionalJWT(auth), h.Blog.List)
	api.GET("/blog/slug/:slug", h.Blog.GetBySlug)
	blogAdmin := api.Group("/blog", middleware.JWT(auth), middleware.RBAC(admin, marketing))
	{
		blogAdmin.GET("/:id", h.Blog.Get)
		blogAdmin.POST("", h.Blog.Create)
		blogAdmin.PUT("/:id", h.Blog.Update)
		blogAdmin.DELETE("/:id", h.Blog.Delete)
	}

	// Reviews.
	api.GET("/reviews", middleware.OptionalJWT(auth), h.Reviews.List)
	api.POST("/reviews", middleware.JWT(auth), middleware.RBAC(student), h.Reviews.Create)
	reviewAdmin := api.Group("/reviews", middleware.JWT(auth), middleware.RBAC(admin, support))
	{
		reviewAdmin.PUT("/:id/moderate", h.Reviews.Moderate)
		reviewAdmin.DELETE("/:id", h.Reviews.Delete)
	}

	// Newsletter.
	api.POST("/newsletter/subscribe", h.Newsletter.Subscribe)
	api.POST("/newsletter/unsubscribe", h.Newsletter.Unsubscribe)
	newsletterAdmin := api.Group("/newsletter", middleware.JWT(auth), middleware.RBAC(admin, marketing))
	{
		newsletterAdmin.GET("/issues", h.Newsletter.ListIssues)
		newsletterAdmin.POST("/issues", h.Newsletter.CreateIssue)
		newsletterAdmin.POST("/issues/:id/send", h.Newsletter.SendIssue)
		newsletterAdmin.GET("/subscribers/count", h.Newsletter.SubscriberCount)
	}

	// Contact messages.
	api.POST("/contact", h.Contact.Create)
	contactAdmin := api.Group("/contact", middleware.JWT(auth), middleware.RBAC(admin, support))
	{
		contactAdmin.GET("", h.Contact.List)
		contactAdmin.GET("/:id", h.Contact.Get)
		contactAdmin.PUT("/:id/status", h.Contact.UpdateStatus)
		contactAdmin.DELETE("/:id", h.Contact.Delete)
	}

	// SEO metadata.
	api.GET("/seo/lookup", h.SEO.Get)
	seoAdmin := api.Group("/seo", middleware.JWT(auth), middleware.RBAC(admin, marketing))
	{
		seoAdmin.GET("", h.SEO.List)
		seoAdmin.PUT("", h.SEO.Upsert)
		seoAdmin.DELETE("", h.SEO.Delete)
	}

	// Dashboard.
	dashboard := api.Group("/dashboard", middleware.JWT(auth), middleware.RBAC(admin))
	{
		dashboard.GET("/stats", h.Dashboard.Stats)
		dashboard.GET("/trends", h.Dashboard.EnrollmentTrends)
		dashboard.GET("/top-courses", h.Dashboard.TopCourses)
		dashboard.GET("/system", h.Dashboard.SystemMetrics)
	}

	// Exports. Download tokens are self-authorizing.
	api.POST("/reports/billing", middleware.JWT(auth), middleware.RBAC(admin), h.Exports.BillingReport)
	api.GET("/export/:token", h.Exports.Download)
}
