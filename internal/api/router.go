package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/specforge/engine/internal/api/handlers"
	mw "github.com/specforge/engine/internal/api/middleware"
	"github.com/specforge/engine/internal/services"
)

type Dependencies struct {
	HMACSecret      []byte
	OrgService      services.OrgService
	AuthHandler     *handlers.AuthHandler
	OrgHandler      *handlers.OrgHandler
	ProjectHandler  *handlers.ProjectHandler
	ArtifactHandler *handlers.ArtifactHandler
	WorkflowHandler *handlers.WorkflowHandler
	ReviewHandler   *handlers.ReviewHandler
	ExportHandler   *handlers.ExportHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.RateLimit(10, 20))
	r.Use(chimid.Compress(5))

	hh := handlers.NewHealthHandler()
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		// Auth routes (public)
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", dep.AuthHandler.Register)
			ar.Post("/login", dep.AuthHandler.Login)
			ar.Post("/logout", dep.AuthHandler.Logout)
		})

		// Authenticated, org-independent routes
		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret))

			protected.Route("/orgs", func(or chi.Router) {
				or.Get("/", dep.OrgHandler.ListMine)
				or.Post("/", dep.OrgHandler.Create)
			})
		})

		// Org-scoped routes: membership resolved from the X-Org-Slug header
		api.Group(func(scoped chi.Router) {
			scoped.Use(mw.Auth(dep.HMACSecret))
			scoped.Use(mw.OrgScope(dep.OrgService))

			scoped.Route("/projects", func(pr chi.Router) {
				pr.Get("/", dep.ProjectHandler.List)
				pr.Post("/", dep.ProjectHandler.Create)
				pr.Get("/{projectID}", dep.ProjectHandler.Get)

				pr.Post("/{projectID}/workflows/{workflowKey}", dep.WorkflowHandler.Run)

				pr.Get("/{projectID}/reviews", dep.ReviewHandler.List)

				pr.Get("/{projectID}/exports", dep.ExportHandler.List)
				pr.Post("/{projectID}/exports", dep.ExportHandler.Create)
			})

			scoped.Route("/artifacts", func(ar chi.Router) {
				ar.Get("/{artifactID}", dep.ArtifactHandler.Get)
				ar.Get("/{artifactID}/versions", dep.ArtifactHandler.ListVersions)
				ar.Post("/{artifactID}/versions", dep.ArtifactHandler.AppendVersion)
			})

			scoped.Route("/reviews", func(rr chi.Router) {
				rr.Post("/{reviewID}/approve", dep.ReviewHandler.Approve)
				rr.Post("/{reviewID}/reject", dep.ReviewHandler.Reject)
			})

			scoped.Route("/exports", func(er chi.Router) {
				er.Get("/{exportID}/download-url", dep.ExportHandler.DownloadURL)
				er.Post("/{exportID}/requeue", dep.ExportHandler.Requeue)
			})
		})
	})

	return r
}
