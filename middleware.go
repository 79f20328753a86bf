package grantkit

import (
	"errors"
	"net/http"
)

// Middleware provides HTTP middleware for privilege checking.
type Middleware struct {
	service      *Service
	getUserID    func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := grantkit.NewMiddleware(service,
//	    grantkit.WithUserIDExtractor(func(r *http.Request) string {
//	        return r.Context().Value("user_id").(string)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getUserID:    defaultGetUserID,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUserIDExtractor sets a custom function to extract user ID from request.
func WithUserIDExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getUserID = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetUserID(r *http.Request) string {
	return GetUserID(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNoActorID):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case IsPermissionDenied(err):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case IsNotFound(err):
		http.Error(w, "Not Found", http.StatusNotFound)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// TargetExtractor extracts a target entity ID from an HTTP request.
type TargetExtractor func(*http.Request) (string, error)

// TargetFromParam creates a TargetExtractor that reads the ID from URL
// path parameters. Compatible with chi, gorilla/mux, and standard library
// patterns.
//
// Example:
//
//	// For route /resources/{resourceID}
//	mw.RequireResourcePrivilege(grantkit.PrivilegeView, grantkit.TargetFromParam("resourceID"))
func TargetFromParam(paramName string) TargetExtractor {
	return func(r *http.Request) (string, error) {
		id := r.PathValue(paramName)
		if id == "" {
			// Try context (set by router middleware)
			if v := r.Context().Value(paramName); v != nil {
				if s, ok := v.(string); ok {
					id = s
				}
			}
		}
		if id == "" {
			return "", NewError(ErrNotFound, "target ID not found in request")
		}
		return id, nil
	}
}

// TargetFromQuery creates a TargetExtractor that reads the ID from query
// parameters.
//
// Example:
//
//	// For route /api/files?resource_id=res_123
//	mw.RequireResourcePrivilege(grantkit.PrivilegeChange, grantkit.TargetFromQuery("resource_id"))
func TargetFromQuery(queryParam string) TargetExtractor {
	return func(r *http.Request) (string, error) {
		id := r.URL.Query().Get(queryParam)
		if id == "" {
			return "", NewError(ErrNotFound, "target ID not found in query")
		}
		return id, nil
	}
}

// TargetFromHeader creates a TargetExtractor that reads the ID from a
// header.
//
// Example:
//
//	// For header X-Resource-ID: res_123
//	mw.RequireResourcePrivilege(grantkit.PrivilegeView, grantkit.TargetFromHeader("X-Resource-ID"))
func TargetFromHeader(headerName string) TargetExtractor {
	return func(r *http.Request) (string, error) {
		id := r.Header.Get(headerName)
		if id == "" {
			return "", NewError(ErrNotFound, "target ID not found in header")
		}
		return id, nil
	}
}

// StaticTarget creates a TargetExtractor that always returns the same ID.
// Useful for singleton resources.
func StaticTarget(id string) TargetExtractor {
	return func(r *http.Request) (string, error) {
		return id, nil
	}
}

// RequireResourcePrivilege creates middleware that requires the user's
// effective privilege on a resource to reach p.
//
// Example:
//
//	router.With(mw.RequireResourcePrivilege(grantkit.PrivilegeChange,
//	    grantkit.TargetFromParam("resourceID"))).
//	    Put("/resources/{resourceID}", updateResourceHandler)
func (m *Middleware) RequireResourcePrivilege(p Privilege, extractor TargetExtractor) func(http.Handler) http.Handler {
	return m.require(p, extractor, func(ctx *http.Request, userID, targetID string) (Privilege, error) {
		return m.service.EffectiveResourcePrivilege(ctx.Context(), userID, targetID)
	})
}

// RequireGroupPrivilege creates middleware that requires the user's
// effective privilege on a group to reach p.
func (m *Middleware) RequireGroupPrivilege(p Privilege, extractor TargetExtractor) func(http.Handler) http.Handler {
	return m.require(p, extractor, func(ctx *http.Request, userID, targetID string) (Privilege, error) {
		return m.service.EffectiveGroupPrivilege(ctx.Context(), userID, targetID)
	})
}

// RequireCommunityPrivilege creates middleware that requires the user's
// effective privilege on a community to reach p.
func (m *Middleware) RequireCommunityPrivilege(p Privilege, extractor TargetExtractor) func(http.Handler) http.Handler {
	return m.require(p, extractor, func(ctx *http.Request, userID, targetID string) (Privilege, error) {
		return m.service.EffectiveCommunityPrivilege(ctx.Context(), userID, targetID)
	})
}

func (m *Middleware) require(p Privilege, extractor TargetExtractor, resolve func(*http.Request, string, string) (Privilege, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, ErrNoActorID)
				return
			}

			targetID, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			eff, err := resolve(r, userID, targetID)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !eff.AtLeast(p) {
				m.errorHandler(w, r, denied("missing required privilege").
					WithActor(userID).WithTarget(targetID).WithPrivilege(p))
				return
			}

			// Add checker to context for use in handlers
			ctx = WithChecker(ctx, NewChecker(m.service, userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadChecker creates middleware that loads the user's Checker into
// context without enforcing anything. Use this when the handler does its
// own privilege checks.
//
// Example:
//
//	router.With(mw.LoadChecker()).Get("/dashboard", dashboardHandler)
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    checker := grantkit.FromContext(r.Context())
//	    if ok, _ := checker.CanChangeResource(r.Context(), resourceID); ok {
//	        // Show edit controls
//	    }
//	}
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				// No user, continue without checker
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithChecker(ctx, NewChecker(m.service, userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectActorContext creates middleware that populates the user and actor
// context values mutations depend on, plus the request ID for correlation.
//
// Example:
//
//	router.Use(mw.InjectActorContext())
func (m *Middleware) InjectActorContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Request ID is commonly set by other middleware.
			requestID := r.Header.Get("X-Request-ID")
			if requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			userID := m.getUserID(r)
			if userID != "" {
				ctx = WithUserID(ctx, userID)
				ctx = WithActorID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
