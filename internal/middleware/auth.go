package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ohfdesk/ohfdesk/internal/infra/authn"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
)

// ProfileKey is the gin context key holding the caller's *model.Profile.
const ProfileKey = "profile"

// ProfileResolver maps a verified identity to its stored profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, id *authn.Identity) (*model.Profile, error)
}

// SupabaseAuth authenticates requests carrying a Supabase access token.
// The token is verified against Supabase Auth, the caller's profile is
// resolved and stored in the context under ProfileKey.
// It also sets the user_id and role attributes on the current span.
func SupabaseAuth(verifier authn.Verifier, profiles ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx, authSpan := otel.Tracer("middleware").Start(ctx, "supabase_auth",
			trace.WithAttributes(attribute.String("middleware", "supabase_auth")))
		defer authSpan.End()

		auth := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			authSpan.SetAttributes(attribute.Bool("authenticated", false))
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}

		ident, err := verifier.Verify(ctx, strings.TrimSpace(raw))
		if err != nil {
			authSpan.SetAttributes(attribute.Bool("authenticated", false))
			if errors.Is(err, authn.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
				return
			}
			authSpan.RecordError(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				serializer.Err(http.StatusServiceUnavailable, "auth provider unavailable", err))
			return
		}

		profile, err := profiles.Resolve(ctx, ident)
		if err != nil {
			authSpan.RecordError(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, serializer.DBErr("", err))
			return
		}

		rootSpan := trace.SpanFromContext(c.Request.Context())
		if rootSpan.SpanContext().IsValid() {
			rootSpan.SetAttributes(attribute.String("user_id", profile.ID.String()))
		}
		authSpan.SetAttributes(
			attribute.String("user_id", profile.ID.String()),
			attribute.String("role", profile.Role),
			attribute.Bool("authenticated", true),
		)

		c.Set(ProfileKey, profile)
		c.Next()
	}
}

// RequireRole rejects callers whose profile role is not one of roles.
// It must run after SupabaseAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := CurrentProfile(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}
		if !slices.Contains(roles, profile.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, serializer.ForbiddenErr("insufficient role"))
			return
		}
		c.Next()
	}
}

// CurrentProfile returns the authenticated profile, if any.
func CurrentProfile(c *gin.Context) (*model.Profile, bool) {
	v, ok := c.Get(ProfileKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*model.Profile)
	return p, ok && p != nil
}
