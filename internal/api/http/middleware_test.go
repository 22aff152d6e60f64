package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-report-service/internal/observability"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

func TestRequestTimeoutBoundsHandlerContext(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 2*time.Second)

	var hasDeadline bool
	var remaining time.Duration
	app.Get("/deadline", func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		hasDeadline = ok
		if ok {
			remaining = time.Until(deadline)
		}
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/deadline", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The context handed to services must carry the configured bound.
	assert.True(t, hasDeadline)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, 2*time.Second)
}

func TestExpiredRequestContextSurfacesTimeout(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), time.Millisecond)

	app.Get("/slow", func(c *fiber.Ctx) error {
		// A blocking call bounded by the request context, as every
		// repository call is.
		<-c.UserContext().Done()
		return apperrors.MapError(c.UserContext().Err())
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/slow", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func TestZeroTimeoutLeavesContextUnbounded(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)

	var hasDeadline bool
	app.Get("/deadline", func(c *fiber.Ctx) error {
		_, hasDeadline = c.UserContext().Deadline()
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/deadline", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, hasDeadline)
}
