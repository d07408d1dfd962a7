package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/meinhoongagan/referencias-locales/db/dbtest"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func request(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestProtected(t *testing.T) {
	var seen uint
	app := fiber.New()
	app.Get("/", middleware.Protected(secret), func(c *fiber.Ctx) error {
		seen = middleware.UserID(c)
		assert.Equal(t, models.RoleConsumer, middleware.RoleOf(c))
		return c.SendStatus(http.StatusOK)
	})

	user := &models.User{ID: 42, Email: "ana@example.com", Role: models.RoleConsumer}
	pair, err := middleware.IssueTokens(secret, user)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, request(t, app, pair.Token))
	assert.EqualValues(t, 42, seen)

	assert.Equal(t, http.StatusUnauthorized, request(t, app, ""))
	assert.Equal(t, http.StatusUnauthorized, request(t, app, pair.RefreshToken))

	other, err := middleware.IssueTokens("another-secret", user)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(t, app, other.Token))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id": 42, "type": "access", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	raw, err := expired.SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(t, app, raw))
}

func TestParseRefreshToken(t *testing.T) {
	pair, err := middleware.IssueTokens(secret, &models.User{ID: 7, Role: models.RoleProvider})
	require.NoError(t, err)

	id, err := middleware.ParseRefreshToken(secret, pair.RefreshToken)
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)

	_, err = middleware.ParseRefreshToken(secret, pair.Token)
	assert.Error(t, err)
	_, err = middleware.ParseRefreshToken("wrong", pair.RefreshToken)
	assert.Error(t, err)
}

func TestRequireProviderAndRole(t *testing.T) {
	db := dbtest.New(t)
	owner := models.User{Name: "Luis", Email: "luis@example.com", Password: "x", IsProvider: true}
	consumer := models.User{Name: "Ana", Email: "ana@example.com", Password: "x"}
	require.NoError(t, db.Create(&owner).Error)
	require.NoError(t, db.Create(&consumer).Error)
	require.NoError(t, db.Create(&models.Provider{UserID: owner.ID, BusinessName: "Luis", Slug: "luis", IsActive: true}).Error)

	app := fiber.New()
	app.Get("/", middleware.Protected(secret), middleware.RequireProvider(db),
		middleware.RequireRole(db, models.RoleProvider, models.RoleAdmin),
		func(c *fiber.Ctx) error {
			assert.Equal(t, "Luis", middleware.ProviderOf(c).BusinessName)
			return c.SendStatus(http.StatusOK)
		})

	ownerTokens, err := middleware.IssueTokens(secret, &owner)
	require.NoError(t, err)
	consumerTokens, err := middleware.IssueTokens(secret, &consumer)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, request(t, app, ownerTokens.Token))
	assert.Equal(t, http.StatusForbidden, request(t, app, consumerTokens.Token))
}
