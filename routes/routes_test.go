package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Badr070118/lupeti-project-sub000/common/auth"
	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/Badr070118/lupeti-project-sub000/controllers"
	"github.com/Badr070118/lupeti-project-sub000/routes"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "route-test-secret"

// Handlers are never reached in these tests, so services stay nil.
func setupRouter(trustHeaders bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	v := controllers.NewRequestValidator()
	routes.RegisterRoutes(r, routes.Controllers{
		Products: controllers.NewProductController(nil),
		Cart:     controllers.NewCartController(nil),
		Orders:   controllers.NewOrderController(nil, nil, v),
		Payments: controllers.NewPaymentController(nil, nil),
		Admin:    controllers.NewAdminController(nil, nil, v),
	}, routes.Options{
		Verifier:          auth.NewTokenVerifier(testSecret),
		TrustGatewayAuth:  trustHeaders,
		CallbackPerMinute: 60,
		CheckoutPerMinute: 10,
	})
	return r
}

func signToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": role,
		"typ":  "access",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func get(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	r := setupRouter(false)

	assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/metrics", nil).Code)
}

func TestCustomerRoutesRequireAuth(t *testing.T) {
	r := setupRouter(false)

	for _, path := range []string{"/cart", "/orders", "/payments/orders/" + uuid.NewString()} {
		w := get(r, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	r := setupRouter(false)

	w := get(r, "/cart", map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGatewayHeadersIgnoredUnlessTrusted(t *testing.T) {
	headers := map[string]string{"X-User-ID": uuid.NewString(), "X-User-Role": "admin"}

	w := get(setupRouter(false), "/admin/orders?page=0", headers)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Trusted headers pass auth; page=0 fails validation before any service call.
	w = get(setupRouter(true), "/admin/orders?page=0", headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	r := setupRouter(false)

	w := get(r, "/admin/orders", map[string]string{"Authorization": "Bearer " + signToken(t, "customer")})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(r, "/admin/payments/"+uuid.NewString()+"/events", map[string]string{"Authorization": "Bearer " + signToken(t, "customer")})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
