package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/bookhub/elib/internal/server"
	"github.com/bookhub/elib/internal/server/mocks"
)

func TestServer_jwtAuthMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, _ := newTestServer(t, mocks.NewMockStorage(ctrl), mocks.NewMockClient(ctrl))
	handler := s.JWTAuthMiddleware()

	newCtx := func(header string) (*gin.Context, *httptest.ResponseRecorder) {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		ctx.Request = httptest.NewRequest("GET", "/api/books", nil)
		if header != "" {
			ctx.Request.Header.Set("Authorization", header)
		}
		return ctx, w
	}

	t.Run("missing header", func(t *testing.T) {
		ctx, w := newCtx("")
		handler(ctx)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.True(t, ctx.IsAborted())
	})

	t.Run("bad format", func(t *testing.T) {
		ctx, w := newCtx("Token abc")
		handler(ctx)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.True(t, ctx.IsAborted())
	})

	t.Run("invalid signature", func(t *testing.T) {
		token, err := server.CreateJWTToken("user1", "othersecret")
		assert.NoError(t, err)

		ctx, w := newCtx("Bearer " + token)
		handler(ctx)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.True(t, ctx.IsAborted())
	})

	t.Run("wrong signing method", func(t *testing.T) {
		// HS512 with the right secret still must not pass, only HS256
		// tokens are accepted
		forged := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
			Subject:   "user1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		tokenStr, err := forged.SignedString([]byte("testsecret"))
		assert.NoError(t, err)

		ctx, w := newCtx("Bearer " + tokenStr)
		handler(ctx)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.True(t, ctx.IsAborted())
	})

	t.Run("expired token", func(t *testing.T) {
		expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "user1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})
		tokenStr, err := expired.SignedString([]byte("testsecret"))
		assert.NoError(t, err)

		ctx, w := newCtx("Bearer " + tokenStr)
		handler(ctx)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.True(t, ctx.IsAborted())
	})

	t.Run("valid token sets uid", func(t *testing.T) {
		token, err := server.CreateJWTToken("user1", "testsecret")
		assert.NoError(t, err)

		ctx, w := newCtx("Bearer " + token)
		handler(ctx)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, ctx.IsAborted())
		assert.Equal(t, "user1", ctx.GetString("uid"))
	})
}
