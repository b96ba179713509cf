package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/config"
	"github.com/rajyashhh/mandinex-truck-application/internal/security"
)

func init() { gin.SetMode(gin.TestMode) }

var sec = config.Security{MobileClientToken: "mobile-tok", FrontendClientToken: "front-tok"}

func do(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireBaseHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RequireBaseHeaders(sec))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxClient)+"/"+Lang(c)) })

	cases := []struct {
		name    string
		headers map[string]string
		status  int
		body    string
	}{
		{"missing", map[string]string{}, http.StatusBadRequest, ""},
		{"bad device", map[string]string{HeaderDeviceType: "fridge", HeaderClientToken: "mobile-tok"}, http.StatusBadRequest, ""},
		{"bad token", map[string]string{HeaderDeviceType: "android", HeaderClientToken: "nope"}, http.StatusUnauthorized, ""},
		{"mobile", map[string]string{HeaderDeviceType: "android", HeaderClientToken: "mobile-tok"}, http.StatusOK, "mobile/en"},
		{"frontend hindi", map[string]string{HeaderDeviceType: "web", HeaderClientToken: "front-tok", HeaderLanguage: "hi"}, http.StatusOK, "frontend/hi"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.headers)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if tc.body != "" && w.Body.String() != tc.body {
				t.Fatalf("body = %q", w.Body.String())
			}
		})
	}
}

func TestRequireFrontend(t *testing.T) {
	r := gin.New()
	r.Use(RequireBaseHeaders(sec), RequireFrontend())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if w := do(r, map[string]string{HeaderDeviceType: "ios", HeaderClientToken: "mobile-tok"}); w.Code != http.StatusForbidden {
		t.Fatalf("mobile client: %d", w.Code)
	}
	if w := do(r, map[string]string{HeaderDeviceType: "web", HeaderClientToken: "front-tok"}); w.Code != http.StatusNoContent {
		t.Fatalf("frontend client: %d", w.Code)
	}
}

func TestRequireDriver(t *testing.T) {
	jwtm := security.NewJWTManager("secret", time.Minute, time.Hour)
	id := uuid.New()
	tokens, _, err := jwtm.Issue(security.RoleDriver, id)
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.Use(RequireDriver(jwtm))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, DriverID(c).String()) })

	if w := do(r, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", w.Code)
	}
	if w := do(r, map[string]string{HeaderUserToken: "garbage"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}
	if w := do(r, map[string]string{"Authorization": "Bearer " + tokens.AccessToken}); w.Code != http.StatusOK || w.Body.String() != id.String() {
		t.Fatalf("bearer: %d %s", w.Code, w.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	r := gin.New()
	r.Use(RateLimit(rdb, 3, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	limited := 0
	for i := 0; i < 10; i++ {
		if do(r, nil).Code == http.StatusTooManyRequests {
			limited++
		}
	}
	// Ten requests cannot fit under the limit even if the window rolls over once.
	if limited < 1 {
		t.Fatal("no request was limited")
	}

	mr.Close()
	if w := do(r, nil); w.Code != http.StatusOK {
		t.Fatalf("redis down should fail open, got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	w := do(r, nil)
	if _, err := uuid.Parse(w.Body.String()); err != nil {
		t.Fatalf("generated id %q: %v", w.Body.String(), err)
	}
	given := uuid.NewString()
	if w := do(r, map[string]string{HeaderRequestID: given}); w.Header().Get(HeaderRequestID) != given {
		t.Fatalf("kept id = %q", w.Header().Get(HeaderRequestID))
	}
}
