// Package swaggerui serves the embedded OpenAPI document and a Swagger UI page.
package swaggerui

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed openapi.yaml
var spec []byte

func Register(r *gin.Engine) {
	r.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", spec)
	})

	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})
}

// The page keeps the base headers in localStorage and adds them to every request.
const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Mandinex Tracking API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
    <style>.topbar { display: none; }</style>
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.onload = () => {
        const LS_PREFIX = 'mandinex_auth_';
        const headers = {
          DeviceTypeHeader: ['X-Device-Type', 'web'],
          LanguageHeader: ['X-Language', 'en'],
          ClientTokenHeader: ['X-Client-Token', ''],
          UserTokenHeader: ['X-User-Token', ''],
        };

        function getLS(name) {
          const v = localStorage.getItem(LS_PREFIX + name);
          return (v === null || v === '') ? headers[name][1] : v;
        }
        function setLS(name, val) {
          try { localStorage.setItem(LS_PREFIX + name, val); } catch (e) {}
        }

        window.ui = SwaggerUIBundle({
          url: '/openapi.yaml',
          dom_id: '#swagger-ui',
          deepLinking: true,
          persistAuthorization: true,
          docExpansion: 'none',
          defaultModelsExpandDepth: -1,
          requestInterceptor: (req) => {
            req.headers = req.headers || {};
            Object.keys(headers).forEach((name) => {
              const v = getLS(name);
              if (v) req.headers[headers[name][0]] = v;
            });
            return req;
          },
          onComplete: () => {
            Object.keys(headers).forEach((name) => {
              try { window.ui.preauthorizeApiKey(name, getLS(name)); } catch (e) {}
            });
            const authorize = window.ui.authActions.authorize;
            window.ui.authActions.authorize = (payload) => {
              Object.keys(payload || {}).forEach((name) => {
                if (headers[name]) setLS(name, (payload[name].value || '').toString());
              });
              return authorize(payload);
            };
          },
        });
      };
    </script>
  </body>
</html>`
