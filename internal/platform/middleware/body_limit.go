package middleware

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit returns middleware that caps request body sizes before handlers
// buffer them. defaultBytes applies to ordinary JSON endpoints; uploadBytes
// applies to the record upload endpoints, which carry file attachments and
// need headroom for multipart framing.
//
// Oversized bodies are rejected with HTTP 413: early via Content-Length when
// the client declares it, otherwise while the body is being read.
func BodyLimit(defaultBytes, uploadBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := defaultBytes
			if req.Method == http.MethodPost && isUploadPath(req.URL.Path) {
				limit = uploadBytes
			}

			if req.ContentLength > limit {
				return c.JSON(http.StatusRequestEntityTooLarge,
					map[string]string{"error": "request body too large"})
			}

			// Content-Length can be absent or wrong; enforce the limit on
			// the read path as well.
			req.Body = &limitedReadCloser{ReadCloser: req.Body, remaining: limit}

			return next(c)
		}
	}
}

func isUploadPath(path string) bool {
	return strings.HasSuffix(path, "/records") || strings.HasSuffix(path, "/prescription-records")
}

// limitedReadCloser fails the read once more than the allowed number of
// bytes has been consumed.
type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (n int, err error) {
	if r.exceeded {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	toRead := int64(len(p))
	if toRead > r.remaining+1 {
		toRead = r.remaining + 1
	}

	n, err = r.ReadCloser.Read(p[:toRead])
	r.remaining -= int64(n)

	if r.remaining < 0 {
		r.exceeded = true
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	return n, err
}
