package testing

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
)

// PerformRequest Helper for performing requests in tests.
func PerformRequest(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			panic("failed to marshal request body: " + err.Error())
		}
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

// Browser replays the cookies set by previous responses, like a real session.
type Browser struct {
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func NewBrowser(router *gin.Engine) *Browser {
	return &Browser{router: router, cookies: make(map[string]*http.Cookie)}
}

// Use points the browser at another router, keeping its cookies, like a
// returning visitor after a server restart.
func (b *Browser) Use(router *gin.Engine) {
	b.router = router
}

func (b *Browser) Do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	if headers == nil {
		headers = map[string]string{}
	}
	if cookie := b.cookieHeader(); cookie != "" {
		headers["Cookie"] = cookie
	}
	res := PerformRequest(b.router, method, path, body, headers)
	b.remember(res)
	return res
}

// Upload sends a multipart form with one file part named "image".
func (b *Browser) Upload(path string, fields map[string]string, fileName, contentType string, content []byte, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	if fileName != "" {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="image"; filename="` + fileName + `"`}
		h["Content-Type"] = []string{contentType}
		part, err := writer.CreatePart(h)
		if err != nil {
			panic("failed to create multipart part: " + err.Error())
		}
		_, _ = part.Write(content)
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if cookie := b.cookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	res := httptest.NewRecorder()
	b.router.ServeHTTP(res, req)
	b.remember(res)
	return res
}

func (b *Browser) cookieHeader() string {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	return req.Header.Get("Cookie")
}

func (b *Browser) remember(res *httptest.ResponseRecorder) {
	for _, c := range res.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
}

// Decode unmarshals a JSON response body.
func Decode[T any](res *httptest.ResponseRecorder) T {
	var out T
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		panic("failed to unmarshal response body: " + err.Error())
	}
	return out
}
