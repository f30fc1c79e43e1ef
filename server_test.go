package rendition

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(server http.Handler, method string, path string) *httptest.ResponseRecorder {
	var w = httptest.NewRecorder()

	server.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestServerServeHTTP(t *testing.T) {
	var server interface{} = NewServer()

	// ensure that we do, in fact, implement http.Handler
	var w = request(server.(http.Handler), `GET`, `/`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerRoutes(t *testing.T) {
	var server = NewServer()

	_, err := server.Registry.RegisterFunc(`post`, func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		var params = data[`params`].(map[string]interface{})
		var req = data[`request`].(map[string]interface{})

		ctx.End(fmt.Sprintf("%v %v %v", req[`method`], req[`path`], params[`slug`]), http.StatusOK)
		return nil
	})

	require.NoError(t, err)
	require.NoError(t, server.AddRoute(Route{
		Path:     `/posts/{slug}`,
		Methods:  []string{`get`, `post`},
		Template: `post`,
	}))

	assert.Len(t, server.Routes(), 1)

	var w = request(server, `GET`, `/posts/hello`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `GET /posts/hello hello`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(XRenditionRequest))
	assert.Equal(t, DefaultContentType, w.Header().Get(`Content-Type`))

	w = request(server, `POST`, `/posts/world`)
	assert.Equal(t, `POST /posts/world world`, w.Body.String())

	w = request(server, `DELETE`, `/posts/world`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerAddRouteInvalid(t *testing.T) {
	var server = NewServer()

	assert.Error(t, server.AddRoute(Route{Path: `/x`}))
	assert.Error(t, server.AddRoute(Route{Template: `x`}))

	require.NoError(t, server.AddRoute(Route{Path: `/dup`, Template: `x`}))
	assert.Error(t, server.AddRoute(Route{Path: `/dup`, Template: `y`}))
	assert.Len(t, server.Routes(), 1)
}

func TestServerUnroutedUsesPathName(t *testing.T) {
	var server = NewServer()

	_, err := server.Registry.RegisterFunc(`about`, staticRenderer(`about us`, nil))
	require.NoError(t, err)

	_, err = server.Registry.RegisterFunc(`index`, staticRenderer(`home`, nil))
	require.NoError(t, err)

	assert.Equal(t, `about us`, request(server, `GET`, `/about`).Body.String())
	assert.Equal(t, `about us`, request(server, `GET`, `/company/about.html`).Body.String())
	assert.Equal(t, `home`, request(server, `GET`, `/`).Body.String())
	assert.Equal(t, http.StatusNotFound, request(server, `GET`, `/contact`).Code)
}

func TestServerErrorPage(t *testing.T) {
	var server = NewServer()

	_, err := server.Registry.RegisterFunc(`500`, func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		ctx.End(`<h1>Error</h1>`, StatusCode(data[`error`].(error), http.StatusTeapot))
		return nil
	})

	require.NoError(t, err)
	require.NoError(t, server.AddRoute(Route{
		Path:     `/broken`,
		Template: `does-not-exist`,
	}))

	var w = request(server, `GET`, `/broken`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, `<h1>Error</h1>`, w.Body.String())
	assert.Equal(t, DefaultContentType, w.Header().Get(`Content-Type`))
}

func TestServerTerminalError(t *testing.T) {
	var server = NewServer()

	_, err := server.Registry.RegisterPath(`/views/page.ejs`)
	require.NoError(t, err)

	require.NoError(t, server.AddRoute(Route{
		Path:     `/page`,
		Template: `page`,
	}))

	var w = request(server, `GET`, `/page`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, TerminalErrorMessage, w.Body.String())
	assert.Equal(t, `text/plain; charset=utf-8`, w.Header().Get(`Content-Type`))
}

func TestServerCache(t *testing.T) {
	var server = NewServer()
	var okCalls, failCalls int

	server.Cache = NewMemoryCache(10, 0)

	_, err := server.Registry.RegisterFunc(`cached`, staticRenderer(`cached body`, &okCalls))
	require.NoError(t, err)

	_, err = server.Registry.RegisterFunc(`gone`, func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		failCalls++
		ctx.End(`gone`, http.StatusGone)
		return nil
	})

	require.NoError(t, err)

	require.NoError(t, server.AddRoute(Route{Path: `/cached`, Template: `cached`}))
	require.NoError(t, server.AddRoute(Route{Path: `/gone`, Template: `gone`}))

	var w = request(server, `GET`, `/cached`)
	assert.Equal(t, `miss`, w.Header().Get(XRenditionCache))
	assert.Equal(t, `cached body`, w.Body.String())

	w = request(server, `GET`, `/cached`)
	assert.Equal(t, `hit`, w.Header().Get(XRenditionCache))
	assert.Equal(t, `cached body`, w.Body.String())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, DefaultContentType, w.Header().Get(`Content-Type`))
	assert.Equal(t, 1, okCalls)

	request(server, `GET`, `/gone`)
	w = request(server, `GET`, `/gone`)

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, `miss`, w.Header().Get(XRenditionCache))
	assert.Equal(t, 2, failCalls)
}

func TestServerRenderOne(t *testing.T) {
	var server = NewServer()

	_, err := server.Registry.RegisterFunc(`greeting`, func(ctx Context, data map[string]interface{}, tmpl *Template) error {
		ctx.End(fmt.Sprintf("hello %v", data[`name`]), http.StatusOK)
		return nil
	})

	require.NoError(t, err)

	res, err := server.RenderOne(`greeting`, map[string]interface{}{
		`name`: `world`,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, `hello world`, res.Body.String())

	res, err = server.RenderOne(`missing`, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, TerminalErrorMessage, res.Body.String())
}

func TestServerTimingHeader(t *testing.T) {
	var server = NewServer()

	_, err := server.Registry.RegisterFunc(`index`, staticRenderer(`home`, nil))
	require.NoError(t, err)

	assert.Contains(t, request(server, `GET`, `/`).Header().Get(`Server-Timing`), `render;desc="Render";dur=`)

	server.DisableTimings = true
	assert.Empty(t, request(server, `GET`, `/`).Header().Get(`Server-Timing`))
}

func TestServerFileErrorPageIsNotCached(t *testing.T) {
	var server = NewServer()

	server.Cache = NewMemoryCache(10, 0)
	require.True(t, server.Registry.RegisterRenderer(`html`, TemplateRenderer(nil)))

	_, err := server.Registry.RegisterPath(writeFile(t, t.TempDir(), `500.html`, `<h1>Error: {{ .error }}</h1>`))
	require.NoError(t, err)

	require.NoError(t, server.AddRoute(Route{
		Path:     `/broken`,
		Template: `missing`,
	}))

	for i := 0; i < 2; i++ {
		var w = request(server, `GET`, `/broken`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, `miss`, w.Header().Get(XRenditionCache))
		assert.Equal(t, `<h1>Error: template not found: missing</h1>`, w.Body.String())
		assert.Equal(t, `text/html; charset=utf-8`, w.Header().Get(`Content-Type`))
	}
}

func TestServerErrorTemplateNotServedDirectly(t *testing.T) {
	var server = NewServer()
	var calls int

	_, err := server.Registry.RegisterFunc(`500`, staticRenderer(`error page`, &calls))
	require.NoError(t, err)

	_, err = server.Registry.RegisterFunc(`oops`, staticRenderer(`custom error page`, nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, request(server, `GET`, `/500`).Code)
	assert.Equal(t, http.StatusNotFound, request(server, `GET`, `/errors/500.html`).Code)
	assert.Zero(t, calls)

	server.Dispatcher.ErrorTemplate = `oops`

	assert.Equal(t, http.StatusNotFound, request(server, `GET`, `/oops`).Code)
	assert.Equal(t, `error page`, request(server, `GET`, `/500`).Body.String())
}
