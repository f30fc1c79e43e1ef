package rendition

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/maputil"
	"github.com/ghetzel/go-stockutil/typeutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var DefaultRenderHookName = `custom:render_data`
var DefaultErrorTemplate = `500`
var TerminalErrorMessage = `Something went really wrong.`

// Where a render call is in the error fallback chain.
type FallbackState int

const (
	Primary FallbackState = iota
	RetryingErrorPage
	Exhausted
)

func (self FallbackState) String() string {
	switch self {
	case Primary:
		return `primary`
	case RetryingErrorPage:
		return `retrying-error-page`
	case Exhausted:
		return `exhausted`
	default:
		return `unknown`
	}
}

// The Dispatcher resolves templates from a Registry, invokes their renderers, and
// falls back to rendering the error template when that fails.  A failing request
// invokes at most two renderers: its own and the error template's.
type Dispatcher struct {
	Registry *Registry
	Hooks    HookSystem
	Logger   Logger
	Tracer   trace.Tracer
	Meter    metric.Meter

	// The hook name consulted before rendering.
	HookName string

	// The name of the template rendered when rendering fails.
	ErrorTemplate string

	metricsOnce sync.Once
	instruments *renderMetrics
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{
		Registry:      registry,
		HookName:      DefaultRenderHookName,
		ErrorTemplate: DefaultErrorTemplate,
	}
}

// The state of a single Render call.
type renderCall struct {
	sctx    context.Context
	ctx     Context
	reached FallbackState
}

// Render the named template.  If a pre-render hook is registered for the context's
// path and method, it runs first; an error it returns is exposed to the template
// as data["error"].  The returned error is non-nil only when the error template
// could not be rendered either.
func (self *Dispatcher) Render(ctx Context, name string, data map[string]interface{}) error {
	_, err := self.RenderState(ctx, name, data)
	return err
}

// Like Render, but also reports how far into the fallback chain the call went.
// Anything other than Primary means the response is an error page.
func (self *Dispatcher) RenderState(ctx Context, name string, data map[string]interface{}) (FallbackState, error) {
	data, _ = mergeData(data, nil)

	var startedAt = time.Now()
	var sctx, span = self.tracer().Start(stdContext(ctx), `rendition.render`, trace.WithAttributes(
		attribute.String(`rendition.template`, name),
		attribute.String(`http.route`, ctx.Path()),
		attribute.String(`http.method`, ctx.Method()),
	))

	defer span.End()

	if self.Hooks != nil {
		if transform := self.Hooks.GetHooks(self.hookName(), ctx.Path(), ctx.Method()); transform != nil {
			self.logf(log.DEBUG, "render: running %s hooks for %s %s", self.hookName(), ctx.Method(), ctx.Path())

			if out, err := transform.Start(data); err == nil {
				if out != nil {
					data = out
				}
			} else {
				if out != nil {
					data = out
				}

				data[`error`] = err
			}
		}
	}

	var call = &renderCall{
		sctx: sctx,
		ctx:  ctx,
	}

	var err = self.render(call, name, data, Primary)

	span.SetAttributes(attribute.String(`rendition.state`, call.reached.String()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	self.metrics().record(sctx, name, call.reached, time.Since(startedAt))

	return call.reached, err
}

func (self *Dispatcher) render(call *renderCall, name string, data map[string]interface{}, state FallbackState) error {
	trace.SpanFromContext(call.sctx).AddEvent(`lookup`, trace.WithAttributes(
		attribute.String(`rendition.template`, name),
		attribute.String(`rendition.state`, state.String()),
	))

	if tmpl, err := self.Registry.GetTemplate(name); err == nil {
		// renderers get their own copy
		if merged, err := mergeData(data, tmpl.Data); err == nil {
			data = merged
		} else {
			return self.fail(call, data, fmt.Errorf("merge template data: %w", err), state)
		}

		self.logf(log.DEBUG, "render: invoking %v renderer for %v", typeutil.OrString(tmpl.Ext, `inline`), tmpl)

		if err := tmpl.Render(call.ctx, data); err != nil {
			return self.fail(call, data, err, state)
		}

		return nil
	} else {
		return self.fail(call, data, err, state)
	}
}

// Failures outside the primary render are returned to the caller rather than
// re-entering the fallback.
func (self *Dispatcher) fail(call *renderCall, data map[string]interface{}, err error, state FallbackState) error {
	if state != Primary {
		return err
	}

	return self.renderInternalServerError(call, data, err, Primary)
}

func (self *Dispatcher) renderInternalServerError(call *renderCall, data map[string]interface{}, err error, state FallbackState) error {
	data[`error`] = err
	self.logf(log.ERROR, "render: %v", err)

	if state == Exhausted {
		call.reached = Exhausted
		call.ctx.End(TerminalErrorMessage, http.StatusInternalServerError)
		return err
	}

	call.reached = RetryingErrorPage
	err = WithCode(err, http.StatusInternalServerError)
	data[`error`] = err

	self.logf(log.INFO, "render: rendering %s", self.errorTemplate())

	if rerr := self.render(call, self.errorTemplate(), data, RetryingErrorPage); rerr != nil {
		return self.renderInternalServerError(call, data, rerr, Exhausted)
	}

	return nil
}

// Register a hook that runs before rendering requests matching url and method.
func (self *Dispatcher) BeforeRender(url string, method string, fn HookFunc) (*Hook, error) {
	if self.Hooks == nil {
		return nil, errors.New("no hook system configured")
	}

	return self.Hooks.Hook(self.hookName(), url, method, fn)
}

func (self *Dispatcher) hookName() string {
	return typeutil.OrString(self.HookName, DefaultRenderHookName)
}

func (self *Dispatcher) errorTemplate() string {
	return typeutil.OrString(self.ErrorTemplate, DefaultErrorTemplate)
}

func (self *Dispatcher) tracer() trace.Tracer {
	if self.Tracer != nil {
		return self.Tracer
	}

	return otel.Tracer(ApplicationName)
}

func (self *Dispatcher) metrics() *renderMetrics {
	self.metricsOnce.Do(func() {
		var meter = self.Meter

		if meter == nil {
			meter = otel.Meter(ApplicationName)
		}

		if m, err := newRenderMetrics(meter); err == nil {
			self.instruments = m
		} else {
			self.logf(log.WARNING, "render: metrics disabled: %v", err)
		}
	})

	return self.instruments
}

func (self *Dispatcher) logf(level log.Level, format string, args ...interface{}) {
	var logger = self.Logger

	if logger == nil && self.Registry != nil {
		logger = self.Registry.Logger
	}

	logf(logger, level, format, args...)
}

// Merge a template's static data over the render data.  Values from the template
// win; nested maps present on both sides are merged recursively.
func mergeData(data map[string]interface{}, static map[string]interface{}) (map[string]interface{}, error) {
	var out = make(map[string]interface{}, len(data)+len(static))

	for k, v := range data {
		out[k] = v
	}

	for k, v := range static {
		if existing, ok := out[k]; ok && typeutil.IsMap(existing) && typeutil.IsMap(v) {
			if merged, err := maputil.Merge(existing, v); err == nil {
				out[k] = merged
			} else {
				return nil, err
			}
		} else {
			out[k] = v
		}
	}

	return out, nil
}
