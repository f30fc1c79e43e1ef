// Package rendition registers named templates, maps file extensions to renderer
// functions, and renders templates by name for a host application, falling back
// to a "500" error template when rendering fails.
//
// The core is the Registry (name to Template, extension to RenderFunc) and the
// Dispatcher (hook, lookup, render, bounded error fallback).  Everything else in
// this package is a concrete host for that core: builtin renderers, an HTTP
// Server, YAML configuration, a response cache, and tracing setup.
package rendition

const ApplicationName = `rendition`
const ApplicationSummary = `a template registry and render dispatcher with error page fallback`
const ApplicationVersion = `0.3.1`
const DefaultConfigFilename = `rendition.yml`
const DefaultAddress = `127.0.0.1:28419`
