// Package startup handles exporter initialization: environment-driven
// configuration, directory validation, and the structured startup and
// shutdown log sections.
package startup
