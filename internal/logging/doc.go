// Package logging provides leveled logging for the exporter.
//
// The log level is read once from the environment: DEBUG=true forces debug
// logging, otherwise LOG_LEVEL selects one of debug, info, warn, or error.
// The default level is info.
package logging
