// Package logger provides structured logging functionality for the application.
//
// It builds log/slog JSON loggers with a configurable level and carries
// request-scoped loggers through context.Context so that everything logged
// while serving a request shares its trace id.
package logger
