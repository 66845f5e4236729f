// Package logger builds slog loggers with a consistent set of attributes.
//
// New takes functional options. WithEnvironment picks a preset (text at DEBUG
// for development, JSON at INFO for staging and production) and tags every
// record with the service and environment names. NewFromConfig does the same
// from a Config read by pkg/config (LOG_LEVEL, LOG_FORMAT, APP_ENV,
// SERVICE_NAME), with an explicit level or format overriding the preset.
//
// Context extractors add request-scoped attributes at log time:
//
//	log := logger.New(
//		logger.WithProduction("sessiond"),
//		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
//			id := middleware.GetReqID(ctx)
//			return logger.RequestID(id), id != ""
//		}),
//	)
//	log.InfoContext(ctx, "session saved", logger.SessionID(id))
//
// The attribute helpers in attr.go (SessionID, ManagerID, StoreKey, Error and
// friends) keep key names uniform across packages. Error and Errors return an
// empty attribute for nil errors, so they can be passed unconditionally.
package logger
