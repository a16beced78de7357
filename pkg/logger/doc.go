// Package logger builds *slog.Logger instances with functional options and
// injects request-scoped values (request id, locale, user id) from
// context.Context into every record.
//
//	log := logger.NewFromConfig(cfg,
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "otp sent", logger.Component("auth"), logger.Form("emailSignin"))
//
// Attribute helpers in attr.go keep key names consistent across packages.
package logger
