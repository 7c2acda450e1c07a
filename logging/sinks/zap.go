package sinks

import (
	"context"

	"go.uber.org/zap"

	"primal-royale/server/logging"
)

// ZapSink forwards router events through a zap logger so deployments that
// already aggregate zap output get combat events in the same stream.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	fields := []zap.Field{
		zap.Uint64("tick", event.Tick),
		zap.String("actor", formatEntity(event.Actor)),
		zap.String("category", event.Category),
	}
	if len(event.Targets) > 0 {
		names := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			names = append(names, formatEntity(target))
		}
		fields = append(fields, zap.Strings("targets", names))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	if event.TraceID != "" {
		fields = append(fields, zap.String("traceId", event.TraceID))
	}

	msg := string(event.Type)
	switch event.Severity {
	case logging.SeverityDebug:
		s.logger.Debug(msg, fields...)
	case logging.SeverityWarn:
		s.logger.Warn(msg, fields...)
	case logging.SeverityError:
		s.logger.Error(msg, fields...)
	default:
		s.logger.Info(msg, fields...)
	}
	return nil
}

func (s *ZapSink) Close(context.Context) error {
	if s.logger == nil {
		return nil
	}
	// Sync may legitimately fail on stderr; the router treats a Close error
	// as fatal for the sink, so swallow it here.
	_ = s.logger.Sync()
	return nil
}
