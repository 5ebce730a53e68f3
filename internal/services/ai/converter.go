package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/RedRangerWentWild/IITR1/internal/apperr"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Converter turns a casual draft into a structured email through a Completer
type Converter struct {
	completer   Completer
	logger      *zap.Logger
	tracer      trace.Tracer
	sleep       SleepFunc
	maxAttempts int
}

// ConverterOption customizes a Converter
type ConverterOption func(*Converter)

// WithSleep replaces the backoff sleeper, e.g. to record waits in tests
func WithSleep(fn SleepFunc) ConverterOption {
	return func(c *Converter) { c.sleep = fn }
}

// NewConverter creates a Converter with MaxAttempts and exponential backoff
func NewConverter(completer Completer, logger *zap.Logger, opts ...ConverterOption) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Converter{
		completer:   completer,
		logger:      logger,
		tracer:      otel.Tracer("github.com/RedRangerWentWild/IITR1/internal/services/ai"),
		sleep:       sleepContext,
		maxAttempts: MaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type conversionPayload struct {
	Subject      string `json:"subject" validate:"required"`
	Body         string `json:"body" validate:"required"`
	DetectedTone string `json:"detectedTone" validate:"required,tone"`
}

// Generate produces a subject, body and detected tone. Only overload
// errors are retried; every other failure returns immediately.
func (c *Converter) Generate(ctx context.Context, userInput, recipientLabel string, profile models.ToneProfile, emailCtx *models.EmailContext) (*Conversion, error) {
	ctx, span := c.tracer.Start(ctx, "ai.Converter.Generate")
	defer span.End()

	system, user := BuildPrompts(userInput, recipientLabel, profile, emailCtx)

	var content string
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		span.SetAttributes(attribute.Int("ai.attempts", attempt))

		content, lastErr = c.completer.Complete(ctx, system, user)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, "request deadline")
			return nil, apperr.New(apperr.KindConversionOverloaded, "model is overloaded, try again shortly", lastErr)
		}
		if !IsOverloaded(lastErr) {
			span.RecordError(lastErr)
			span.SetStatus(codes.Error, "generation failed")
			c.logger.Error("conversion_generation_failed",
				zap.Int("attempt", attempt),
				zap.String("request_id", ExtractRequestID(ctx)),
				zap.Error(lastErr),
			)
			return nil, apperr.New(apperr.KindConversionMalformed, "generation failed", lastErr)
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := BackoffDelay(attempt)
		c.logger.Warn("conversion_model_overloaded",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Duration("retry_in", delay),
			zap.String("request_id", ExtractRequestID(ctx)),
		)
		if err := c.sleep(ctx, delay); err != nil {
			span.SetStatus(codes.Error, "cancelled during backoff")
			return nil, apperr.New(apperr.KindConversionOverloaded, "model is overloaded, try again shortly", err)
		}
	}
	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, "overloaded")
		return nil, apperr.New(apperr.KindConversionOverloaded, "model is overloaded, try again shortly", lastErr)
	}

	conv, err := ParseConversion(content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed output")
		c.logger.Warn("conversion_output_malformed",
			zap.String("request_id", ExtractRequestID(ctx)),
			zap.String("response_preview", SanitizeResponse(content, false)),
			zap.Error(err),
		)
		return nil, apperr.New(apperr.KindConversionMalformed, "model returned malformed output", err)
	}

	span.SetAttributes(attribute.String("ai.detected_tone", string(conv.DetectedTone)))
	return conv, nil
}

// ParseConversion strictly decodes model output. Prose around the JSON
// object is tolerated; unknown fields, empty values and unknown tones are not.
func ParseConversion(content string) (*Conversion, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty model output")
	}

	payload, err := decodeStrict(content)
	if err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start == -1 || end <= start {
			return nil, err
		}
		payload, err = decodeStrict(content[start : end+1])
		if err != nil {
			return nil, err
		}
	}

	payload.Subject = strings.TrimSpace(payload.Subject)
	payload.Body = strings.TrimSpace(payload.Body)
	payload.DetectedTone = strings.ToLower(strings.TrimSpace(payload.DetectedTone))
	if err := validation.Validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("invalid model output: %s", validation.FormatErrors(err))
	}

	return &Conversion{
		Subject:      payload.Subject,
		Body:         payload.Body,
		DetectedTone: models.Tone(payload.DetectedTone),
	}, nil
}

func decodeStrict(raw string) (*conversionPayload, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var payload conversionPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("failed to parse model output: trailing data")
	}
	return &payload, nil
}
