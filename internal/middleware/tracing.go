package middleware

import (
	"errors"

	"github.com/aquawaran/Clon-Official/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Route params recorded on the request span when present.
var spanParams = map[string]string{
	"postId": "post.id",
	"userId": "target_user.id",
}

// TracingMiddleware starts a server span per request. The span is renamed to
// the matched route pattern once routing is done, and carries the post and
// user ids the request touched.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		method := c.Method()
		ctx, span := observability.Tracer.Start(ctx, method+" "+utils.CopyString(c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.path", utils.CopyString(c.Path())),
				attribute.String("http.ip", c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set("X-Trace-ID", traceID)
		if requestID, ok := c.Locals("requestid").(string); ok {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		// After Next the context holds the last matched route and its params.
		if route := c.Route(); route != nil && route.Path != "" && route.Path != "/" {
			span.SetName(method + " " + route.Path)
			span.SetAttributes(attribute.String("http.route", route.Path))
			for _, name := range route.Params {
				if key, ok := spanParams[name]; ok {
					if v := c.Params(name); v != "" {
						span.SetAttributes(attribute.String(key, utils.CopyString(v)))
					}
				}
			}
		}

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
		}
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, utils.StatusMessage(status))
		}
		if userID, ok := c.Locals("userID").(string); ok {
			span.SetAttributes(attribute.String("user.id", userID))
		}

		return err
	}
}
