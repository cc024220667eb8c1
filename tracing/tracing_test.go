package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matryer/is"
	"go.opentelemetry.io/otel"
)

func TestInitExportsSpans(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	shutdown, err := Init(&buf)
	is.NoErr(err)

	_, span := otel.Tracer("tracing_test").Start(context.Background(), "randomset.insert")
	span.End()

	is.NoErr(shutdown(context.Background()))
	is.True(strings.Contains(buf.String(), "randomset.insert"))
}
