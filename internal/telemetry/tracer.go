package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrAddress   = "avatar.address"
	AttrKey       = "avatar.key"
	AttrSlot      = "avatar.slot"
	AttrTaskID    = "avatar.task_id"
	AttrEpoch     = "avatar.epoch"
	AttrSource    = "avatar.source"
	AttrSize      = "avatar.size"
	AttrLocator   = "photo.locator"
	AttrDirectory = "directory.type"
	AttrCacheHit  = "cache.hit"
)

// Span names.
const (
	SpanFetch   = "avatar.fetch"
	SpanResolve = "avatar.resolve"
	SpanLocate  = "directory.locate"
	SpanDecode  = "photo.decode"
	SpanHTTP    = "http.avatar"
)

// Attribute constructors.

func Address(a string) attribute.KeyValue   { return attribute.String(AttrAddress, a) }
func Key(k string) attribute.KeyValue       { return attribute.String(AttrKey, k) }
func Slot(s string) attribute.KeyValue      { return attribute.String(AttrSlot, s) }
func TaskID(id string) attribute.KeyValue   { return attribute.String(AttrTaskID, id) }
func Epoch(e uint64) attribute.KeyValue     { return attribute.Int64(AttrEpoch, int64(e)) }
func Source(s string) attribute.KeyValue    { return attribute.String(AttrSource, s) }
func Size(px int) attribute.KeyValue        { return attribute.Int(AttrSize, px) }
func Locator(l string) attribute.KeyValue   { return attribute.String(AttrLocator, l) }
func Directory(t string) attribute.KeyValue { return attribute.String(AttrDirectory, t) }
func CacheHit(hit bool) attribute.KeyValue  { return attribute.Bool(AttrCacheHit, hit) }

// StartFetchSpan starts the span covering one background avatar fetch.
func StartFetchSpan(ctx context.Context, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanFetch,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append([]attribute.KeyValue{Key(key)}, attrs...)...),
	)
}

// StartResolveSpan starts the span covering a synchronous resolution.
func StartResolveSpan(ctx context.Context, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanResolve,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append([]attribute.KeyValue{Key(key)}, attrs...)...),
	)
}

// StartDirectorySpan starts a span for a directory lookup.
func StartDirectorySpan(ctx context.Context, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanLocate,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append([]attribute.KeyValue{Directory(kind)}, attrs...)...),
	)
}

// StartDecodeSpan starts a span for decoding and scaling one photo.
func StartDecodeSpan(ctx context.Context, locator string, size int) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanDecode,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(Locator(locator), Size(size)),
	)
}

// StartHTTPSpan starts the server span for one avatar request.
func StartHTTPSpan(ctx context.Context, address string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanHTTP,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(append([]attribute.KeyValue{Address(address)}, attrs...)...),
	)
}
