package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared across spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPRequestIDKey  = "http.request_id"

	ProjectIDKey      = "intake.project_id"
	JobIDKey          = "intake.job_id"
	SubmitFilesKey    = "intake.submit.files"
	SubmitBytesKey    = "intake.submit.bytes"
	SubmitHasURLsKey  = "intake.submit.has_urls"
	PollSchedulerKey  = "intake.poll.scheduler"
	PollGenerationKey = "intake.poll.generation"
	PollJobsKey       = "intake.poll.jobs"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SubmitAttributes describes an outbound submission.
func SubmitAttributes(files int, bytes int64, hasURLs bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(SubmitFilesKey, files),
		attribute.Int64(SubmitBytesKey, bytes),
		attribute.Bool(SubmitHasURLsKey, hasURLs),
	}
}

// JobAttributes identifies a queued job. Empty values are skipped.
func JobAttributes(projectID, jobID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if projectID != "" {
		attrs = append(attrs, attribute.String(ProjectIDKey, projectID))
	}
	if jobID != "" {
		attrs = append(attrs, attribute.String(JobIDKey, jobID))
	}
	return attrs
}

// PollAttributes describes one scheduler poll.
func PollAttributes(scheduler string, generation uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PollSchedulerKey, scheduler),
		attribute.Int64(PollGenerationKey, int64(generation)),
	}
}

// ErrorAttributes marks a span as failed with a coarse error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
