package metrics

import (
	"time"

	obserrors "github.com/worksuite/identity-api/internal/observability/errors"
	"github.com/worksuite/identity-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultDenied  = "denied"
	ResultError   = "error"
)

// Flow constants name the authentication path being measured.
const (
	FlowPassword = "password"
	FlowSSO      = "sso"
	FlowRegister = "register"
	FlowRestore  = "restore"
	FlowResolve  = "resolve"
	FlowSignOut  = "sign_out"
)

// AuthMetric captures details about an authentication event for metric emission.
type AuthMetric struct {
	Flow     string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitAuthEvent emits standardised authentication flow metrics.
func EmitAuthEvent(sink statsd.Sink, in AuthMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"flow":   in.Flow,
		"result": in.Result,
	}

	if in.Err != nil && in.Result != ResultSuccess {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.event", 1, tags)

	if in.Duration > 0 {
		sink.Timing("auth.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty maps.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
