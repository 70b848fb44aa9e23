package es

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// roundTripLogger adapts zerolog to elastictransport.Logger.
type roundTripLogger struct {
	log   zerolog.Logger
	trace bool
}

func (l *roundTripLogger) LogRoundTrip(req *http.Request, res *http.Response, err error, start time.Time, dur time.Duration) error {
	var ev *zerolog.Event
	if err != nil {
		ev = l.log.Warn().Err(err)
	} else {
		ev = l.log.Debug()
	}
	if !ev.Enabled() {
		return nil
	}

	ev = ev.Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Dur("duration", dur)
	if res != nil {
		ev = ev.Int("status", res.StatusCode)
	}

	if l.trace {
		if req.Body != nil && req.Body != http.NoBody {
			if b, rerr := io.ReadAll(req.Body); rerr == nil {
				ev = ev.Bytes("request_body", b)
			}
		}
		if res != nil && res.Body != nil && res.Body != http.NoBody {
			if b, rerr := io.ReadAll(res.Body); rerr == nil {
				ev = ev.Bytes("response_body", b)
			}
		}
	}

	ev.Msg("es round trip")
	return nil
}

func (l *roundTripLogger) RequestBodyEnabled() bool  { return l.trace }
func (l *roundTripLogger) ResponseBodyEnabled() bool { return l.trace }

// restyLogger forwards resty's internal messages to zerolog. resty warns
// about its own setup, such as basic auth over plain HTTP, which is the
// normal local cluster setup, so warnings go out at debug level.
type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Warn().Str("source", "resty").Msgf(strings.TrimSpace(format), v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Debug().Str("source", "resty").Msgf(strings.TrimSpace(format), v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Trace().Str("source", "resty").Msgf(strings.TrimSpace(format), v...)
}
