package http

import (
	"net/http"

	"github.com/avelichko/taskdeck/backend/internal/common/constants"
	"github.com/avelichko/taskdeck/backend/internal/common/httpmetrics"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
)

// BuildBaseHandler assembles the outer middleware chain shared by every
// route: security headers → recovery → trace id → body limit → metrics.
func BuildBaseHandler(log *logger.Logger, handler http.Handler) http.Handler {
	recovery := RecoveryMiddleware(log)
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)

	return SecurityHeadersMiddleware(recovery(TraceIDMiddleware(maxRequestSize(httpmetrics.Wrap(handler)))))
}
