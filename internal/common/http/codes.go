package http

const (
	CodeUnknown             = "UNKNOWN"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeInvalidJSON         = "INVALID_JSON"
	CodeBadRequest          = "BAD_REQUEST"
	CodeMissingRefreshToken = "MISSING_REFRESH_TOKEN"
	CodeRateLimited         = "RATE_LIMITED"
)
