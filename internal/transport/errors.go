package transport

import "fmt"

// ClientError is a terminal 4xx response. 429 is special-cased by the
// retry policy before a ClientError surfaces.
type ClientError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *ClientError) Error() string {
	return httpErrorMessage(e.Method, e.URL, e.StatusCode, e.Body)
}

// ServerError is a 5xx response. 502 and 503 are retried before one
// surfaces; everything else is terminal immediately.
type ServerError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *ServerError) Error() string {
	return httpErrorMessage(e.Method, e.URL, e.StatusCode, e.Body)
}

func httpErrorMessage(method, url string, status int, body string) string {
	if len(body) > 100 {
		body = body[:100] + "…"
	}
	if body != "" {
		return fmt.Sprintf("%s-request to %s resulted in HTTP %d (%s)", method, url, status, body)
	}
	return fmt.Sprintf("%s-request to %s resulted in HTTP %d", method, url, status)
}

// responseError wraps a non-2xx status in the matching typed error.
func responseError(method, url string, status int, body string) error {
	if status >= 500 {
		return &ServerError{StatusCode: status, Method: method, URL: url, Body: body}
	}
	return &ClientError{StatusCode: status, Method: method, URL: url, Body: body}
}
