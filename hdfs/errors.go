package hdfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")
	ErrMissingHost       = errors.New("namenode host is required")
	ErrBadRedirect       = errors.New("redirect without a usable Location")
	ErrMalformedResponse = errors.New("malformed WebHDFS response")
)

// StatusError is returned for any answer other than 200 (or a followed 307).
// Remote is set when the body carried a RemoteException.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Remote     *RemoteException
}

func newStatusError(method, url string, code int, body []byte) *StatusError {
	e := &StatusError{
		Method:     method,
		URL:        url,
		StatusCode: code,
		Body:       body,
	}
	var env remoteExceptionResponse
	if json.Unmarshal(body, &env) == nil && env.RemoteException != nil {
		e.Remote = env.RemoteException
	}
	return e
}

func (e *StatusError) Error() string {
	if e.Remote != nil {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Remote.Error())
	}
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), body)
}

// Is maps WebHDFS answers onto the os error kinds, so callers can use
// errors.Is(err, os.ErrNotExist).
func (e *StatusError) Is(target error) bool {
	switch target {
	case os.ErrNotExist:
		if e.Remote != nil && e.Remote.Exception == "FileNotFoundException" {
			return true
		}
		return e.StatusCode == http.StatusNotFound
	case os.ErrPermission:
		if e.Remote != nil {
			switch e.Remote.Exception {
			case "AccessControlException", "SecurityException":
				return true
			}
		}
		return e.StatusCode == http.StatusUnauthorized
	case os.ErrExist:
		return e.Remote != nil && e.Remote.Exception == "FileAlreadyExistsException"
	}
	return false
}

// IsNotExist reports whether err says the path does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
