package hdfs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Client talks to a single NameNode. It holds no mutable state, so one
// client may be shared between goroutines; every call opens its own
// connections.
type Client struct {
	conf      Config
	transport *Transport
	logger    *zap.SugaredLogger
}

// NewClient validates conf, applying the default port, user and prefix.
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, ErrMissingHost
	}
	c := *conf
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Logger == nil {
		c.Logger = nopLogger()
	}
	return &Client{
		conf:      c,
		transport: NewTransport(&c),
		logger:    c.Logger,
	}, nil
}

// Config returns a copy of the connection parameters.
func (client *Client) Config() Config {
	return client.conf
}

// FileStatus returns the status of path (GETFILESTATUS).
func (client *Client) FileStatus(ctx context.Context, path string) (*FileStatus, error) {
	env, err := client.fileStatus(ctx, path)
	if err != nil {
		return nil, err
	}
	if env.FileStatus == nil {
		return nil, malformed(OpGetFileStatus, path, "FileStatus")
	}
	return env.FileStatus, nil
}

// FileChecksum returns the checksum of a file (GETFILECHECKSUM). The
// NameNode redirects this call to a DataNode.
func (client *Client) FileChecksum(ctx context.Context, path string) (*FileChecksum, error) {
	body, err := client.call(ctx, http.MethodGet, path, OpGetFileChecksum, nil)
	if err != nil {
		return nil, err
	}
	var env fileChecksumResponse
	if err := decode(OpGetFileChecksum, path, body, &env); err != nil {
		return nil, err
	}
	if env.FileChecksum == nil {
		return nil, malformed(OpGetFileChecksum, path, "FileChecksum")
	}
	return env.FileChecksum, nil
}

// Rename moves src to dst and reports the NameNode's verdict.
func (client *Client) Rename(ctx context.Context, src, dst string) (bool, error) {
	ok, err := client.boolean(ctx, http.MethodPut, src, OpRename, url.Values{"destination": {dst}})
	if err == nil {
		client.logger.Infof("rename %s -> %s: %v", src, dst, ok)
	}
	return ok, err
}

// Mkdir creates path and any missing parents, like mkdir -p. A zero perm
// means DefaultDirPermission.
func (client *Client) Mkdir(ctx context.Context, path string, perm os.FileMode) (bool, error) {
	if perm == 0 {
		perm = DefaultDirPermission
	}
	permission := FormatPermission(perm)
	params := url.Values{"permission": {permission}}
	ok, err := client.boolean(ctx, http.MethodPut, path, OpMkdirs, params)
	if err == nil {
		client.logger.Infof("mkdir %s (%s): %v", path, permission, ok)
	}
	return ok, err
}

// List returns the entries of a directory (LISTSTATUS) in server order.
func (client *Client) List(ctx context.Context, path string) ([]FileStatus, error) {
	body, err := client.call(ctx, http.MethodGet, path, OpListStatus, nil)
	if err != nil {
		return nil, err
	}
	var env fileStatusesResponse
	if err := decode(OpListStatus, path, body, &env); err != nil {
		return nil, err
	}
	if env.FileStatuses == nil {
		return nil, malformed(OpListStatus, path, "FileStatuses")
	}
	if env.FileStatuses.FileStatus == nil {
		return []FileStatus{}, nil
	}
	return env.FileStatuses.FileStatus, nil
}

// Ls returns just the names (pathSuffix) of a directory's entries.
func (client *Client) Ls(ctx context.Context, path string) ([]string, error) {
	statuses, err := client.List(ctx, path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.PathSuffix)
	}
	return names, nil
}

// GetReplication returns the replication factor of path.
func (client *Client) GetReplication(ctx context.Context, path string) (int16, error) {
	status, err := client.FileStatus(ctx, path)
	if err != nil {
		return 0, err
	}
	return status.Replication, nil
}

// SetReplication changes the replication factor of a file.
func (client *Client) SetReplication(ctx context.Context, path string, rf int16) (bool, error) {
	params := url.Values{"replication": {strconv.Itoa(int(rf))}}
	ok, err := client.boolean(ctx, http.MethodPut, path, OpSetReplication, params)
	if err == nil {
		client.logger.Infof("setrep %s %d: %v", path, rf, ok)
	}
	return ok, err
}

// Delete removes path. Non-empty directories need recursive.
func (client *Client) Delete(ctx context.Context, path string, recursive bool) (bool, error) {
	params := url.Values{"recursive": {strconv.FormatBool(recursive)}}
	ok, err := client.boolean(ctx, http.MethodDelete, path, OpDelete, params)
	if err == nil {
		client.logger.Infof("delete %s (recursive=%v): %v", path, recursive, ok)
	}
	return ok, err
}

// Exists reports whether the status response for path carries a FileStatus.
// A not-found answer is false, not an error.
func (client *Client) Exists(ctx context.Context, path string) (bool, error) {
	env, err := client.fileStatus(ctx, path)
	if err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return env.FileStatus != nil, nil
}

// IsDir issues its own status request and then Exists, two round trips.
func (client *Client) IsDir(ctx context.Context, path string) (bool, error) {
	return client.isType(ctx, path, TypeDirectory)
}

// IsFile issues its own status request and then Exists, two round trips.
func (client *Client) IsFile(ctx context.Context, path string) (bool, error) {
	return client.isType(ctx, path, TypeFile)
}

func (client *Client) isType(ctx context.Context, path string, want FileType) (bool, error) {
	env, err := client.fileStatus(ctx, path)
	if err != nil && !IsNotExist(err) {
		return false, err
	}
	exists, err := client.Exists(ctx, path)
	if err != nil || !exists {
		return false, err
	}
	return env != nil && env.FileStatus != nil && env.FileStatus.Type == want, nil
}

func (client *Client) fileStatus(ctx context.Context, path string) (*fileStatusResponse, error) {
	body, err := client.call(ctx, http.MethodGet, path, OpGetFileStatus, nil)
	if err != nil {
		return nil, err
	}
	env := &fileStatusResponse{}
	if err := decode(OpGetFileStatus, path, body, env); err != nil {
		return nil, err
	}
	return env, nil
}

func (client *Client) boolean(ctx context.Context, method, path, op string, params url.Values) (bool, error) {
	body, err := client.call(ctx, method, path, op, params)
	if err != nil {
		return false, err
	}
	var env booleanResponse
	if err := decode(op, path, body, &env); err != nil {
		return false, err
	}
	if env.Boolean == nil {
		return false, malformed(op, path, "boolean")
	}
	return *env.Boolean, nil
}

func (client *Client) call(ctx context.Context, method, path, op string, params url.Values) ([]byte, error) {
	uri := client.buildURL(path, op, params)
	return client.transport.Request(ctx, client.conf.Host, client.conf.Port, method, uri)
}

// buildURL returns {prefix}{path}?user.name={user}&op={op}[&params], with the
// path escaped per segment and the query values encoded.
func (client *Client) buildURL(path, op string, params url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	q := url.Values{}
	q.Set("user.name", client.conf.User)
	q.Set("op", op)
	for k, v := range params {
		q[k] = v
	}
	u := url.URL{
		Path:     client.conf.Prefix + path,
		RawQuery: q.Encode(),
	}
	return u.RequestURI()
}

func decode(op, path string, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s %s: %w", op, path, err)
	}
	return nil
}

func malformed(op, path, key string) error {
	return fmt.Errorf("%w: %s %s: no %q in response", ErrMalformedResponse, op, path, key)
}
