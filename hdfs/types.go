package hdfs

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"time"
)

// FileType is the `type` field of a FileStatus.
type FileType string

const (
	TypeFile      FileType = "FILE"
	TypeDirectory FileType = "DIRECTORY"
	TypeSymlink   FileType = "SYMLINK"
)

// FileStatus is the WebHDFS FileStatus JSON object:
//
//	{
//	  "accessTime"      : 0,
//	  "blockSize"       : 0,
//	  "group"           : "supergroup",
//	  "length"          : 0,             // in bytes, zero for directories
//	  "modificationTime": 1320173277227,
//	  "owner"           : "webuser",
//	  "pathSuffix"      : "",
//	  "permission"      : "777",
//	  "replication"     : 0,
//	  "type"            : "DIRECTORY"
//	}
type FileStatus struct {
	AccessTime       int64    `json:"accessTime"`
	BlockSize        int64    `json:"blockSize"`
	Group            string   `json:"group"`
	Length           int64    `json:"length"`
	ModificationTime int64    `json:"modificationTime"`
	Owner            string   `json:"owner"`
	PathSuffix       string   `json:"pathSuffix"`
	Permission       string   `json:"permission"`
	Replication      int16    `json:"replication"`
	Type             FileType `json:"type"`
}

func (s *FileStatus) IsDir() bool {
	return s.Type == TypeDirectory
}

// ModTime converts the millisecond modificationTime.
func (s *FileStatus) ModTime() time.Time {
	return time.UnixMilli(s.ModificationTime)
}

// Mode parses the octal permission string. Unparseable permissions give 0.
func (s *FileStatus) Mode() os.FileMode {
	mode, err := ParsePermission(s.Permission)
	if err != nil {
		mode = 0
	}
	switch s.Type {
	case TypeDirectory:
		mode |= os.ModeDir
	case TypeSymlink:
		mode |= os.ModeSymlink
	}
	return mode
}

// FileInfo adapts the status to os.FileInfo. An empty name falls back to
// pathSuffix.
func (s *FileStatus) FileInfo(name string) os.FileInfo {
	if name == "" {
		name = s.PathSuffix
	}
	return &fileInfo{name: path.Base(name), status: *s}
}

// stickyBit is the octal 1000 of a WebHDFS permission.
const stickyBit = 01000

// FormatPermission renders perm as WebHDFS octal digits, 0 to 1777. The
// sticky bit is taken from os.ModeSticky or from a raw 01000.
func FormatPermission(perm os.FileMode) string {
	v := uint64(perm.Perm())
	if perm&os.ModeSticky != 0 || perm&stickyBit != 0 {
		v |= stickyBit
	}
	return strconv.FormatUint(v, 8)
}

// ParsePermission reads WebHDFS octal digits; 1000 becomes os.ModeSticky.
func ParsePermission(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("permission %q: %w", s, err)
	}
	if v > 01777 {
		return 0, fmt.Errorf("permission %q out of range 0-1777", s)
	}
	mode := os.FileMode(v) & os.ModePerm
	if v&stickyBit != 0 {
		mode |= os.ModeSticky
	}
	return mode, nil
}

// fileInfo implements os.FileInfo
type fileInfo struct {
	name   string
	status FileStatus
}

func (i *fileInfo) Name() string       { return i.name }
func (i *fileInfo) Size() int64        { return i.status.Length }
func (i *fileInfo) Mode() os.FileMode  { return i.status.Mode() }
func (i *fileInfo) ModTime() time.Time { return i.status.ModTime() }
func (i *fileInfo) IsDir() bool        { return i.status.IsDir() }
func (i *fileInfo) Sys() interface{}   { return &i.status }

// FileChecksum is the result of GETFILECHECKSUM. Length is the number of
// checksum bytes, not the length of the hex string.
type FileChecksum struct {
	Algorithm string `json:"algorithm"`
	Bytes     string `json:"bytes"`
	Length    int    `json:"length"`
}

// RemoteException is the error envelope a NameNode or DataNode sends with a
// non-2xx status:
//
//	{
//	  "RemoteException":
//	  {
//	    "exception"    : "FileNotFoundException",
//	    "javaClassName": "java.io.FileNotFoundException",
//	    "message"      : "File does not exist: /foo/a.patch"
//	  }
//	}
type RemoteException struct {
	Exception     string `json:"exception"`
	JavaClassName string `json:"javaClassName"`
	Message       string `json:"message"`
}

func (re *RemoteException) Error() string {
	return re.Exception + ": " + re.Message
}

/** Response envelopes **/

// FileStatus is a pointer so a body without the key can be told apart.
type fileStatusResponse struct {
	FileStatus *FileStatus `json:"FileStatus"`
}

type fileStatusesResponse struct {
	FileStatuses *struct {
		FileStatus []FileStatus `json:"FileStatus"`
	} `json:"FileStatuses"`
}

type fileChecksumResponse struct {
	FileChecksum *FileChecksum `json:"FileChecksum"`
}

type booleanResponse struct {
	Boolean *bool `json:"boolean"`
}

type remoteExceptionResponse struct {
	RemoteException *RemoteException `json:"RemoteException"`
}
