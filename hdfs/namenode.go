package hdfs

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// opMethods is the HTTP method each supported op must arrive with.
var opMethods = map[string]string{
	OpGetFileStatus:   http.MethodGet,
	OpListStatus:      http.MethodGet,
	OpGetFileChecksum: http.MethodGet,
	OpMkdirs:          http.MethodPut,
	OpRename:          http.MethodPut,
	OpSetReplication:  http.MethodPut,
	OpDelete:          http.MethodDelete,
}

// NameNode is an in-memory WebHDFS NameNode. Metadata ops are answered
// directly; GETFILECHECKSUM is redirected to DataNodeAddr.
type NameNode struct {
	NameSpace    *Namespace
	Location     string
	Port         int
	DataNodeAddr string
	ZapLogger    *zap.SugaredLogger
}

func (namenode *NameNode) SetConfig(ns *Namespace, port int, datanodeAddr string, logger *zap.SugaredLogger) {
	if ns == nil {
		ns = NewNamespace("", "")
	}
	if logger == nil {
		logger = nopLogger()
	}
	namenode.NameSpace = ns
	namenode.Port = port
	namenode.Location = net.JoinHostPort("localhost", strconv.Itoa(port))
	namenode.DataNodeAddr = datanodeAddr
	namenode.ZapLogger = logger
	namenode.ShowInfo()
}

func (namenode *NameNode) ShowInfo() {
	namenode.ZapLogger.Infof("NameNode location=%s port=%d datanode=%s",
		namenode.Location, namenode.Port, namenode.DataNodeAddr)
}

// Router builds the gin engine; Run serves it on Port.
func (namenode *NameNode) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), MwPrometheusHttp)
	// register the `/metrics` route.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.Any(DefaultPrefix+"/*path", namenode.serve)
	return router
}

func (namenode *NameNode) Run() error {
	return namenode.Router().Run(":" + strconv.Itoa(namenode.Port))
}

func (namenode *NameNode) serve(c *gin.Context) {
	p := c.Param("path")
	op := strings.ToUpper(c.Query("op"))

	method, ok := opMethods[op]
	if !ok {
		namenode.fail(c, errIllegalArgument("Invalid value for webhdfs parameter \"op\": No enum constant "+op))
		return
	}
	if c.Request.Method != method {
		namenode.fail(c, errIllegalArgument("Invalid http method "+c.Request.Method+" for op "+op))
		return
	}
	namenode.ZapLogger.Debugf("%s %s user=%s", op, p, c.Query("user.name"))

	switch op {
	case OpGetFileStatus:
		status, err := namenode.NameSpace.Status(p)
		if err != nil {
			namenode.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"FileStatus": status})

	case OpListStatus:
		statuses, err := namenode.NameSpace.List(p)
		if err != nil {
			namenode.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"FileStatuses": gin.H{"FileStatus": statuses}})

	case OpMkdirs:
		perm := DefaultDirPermission
		if s := c.Query("permission"); s != "" {
			v, err := ParsePermission(s)
			if err != nil {
				namenode.fail(c, errIllegalArgument("Invalid value for webhdfs parameter \"permission\": "+s))
				return
			}
			perm = v
		}
		if err := namenode.NameSpace.Mkdirs(p, perm, c.Query("user.name")); err != nil {
			namenode.fail(c, err)
			return
		}
		namenode.ZapLogger.Infof("mkdirs %s %s", p, FormatPermission(perm))
		c.JSON(http.StatusOK, gin.H{"boolean": true})

	case OpRename:
		dst := c.Query("destination")
		if dst == "" {
			namenode.fail(c, errIllegalArgument("Invalid value for webhdfs parameter \"destination\": "+dst))
			return
		}
		ok, err := namenode.NameSpace.Rename(p, dst)
		if err != nil {
			namenode.fail(c, err)
			return
		}
		namenode.ZapLogger.Infof("rename %s -> %s: %v", p, dst, ok)
		c.JSON(http.StatusOK, gin.H{"boolean": ok})

	case OpSetReplication:
		s := c.Query("replication")
		rf, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			namenode.fail(c, errIllegalArgument("Invalid value for webhdfs parameter \"replication\": "+s))
			return
		}
		ok, err := namenode.NameSpace.SetReplication(p, int16(rf))
		if err != nil {
			namenode.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"boolean": ok})

	case OpDelete:
		recursive := false
		if s := c.Query("recursive"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				namenode.fail(c, errIllegalArgument("Invalid value for webhdfs parameter \"recursive\": "+s))
				return
			}
			recursive = v
		}
		ok, err := namenode.NameSpace.Delete(p, recursive)
		if err != nil {
			namenode.fail(c, err)
			return
		}
		namenode.ZapLogger.Infof("delete %s recursive=%v: %v", p, recursive, ok)
		c.JSON(http.StatusOK, gin.H{"boolean": ok})

	case OpGetFileChecksum:
		if _, _, err := namenode.NameSpace.ReadFile(p); err != nil {
			namenode.fail(c, err)
			return
		}
		if namenode.DataNodeAddr == "" {
			namenode.fail(c, &namespaceError{http.StatusServiceUnavailable, RemoteException{
				Exception:     "IOException",
				JavaClassName: "java.io.IOException",
				Message:       "Failed to find datanode, suggest to check cluster health.",
			}})
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, namenode.datanodeURL(p, c.Request.URL.Query()))
	}
}

// datanodeURL keeps the request query and adds the NameNode address, like
// a real NameNode does when it redirects.
func (namenode *NameNode) datanodeURL(p string, q url.Values) string {
	q.Set("namenoderpcaddress", namenode.Location)
	u := url.URL{
		Scheme:   "http",
		Host:     namenode.DataNodeAddr,
		Path:     DefaultPrefix + p,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (namenode *NameNode) fail(c *gin.Context, err error) {
	writeRemoteException(c, namenode.ZapLogger, err)
}

// writeRemoteException answers err in the WebHDFS error envelope.
func writeRemoteException(c *gin.Context, logger *zap.SugaredLogger, err error) {
	var nsErr *namespaceError
	if !errors.As(err, &nsErr) {
		nsErr = &namespaceError{http.StatusInternalServerError, RemoteException{
			Exception:     "RuntimeException",
			JavaClassName: "java.lang.RuntimeException",
			Message:       err.Error(),
		}}
	}
	GaugeVecApiError.WithLabelValues(nsErr.remote.Exception).Inc()
	logger.Warnf("%s %s: %v", c.Request.Method, c.Request.URL.RequestURI(), err)
	c.JSON(nsErr.status, gin.H{"RemoteException": nsErr.remote})
}
