package hdfs

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultBytesPerCRC is dfs.bytes-per-checksum.
const DefaultBytesPerCRC = 512

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// DataNode answers the redirected half of GETFILECHECKSUM. Blocks are read
// straight from the NameNode's namespace.
type DataNode struct {
	NameSpace   *Namespace
	Location    string
	Port        int
	BytesPerCRC int
	ZapLogger   *zap.SugaredLogger
}

func (datanode *DataNode) SetConfig(ns *Namespace, port int, logger *zap.SugaredLogger) {
	if logger == nil {
		logger = nopLogger()
	}
	datanode.NameSpace = ns
	datanode.Port = port
	datanode.Location = net.JoinHostPort("localhost", strconv.Itoa(port))
	datanode.BytesPerCRC = DefaultBytesPerCRC
	datanode.ZapLogger = logger
	datanode.ShowInfo()
}

func (datanode *DataNode) ShowInfo() {
	datanode.ZapLogger.Infof("DataNode location=%s port=%d bytesPerCRC=%d",
		datanode.Location, datanode.Port, datanode.BytesPerCRC)
}

func (datanode *DataNode) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), MwPrometheusHttp)
	// register the `/metrics` route.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET(DefaultPrefix+"/*path", datanode.serve)
	return router
}

func (datanode *DataNode) Run() error {
	return datanode.Router().Run(":" + strconv.Itoa(datanode.Port))
}

func (datanode *DataNode) serve(c *gin.Context) {
	p := c.Param("path")
	op := strings.ToUpper(c.Query("op"))
	if op != OpGetFileChecksum {
		writeRemoteException(c, datanode.ZapLogger, errIllegalArgument("Invalid operation "+op))
		return
	}

	data, blockSize, err := datanode.NameSpace.ReadFile(p)
	if err != nil {
		writeRemoteException(c, datanode.ZapLogger, err)
		return
	}
	bytesPerCRC := datanode.BytesPerCRC
	if bytesPerCRC <= 0 {
		bytesPerCRC = DefaultBytesPerCRC
	}
	sum := MD5MD5CRC32C(data, blockSize, bytesPerCRC)
	datanode.ZapLogger.Debugf("checksum %s: %s", p, sum.Bytes)
	c.JSON(http.StatusOK, gin.H{"FileChecksum": sum})
}

// MD5MD5CRC32C computes the HDFS composite file checksum: a CRC32C per
// bytesPerCRC chunk, an MD5 of each block's CRCs, and an MD5 of those.
// The encoded bytes are bytesPerCRC (int32), crcPerBlock (int64) and the
// final MD5, big-endian. crcPerBlock is only reported for multi-block files.
func MD5MD5CRC32C(data []byte, blockSize int64, bytesPerCRC int) FileChecksum {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	blocks := md5.New()
	nblocks := 0
	for off := int64(0); off < int64(len(data)); off += blockSize {
		end := off + blockSize
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		blocks.Write(blockMD5(data[off:end], bytesPerCRC))
		nblocks++
	}

	var crcPerBlock int64
	if nblocks > 1 {
		crcPerBlock = blockSize / int64(bytesPerCRC)
	}

	buf := make([]byte, 0, 4+8+md5.Size)
	buf = binary.BigEndian.AppendUint32(buf, uint32(bytesPerCRC))
	buf = binary.BigEndian.AppendUint64(buf, uint64(crcPerBlock))
	buf = blocks.Sum(buf)

	return FileChecksum{
		Algorithm: fmt.Sprintf("MD5-of-%dMD5-of-%dCRC32C", crcPerBlock, bytesPerCRC),
		Bytes:     hex.EncodeToString(buf),
		Length:    len(buf),
	}
}

func blockMD5(block []byte, bytesPerCRC int) []byte {
	crcs := make([]byte, 0, (len(block)/bytesPerCRC+1)*4)
	for off := 0; off < len(block); off += bytesPerCRC {
		end := off + bytesPerCRC
		if end > len(block) {
			end = len(block)
		}
		crcs = binary.BigEndian.AppendUint32(crcs, crc32.Checksum(block[off:end], castagnoli))
	}
	sum := md5.Sum(crcs)
	return sum[:]
}
