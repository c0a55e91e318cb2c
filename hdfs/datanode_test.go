package hdfs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMD5MD5CRC32C(t *testing.T) {
	var seq []byte
	for i := 0; i < 8; i++ {
		for b := 0; b < 256; b++ {
			seq = append(seq, byte(b))
		}
	}

	cases := []struct {
		name      string
		data      []byte
		blockSize int64
		want      FileChecksum
	}{
		{"single block", []byte("hello world\n"), DefaultBlockSize, FileChecksum{
			Algorithm: "MD5-of-0MD5-of-512CRC32C",
			Bytes:     "000002000000000000000000fa619efcd0ef585bce164770e3d3adef",
			Length:    28,
		}},
		{"several chunks", bytes.Repeat([]byte("a"), 1300), DefaultBlockSize, FileChecksum{
			Algorithm: "MD5-of-0MD5-of-512CRC32C",
			Bytes:     "000002000000000000000000f9a3ffbd8f488f112293a41fd3aa5ff4",
			Length:    28,
		}},
		{"empty", nil, DefaultBlockSize, FileChecksum{
			Algorithm: "MD5-of-0MD5-of-512CRC32C",
			Bytes:     "000002000000000000000000d41d8cd98f00b204e9800998ecf8427e",
			Length:    28,
		}},
		{"two blocks", seq, 1024, FileChecksum{
			Algorithm: "MD5-of-2MD5-of-512CRC32C",
			Bytes:     "000002000000000000000002ced817a7f60e1c45f399745af3708e5d",
			Length:    28,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MD5MD5CRC32C(tc.data, tc.blockSize, DefaultBytesPerCRC); got != tc.want {
				t.Fatalf("got %+v\nwant %+v", got, tc.want)
			}
		})
	}
}

func TestDataNodeChecksum(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ns := getNodes(t)
	var dn DataNode
	dn.SetConfig(ns, 50075, nil)
	router := dn.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhdfs/v1/root/data.txt?op=GETFILECHECKSUM&namenoderpcaddress=localhost:50070", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", w.Code, w.Body)
	}
	var env fileChecksumResponse
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.FileChecksum == nil || env.FileChecksum.Bytes != "000002000000000000000000585a96aa59fc9a90cd2cd2102c8d563b" {
		t.Fatalf("checksum = %+v", env.FileChecksum)
	}
}

func TestDataNodeErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var dn DataNode
	dn.SetConfig(getNodes(t), 50075, nil)
	router := dn.Router()

	cases := []struct {
		target    string
		code      int
		exception string
	}{
		{"/webhdfs/v1/root/data.txt?op=OPEN", http.StatusBadRequest, "IllegalArgumentException"},
		{"/webhdfs/v1/root/missing?op=GETFILECHECKSUM", http.StatusNotFound, "FileNotFoundException"},
		{"/webhdfs/v1/root/temp?op=GETFILECHECKSUM", http.StatusNotFound, "FileNotFoundException"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.target, nil))
		if w.Code != tc.code {
			t.Errorf("%s: code = %d", tc.target, w.Code)
			continue
		}
		var env remoteExceptionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil || env.RemoteException == nil || env.RemoteException.Exception != tc.exception {
			t.Errorf("%s: body = %s", tc.target, w.Body)
		}
	}
}
