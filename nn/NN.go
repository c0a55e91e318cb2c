package main

import (
	"flag"
	"net"
	"strconv"

	"webhdfs/hdfs"
)

// In-memory WebHDFS cluster: one NameNode and the DataNode it redirects to.
//
//	go run NN.go -fixture fixture.yaml -port 50070 -dnport 50075
func main() {
	fixture := flag.String("fixture", "", "YAML namespace fixture")
	port := flag.Int("port", hdfs.DefaultPort, "NameNode WebHDFS port")
	dnport := flag.Int("dnport", 50075, "DataNode WebHDFS port")
	dnhost := flag.String("dnhost", "localhost", "DataNode host put in redirects")
	logFile := flag.String("log", "", "log file, stderr when empty")
	flag.Parse()

	logger := hdfs.InitLogger(*logFile)
	defer logger.Sync()

	ns := hdfs.NewNamespace("", "")
	if *fixture != "" {
		loaded, err := hdfs.LoadFixture(*fixture)
		if err != nil {
			logger.Fatalf("XXX NameNode error: %v", err)
		}
		ns = loaded
	}

	var dn hdfs.DataNode
	dn.SetConfig(ns, *dnport, logger)
	go func() {
		if err := dn.Run(); err != nil {
			logger.Fatalf("XXX DataNode error: %v", err)
		}
	}()

	var nn hdfs.NameNode
	nn.SetConfig(ns, *port, net.JoinHostPort(*dnhost, strconv.Itoa(*dnport)), logger)
	if err := nn.Run(); err != nil {
		logger.Fatalf("XXX NameNode error: %v", err)
	}
}
