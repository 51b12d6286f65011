//go:build !linux
// +build !linux

package vdif

import (
	"net"
)

func toBatchConn(c net.PacketConn) batchConn {
	if xconn, ok := c.(batchConn); ok {
		return xconn
	}
	return nil
}

func readBatchUnavailable(xconn batchConn, err error) bool {
	ret := false
	if detector, ok := xconn.(batchErrDetector); ok {
		ret = detector.ReadBatchUnavailable(err)
	}
	return ret
}
