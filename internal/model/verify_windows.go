//go:build windows

package model

import (
	"errors"
	"io"
)

// VerifyOptions configures a smoke test of an asset root's four ONNX graphs.
type VerifyOptions struct {
	AssetRoot     string
	ORTLibrary    string
	ORTAPIVersion uint32
	Stdout        io.Writer
	Stderr        io.Writer
}

// VerifyONNX is unavailable on windows: the purego ONNX Runtime binding this
// module uses does not support it.
func VerifyONNX(_ VerifyOptions) error {
	return errors.New("onnx model verification is unavailable on windows in this build")
}
