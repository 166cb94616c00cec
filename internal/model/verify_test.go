package model

import (
	"strings"
	"testing"
)

func TestVerifyONNX_EmptyAssetRoot(t *testing.T) {
	err := VerifyONNX(VerifyOptions{})
	if err == nil {
		t.Error("VerifyONNX(empty asset root) = nil; want error")
	}
	if !strings.Contains(err.Error(), "asset root") {
		t.Errorf("error %q should mention asset root", err)
	}
}

func TestVerifyONNX_MissingAssetRoot(t *testing.T) {
	err := VerifyONNX(VerifyOptions{AssetRoot: "/nonexistent/asset/root"})
	if err == nil {
		t.Error("VerifyONNX(missing asset root) = nil; want error")
	}
	if !strings.Contains(err.Error(), "load sessions") {
		t.Errorf("error %q should wrap session loading failure", err)
	}
}
