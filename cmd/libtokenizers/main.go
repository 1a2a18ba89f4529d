// Command libtokenizers builds the tokenizer library for C callers:
//
//	go build -buildmode=c-shared -o libtokenizers.so ./cmd/libtokenizers
//
// tokenizers.h declares the exported functions. Configuration comes from
// the environment (see package config); set TOKENIZERS_LOG=debug to log
// every failed call to stderr.
package main

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/tokenizer-ffi/abi"
	"github.com/wippyai/tokenizer-ffi/cabi"
	"github.com/wippyai/tokenizer-ffi/config"
	"github.com/wippyai/tokenizer-ffi/engine"
	"github.com/wippyai/tokenizer-ffi/hub"
)

func main() {}

// surface is built on first use so that loading the library does no work.
var surface = sync.OnceValue(func() *abi.Surface {
	cfg, cfgErr := config.FromEnv()

	log, err := cfg.Log.Logger()
	if err != nil {
		cfgErr = err
	}
	abi.SetLogger(log)
	engine.SetLogger(log)
	hub.SetLogger(log)

	if cfgErr != nil {
		log.Warn("using default configuration", zap.Error(cfgErr))
	}

	client := hub.New(cfg.Hub)
	return abi.New(cabi.Heap{}, abi.Native, abi.NewTable(), engine.NewLoader(client))
})
