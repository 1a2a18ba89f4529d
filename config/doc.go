// Package config loads library settings from an optional YAML file and the
// environment.
//
//	hub:
//	  endpoint: https://huggingface.co
//	  cacheDir: ~/.cache/tokenizer-ffi
//	  timeout: 5m
//	  offline: false
//	log:
//	  level: debug
//	  encoding: json
//
// Environment variables win over the file: HF_ENDPOINT, TOKENIZERS_CACHE,
// HF_HOME, TOKENIZERS_HUB_TIMEOUT, HF_HUB_OFFLINE, HF_TOKEN, TOKENIZERS_LOG
// and TOKENIZERS_LOG_ENCODING.
package config
