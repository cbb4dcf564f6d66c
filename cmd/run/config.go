package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML sizing file:
//
//	pool_size: 131072
//	stack_size: 16384
//	heap_size: 65536
//	thread_stack_size: 32768
//
// Zero or absent fields keep their defaults.
type fileConfig struct {
	PoolSize        uint32 `yaml:"pool_size"`
	StackSize       uint32 `yaml:"stack_size"`
	HeapSize        uint32 `yaml:"heap_size"`
	ThreadStackSize uint32 `yaml:"thread_stack_size"`
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
