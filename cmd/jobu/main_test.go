package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigFileOptionsEmptyPathYieldsNoOptions(t *testing.T) {
	opts := configFileOptions("")
	assert.Empty(t, opts)
}

func TestConfigFileOptionsWithExtensionSetsNameSearchPathAndType(t *testing.T) {
	opts := configFileOptions("/etc/jobu/production.yaml")
	assert.Len(t, opts, 3)
}

func TestConfigFileOptionsWithoutExtensionSkipsType(t *testing.T) {
	opts := configFileOptions("/etc/jobu/production")
	assert.Len(t, opts, 2)
}
