// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/assetcommit/configuration"
)

type pipelineType struct {
	Workers    int    `gluamapper:"workers"`
	BatchLimit int    `gluamapper:"batch_limit"`
	Timeout    string `gluamapper:"timeout"`
}

type testConfiguration struct {
	DataDirectory string            `gluamapper:"data_directory"`
	Chain         string            `gluamapper:"chain"`
	Pipeline      pipelineType      `gluamapper:"pipeline"`
	Levels        map[string]string `gluamapper:"levels"`
	Listen        []string          `gluamapper:"listen"`
}

const testChunk = `
local dir = arg[0]:match("(.*/)")
return {
    data_directory = dir,
    chain = chain or "local",
    pipeline = {
        workers = 4,
        batch_limit = 50,
        timeout = "30s",
    },
    levels = {
        ["*"] = "info",
        pipeline = "debug",
    },
    listen = { "127.0.0.1:8080", "[::1]:8080" },
}
`

func TestParseConfigurationFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "configuration")
	assert.Nil(t, err, "temp dir")
	defer os.RemoveAll(dir)

	fileName := filepath.Join(dir, "test.conf")
	err = ioutil.WriteFile(fileName, []byte(testChunk), 0600)
	assert.Nil(t, err, "write file")

	config := testConfiguration{
		Chain: "bitmark",
	}
	err = configuration.ParseConfigurationFile(fileName, &config, map[string]string{"chain": "testing"})
	assert.Nil(t, err, "parse error")

	assert.Equal(t, dir+"/", config.DataDirectory, "wrong data directory")
	assert.Equal(t, "testing", config.Chain, "variable not applied")
	assert.Equal(t, 4, config.Pipeline.Workers, "wrong workers")
	assert.Equal(t, 50, config.Pipeline.BatchLimit, "wrong batch limit")
	assert.Equal(t, "info", config.Levels["*"], "wrong default level")
	assert.Equal(t, "debug", config.Levels["pipeline"], "wrong pipeline level")
	assert.Equal(t, []string{"127.0.0.1:8080", "[::1]:8080"}, config.Listen, "wrong listen")

	d, err := configuration.Duration(config.Pipeline.Timeout, time.Minute)
	assert.Nil(t, err, "duration error")
	assert.Equal(t, 30*time.Second, d, "wrong duration")
}

func TestParseConfigurationStringNotTable(t *testing.T) {
	var config testConfiguration
	err := configuration.ParseConfigurationString(`return 42`, &config)
	assert.Equal(t, configuration.ErrNotATable, err, "wrong error")
}

func TestDurationDefault(t *testing.T) {
	d, err := configuration.Duration("", 5*time.Second)
	assert.Nil(t, err)
	assert.Equal(t, 5*time.Second, d)

	_, err = configuration.Duration("soon", time.Second)
	assert.NotNil(t, err)
}
