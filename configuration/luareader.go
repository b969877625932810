// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"errors"
	"time"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
)

// ErrNotATable - the configuration chunk did not return a table
var ErrNotATable = errors.New("configuration did not return a table")

// ParseConfigurationFile - read and execute a Lua file and assign
// the results to a configuration structure
func ParseConfigurationFile(fileName string, config interface{}, variables map[string]string) error {
	L := lua.NewState()
	defer L.Close()

	L.OpenLibs()

	// create the global "arg" table
	// arg[0] = config file
	arg := &lua.LTable{}
	arg.Insert(0, lua.LString(fileName))
	L.SetGlobal("arg", arg)

	for name, value := range variables {
		L.SetGlobal(name, lua.LString(value))
	}

	// execute configuration
	if err := L.DoFile(fileName); err != nil {
		return err
	}

	return mapTop(L, config)
}

// ParseConfigurationString - as ParseConfigurationFile, for an in-memory chunk
func ParseConfigurationString(chunk string, config interface{}) error {
	L := lua.NewState()
	defer L.Close()

	L.OpenLibs()
	if err := L.DoString(chunk); err != nil {
		return err
	}
	return mapTop(L, config)
}

func mapTop(L *lua.LState, config interface{}) error {
	table, ok := L.Get(L.GetTop()).(*lua.LTable)
	if !ok {
		return ErrNotATable
	}

	mapperOption := gluamapper.Option{
		NameFunc: func(s string) string {
			return s
		},
		TagName: "gluamapper",
	}
	mapper := gluamapper.Mapper{Option: mapperOption}
	return mapper.Map(table, config)
}

// Duration - parse a duration string, empty gives the default
func Duration(s string, defaultValue time.Duration) (time.Duration, error) {
	if "" == s {
		return defaultValue, nil
	}
	return time.ParseDuration(s)
}
