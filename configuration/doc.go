// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package configuration - read Lua configuration files
//
// The configuration file is an ordinary Lua chunk that must return a
// table; the table is mapped onto a Go structure using the
// "gluamapper" field tags.  Before the file runs, the global "arg"
// table holds the file name at arg[0] and any caller supplied
// variables are set as globals, so a file can do:
//
//   local data_directory = arg[0]:match("(.*/)")
//   return {
//       data_directory = data_directory,
//       chain = chain or "local",
//   }
package configuration
