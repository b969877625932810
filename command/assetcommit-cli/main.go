// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli"
)

type metadata struct {
	client  *client
	verbose bool
	quiet   bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

const defaultAPI = "http://127.0.0.1:2150"

func main() {
	app := newApp(os.Stdout, os.Stderr)
	err := app.Run(os.Args)
	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func newApp(w io.Writer, e io.Writer) *cli.App {

	app := cli.NewApp()
	app.Name = "assetcommit-cli"
	app.Usage = "commit assets through an assetcommitd daemon"
	app.Version = version
	app.HideVersion = true

	app.Writer = w
	app.ErrWriter = e

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "api, a",
			Value:  defaultAPI,
			Usage:  "daemon API `URL`",
			EnvVar: "ASSETCOMMIT_API",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.BoolFlag{
			Name:  "quiet, q",
			Usage: " do not show progress events",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "generate",
			Usage:     "create a new encrypted signing keyfile",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "keyfile, k",
					Value: "",
					Usage: "*keyfile `FILE` to create",
				},
				cli.StringFlag{
					Name:  "network, n",
					Value: "testing",
					Usage: " bitmark|testing|local `NETWORK`",
				},
				cli.StringFlag{
					Name:  "password, p",
					Value: "",
					Usage: " keyfile `PASSWORD` (prompted if omitted)",
				},
			},
			Action: runGenerate,
		},
		{
			Name:      "commit",
			Usage:     "commit an asset draft",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "file, f",
					Value: "",
					Usage: " read the whole draft from JSON `FILE`",
				},
				cli.StringFlag{
					Name:  "asset, A",
					Value: "",
					Usage: " existing asset `ID` (omit to create)",
				},
				cli.StringFlag{
					Name:  "owner, o",
					Value: "",
					Usage: "*owner `ADDRESS`",
				},
				cli.StringFlag{
					Name:  "name, n",
					Value: "",
					Usage: "*display `NAME`",
				},
				cli.StringFlag{
					Name:  "metadata, m",
					Value: "",
					Usage: " critical metadata `JSON` object",
				},
				cli.StringFlag{
					Name:  "extra, x",
					Value: "",
					Usage: " non-critical metadata `JSON` object",
				},
			},
			Action: runCommit,
		},
		{
			Name:      "batch",
			Usage:     "commit a list of drafts",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "file, f",
					Value: "",
					Usage: "*JSON `FILE` holding an array of drafts",
				},
			},
			Action: runBatch,
		},
		{
			Name:      "delete",
			Usage:     "delete an asset",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "asset, A",
					Value: "",
					Usage: "*asset `ID`",
				},
			},
			Action: runDelete,
		},
		{
			Name:      "show",
			Usage:     "display an indexed asset and its transaction log",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "asset, A",
					Value: "",
					Usage: "*asset `ID`",
				},
			},
			Action: runShow,
		},
		{
			Name:      "delegate",
			Usage:     "grant or revoke a delegate",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "delegate, d",
					Value: "",
					Usage: "*delegate `ADDRESS`",
				},
				cli.StringSliceFlag{
					Name:  "capability, c",
					Usage: "*update|delete `CAPABILITY` (repeatable)",
				},
				cli.BoolFlag{
					Name:  "revoke, r",
					Usage: " revoke instead of grant",
				},
			},
			Action: runDelegate,
		},
		{
			Name:   "pending",
			Usage:  "list signature requests awaiting a decision",
			Action: runPending,
		},
		{
			Name:      "approve",
			Usage:     "sign a pending request",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "id, i",
					Value: "",
					Usage: "*request `ID`",
				},
			},
			Action: runApprove,
		},
		{
			Name:      "reject",
			Usage:     "decline a pending request",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "id, i",
					Value: "",
					Usage: "*request `ID`",
				},
			},
			Action: runReject,
		},
		{
			Name:   "status",
			Usage:  "display daemon status",
			Action: runStatus,
		},
		{
			Name:  "version",
			Usage: "display assetcommit-cli version",
			Action: func(c *cli.Context) error {
				fmt.Fprintln(c.App.Writer, version)
				return nil
			},
		},
	}

	// set up the metadata shared by all commands
	app.Before = func(c *cli.Context) error {

		e := c.App.ErrWriter
		w := c.App.Writer
		verbose := c.GlobalBool("verbose")

		api := strings.TrimSuffix(c.GlobalString("api"), "/")
		if "" == api {
			return ErrMissingAPI
		}
		if !strings.HasPrefix(api, "http://") && !strings.HasPrefix(api, "https://") {
			return fmt.Errorf("api: %q must be an http or https URL", api)
		}

		if verbose {
			fmt.Fprintf(e, "api: %s\n", api)
		}

		c.App.Metadata["config"] = &metadata{
			client:  newClient(api, verbose, e),
			verbose: verbose,
			quiet:   c.GlobalBool("quiet"),
			e:       e,
			w:       w,
		}
		return nil
	}

	return app
}
