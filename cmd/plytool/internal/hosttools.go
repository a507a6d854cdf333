// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"
	"text/tabwriter"

	"github.com/goplus/plybuild/internal/hosttools"
	"github.com/spf13/cobra"
)

// toolRunner runs host tools. Tests replace it.
var toolRunner = hosttools.ExecRunner()

var hosttoolsCmd = &cobra.Command{
	Use:   "hosttools",
	Short: "Show the build tools found on this machine",
	Args:  cobra.NoArgs,
	RunE:  runHosttools,
}

func init() {
	rootCmd.AddCommand(hosttoolsCmd)
}

func runHosttools(cmd *cobra.Command, args []string) error {
	host := hosttools.DetectHost()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "host: %s/%s", host.OS, host.Arch)
	if host.Distro != "" {
		fmt.Fprintf(out, " (%s)", host.Distro)
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, st := range hosttools.DetectAll(cmd.Context(), toolRunner, hosttools.Known()) {
		switch {
		case st.Path == "":
			fmt.Fprintf(tw, "%s\tnot found\t\n", st.Tool.Name)
		case st.Err != nil:
			fmt.Fprintf(tw, "%s\t%s\t%v\n", st.Tool.Name, st.Path, st.Err)
		default:
			fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Tool.Name, st.Path, st.Version)
		}
	}
	return tw.Flush()
}
