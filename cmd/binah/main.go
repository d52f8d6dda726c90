// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// binah runs small demo computation graphs, and prints their compiled plans and results.
//
// Usage:
//
//	binah [-demo=all|add|broadcast|placeholder[,...]] [-plain] [-v=1]
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/binah-ml/binah/pkg/support/xslices"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagDemos = xslices.Flag("demo", []string{"all"},
		fmt.Sprintf("Comma-separated list of demos to run, or \"all\". Available: %s.", strings.Join(demoNames(), ", ")),
		parseDemoName)
	flagPlain = flag.Bool("plain", false, "Disable colors in the output.")
)

func parseDemoName(name string) (string, error) {
	if name != "all" && !slices.Contains(demoNames(), name) {
		return "", errors.Errorf("unknown demo %q, available: all, %s", name, strings.Join(demoNames(), ", "))
	}
	return name, nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if len(flag.Args()) > 0 {
		klog.Errorf("Unexpected arguments %q. See 'binah -help'.", flag.Args())
		os.Exit(1)
	}
	if *flagPlain {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	selected := *flagDemos
	if len(selected) == 0 || slices.Contains(selected, "all") {
		selected = demoNames()
	}
	for _, name := range selected {
		result, err := runDemo(name)
		if err != nil {
			klog.Errorf("Demo %q failed: %+v", name, err)
			os.Exit(1)
		}
		fmt.Println(report(result))
	}
}
