// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"flag"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlices(t *testing.T) {
	value, rest := Pop([]int{1, 2, 3})
	assert.Equal(t, 3, value)
	assert.Equal(t, []int{1, 2}, rest)
	value, rest = Pop([]int{})
	assert.Equal(t, 0, value)
	assert.Empty(t, rest)

	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
	assert.Equal(t, []int{1, 3, 7}, SortedKeys(map[int]bool{7: true, 1: false, 3: true}))
	assert.Equal(t, []float64{3, 4}, Iota(3.0, 2))
}

func TestFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	values := FlagSet(fs, "ints", []int{1}, "list of ints", strconv.Atoi)
	require.NoError(t, fs.Parse([]string{"-ints=4, 5,6"}))
	assert.Equal(t, []int{4, 5, 6}, *values)
	assert.Equal(t, "4,5,6", fs.Lookup("ints").Value.String())
	require.Error(t, fs.Parse([]string{"-ints=x"}))
}
