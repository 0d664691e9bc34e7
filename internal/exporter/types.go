// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package exporter

// Result summarizes a completed export.
type Result struct {
	FilePath string
	RowCount int
	Pages    int // pages fetched, including a trailing empty page
	Columns  []string
}
