package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/filter"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// buildFilter creates a filter.Filter from the flag viper.
func buildFilter(v *viper.Viper) (*filter.Filter, error) {
	var opts []filter.Option

	limitVal := v.GetInt("limit")
	if limitVal > 0 {
		opts = append(opts, filter.WithLimit(limitVal))
	} else {
		opts = append(opts, filter.WithLimit(0)) // unlimited
	}

	minSizeStr := v.GetString("analyze.min_size")
	if minSizeStr != "" {
		minSize, err := types.ParseSize(minSizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid min-size %q: %w", minSizeStr, err)
		}
		opts = append(opts, filter.WithMinSize(minSize))
	}

	olderThanStr := v.GetString("older_than")
	if olderThanStr != "" {
		d, err := filter.ParseDuration(olderThanStr)
		if err != nil {
			return nil, fmt.Errorf("invalid older-than %q: %w", olderThanStr, err)
		}
		opts = append(opts, filter.WithOlderThan(d))
	}

	newerThanStr := v.GetString("newer_than")
	if newerThanStr != "" {
		d, err := filter.ParseDuration(newerThanStr)
		if err != nil {
			return nil, fmt.Errorf("invalid newer-than %q: %w", newerThanStr, err)
		}
		opts = append(opts, filter.WithNewerThan(d))
	}

	fileTypesStr := v.GetString("type")
	if fileTypesStr != "" {
		groups := parseCommaSeparated(fileTypesStr)
		opts = append(opts, filter.WithTypeGroups(groups...))
	}

	// Extensions override type groups when both are given.
	extStr := v.GetString("ext")
	if extStr != "" {
		exts := parseCommaSeparated(extStr)
		for i, ext := range exts {
			if !strings.HasPrefix(ext, ".") {
				exts[i] = "." + ext
			}
		}
		opts = append(opts, filter.WithExtensions(exts...))
	}

	includeStr := v.GetString("include")
	if includeStr != "" {
		patterns := parseCommaSeparated(includeStr)
		opts = append(opts, filter.WithInclude(patterns...))
	}

	exclude := v.GetStringSlice("analyze.exclude")
	if len(exclude) > 0 {
		opts = append(opts, filter.WithExclude(exclude...))
	}

	maxDepthVal := v.GetInt("max_depth")
	if maxDepthVal > 0 {
		opts = append(opts, filter.WithMaxDepth(maxDepthVal))
	}

	sortByStr := v.GetString("sort")
	if sortByStr == "" {
		sortByStr = "size"
	}
	sortField, err := filter.ParseSortField(sortByStr)
	if err != nil {
		return nil, fmt.Errorf("invalid sort field %q: %w", sortByStr, err)
	}
	opts = append(opts, filter.WithSortBy(sortField))

	// Descending (largest/oldest first) is the natural order for size
	// and age; ascending (A-Z) for path and name. --reverse flips the
	// natural order, whichever it is.
	reverseVal := v.GetBool("reverse")
	descending := !reverseVal
	if sortField == filter.SortPath || sortField == filter.SortName {
		descending = reverseVal
	}
	opts = append(opts, filter.WithSortDescending(descending))

	return filter.New(opts...), nil
}

// parsePIDList parses a comma-separated PID list. Non-numeric entries
// are an error; out-of-range values pass through so the runner can
// record them as skipped.
func parsePIDList(s string) ([]int, error) {
	parts := parseCommaSeparated(s)
	pids := make([]int, 0, len(parts))
	for _, p := range parts {
		pid, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pid %q", p)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// parseCommaSeparated splits a comma-separated string and trims
// whitespace.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
