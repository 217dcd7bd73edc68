package scanner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kres-mod/kres/internal/resource"
)

// Info describes a sensor configuration for part listings.
func Info(cfg Config) string {
	kind := KindFor(cfg.Type)
	var b strings.Builder
	fmt.Fprintf(&b, "%s scanner\n", kind.Title)
	fmt.Fprintf(&b, "Minimal scanning period: %s\n", SecondsToTime(cfg.ScanningSpeed))
	fmt.Fprintf(&b, "Minimum error margin: %.2f%%", cfg.MaxPrecision*100)

	switch cfg.Type {
	case resource.Mineral:
		fmt.Fprintf(&b, "\nOptimal scanning altitude: %sm\n", strconv.FormatFloat(cfg.OptimalAltitude, 'f', -1, 64))
		fmt.Fprintf(&b, "Scale altitude: %.3fm", cfg.ScaleFactor*cfg.OptimalAltitude)
	case resource.Gaseous:
		fmt.Fprintf(&b, "\nOptimal scanning pressure: %satm\n", strconv.FormatFloat(cfg.OptimalPressure, 'f', -1, 64))
		fmt.Fprintf(&b, "Scale pressure: %.3fatm", cfg.ScaleFactor*cfg.OptimalPressure)
	}

	for _, in := range cfg.Inputs {
		b.WriteString("\n\nInput:\n")
		fmt.Fprintf(&b, "Resource: %s\n", in.Name)
		fmt.Fprintf(&b, "Rate: %.1f/m", in.Rate*60)
	}
	return b.String()
}

// SecondsToTime formats a duration as "1d 2h 3m 4s", leaving out zero parts.
func SecondsToTime(seconds float64) string {
	total := int64(seconds)
	if total < 0 {
		total = 0
	}
	parts := []struct {
		n    int64
		unit string
	}{
		{total / 86400, "d"},
		{total % 86400 / 3600, "h"},
		{total % 3600 / 60, "m"},
		{total % 60, "s"},
	}
	var out []string
	for _, p := range parts {
		if p.n > 0 {
			out = append(out, strconv.FormatInt(p.n, 10)+p.unit)
		}
	}
	if len(out) == 0 {
		return "0s"
	}
	return strings.Join(out, " ")
}
