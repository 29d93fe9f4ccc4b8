package main

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pixelpress/internal/entitlements"
	"pixelpress/internal/imaging"
)

var titleCaser = cases.Title(language.AmericanEnglish)

func formatLabel(format imaging.Format) string {
	return strings.ToUpper(string(format))
}

func formatChoices() string {
	formats := imaging.AllFormats()
	choices := make([]string, 0, len(formats))
	for _, format := range formats {
		choices = append(choices, format.Extension())
	}
	return strings.Join(choices, ", ")
}

func periodLabel(period entitlements.PeriodKind) string {
	return titleCaser.String(string(period))
}

func byteCountLabel(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
