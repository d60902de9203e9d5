package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"qigraph/internal/observ"
)

func printTimings(out io.Writer, timer *observ.Timer) {
	if out == nil {
		return
	}
	report := timer.Report()
	for _, p := range report.Phases {
		logger.Debug("phase timing",
			zap.String("phase", p.Name),
			zap.Float64("ms", p.DurationMS),
			zap.String("note", p.Note))
	}
	if len(report.Phases) == 0 {
		return
	}
	if _, err := io.WriteString(out, timer.Summary()); err != nil {
		panic(fmt.Errorf("write timings: %w", err))
	}
}
