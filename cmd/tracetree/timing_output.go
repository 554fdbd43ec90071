package main

import (
	"fmt"
	"io"
	"time"

	"tracetree/internal/pipeline"
)

var stageVerbs = map[pipeline.Stage]string{
	pipeline.StageRead:  "read",
	pipeline.StageBuild: "built",
	pipeline.StageText:  "wrote text",
	pipeline.StageDot:   "wrote dot",
}

func printStageTimings(out io.Writer, timings pipeline.Timings) error {
	if out == nil {
		return nil
	}
	for _, stage := range pipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %.1f ms\n", stageVerbs[stage], toMillis(timings.Duration(stage))); err != nil {
			return err
		}
	}
	return nil
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
