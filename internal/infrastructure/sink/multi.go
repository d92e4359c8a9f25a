package sink

import (
	"browserx/internal/application/port/output"
)

// Multi fans a line out to every non-nil sink.
func Multi(sinks ...output.LogSink) output.LogSink {
	kept := make([]output.LogSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return output.LogSinkFunc(func(line string) {
		for _, s := range kept {
			s.Log(line)
		}
	})
}

// Logger mirrors progress lines into the structured log at debug level.
func Logger(l output.LoggerPort) output.LogSink {
	return output.LogSinkFunc(func(line string) {
		l.Debug("progress", "line", line)
	})
}
