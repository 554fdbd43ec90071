// Package pipeline runs a trace through reading, reconstruction and rendering.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"tracetree/internal/callstack"
	"tracetree/internal/calltree"
	"tracetree/internal/diag"
	"tracetree/internal/record"
	"tracetree/internal/render"
	"tracetree/internal/trace"
	"tracetree/internal/tracecache"
)

// DefaultMaxDiagnostics bounds the diagnostics kept per run.
const DefaultMaxDiagnostics = 1000

// Request configures one run.
type Request struct {
	// Input is the trace export. A missing or unreadable file is an empty
	// trace.
	Input   string
	Outputs []Output
	// Stdout receives outputs whose path is Stdout. Defaults to os.Stdout.
	Stdout io.Writer

	Skip         []string
	Columns      []string
	PruneSkipped bool

	// Cache, when set, stores and replays parsed traces.
	Cache *tracecache.Cache
	// MemoSize is the result memo capacity; zero selects the default.
	MemoSize uint32

	MaxDiagnostics int
	// Reporter also receives every diagnostic, as it is produced.
	Reporter diag.Reporter
	Progress ProgressSink
}

// Result captures the tree, counters and timings of a run.
type Result struct {
	Tree        *callstack.Tree
	Stats       callstack.Stats
	OpenFrames  []calltree.NodeID
	Diagnostics *diag.Bag
	Timings     Timings
	Reports     map[Format]render.Report
	Written     []Output

	CacheHit   bool
	MemoHits   uint64
	MemoMisses uint64
}

// Run reads req.Input, rebuilds its call tree and writes every requested
// output in order. Errors are returned only for output failures and a
// cancelled context; data problems become diagnostics.
func Run(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if req == nil {
		return result, fmt.Errorf("missing pipeline request")
	}
	maxDiag := req.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = DefaultMaxDiagnostics
	}
	result.Diagnostics = diag.NewBag(maxDiag)
	reporter := diag.MultiReporter{diag.BagReporter{Bag: result.Diagnostics}, req.Reporter}

	item := req.Input
	emitQueued(req.Progress, item, req.Outputs)

	// read
	start := time.Now()
	emit(req.Progress, item, StageRead, StatusWorking, nil, 0)
	_, span := trace.Start(ctx, trace.ScopeStage, string(StageRead))
	entry, hit := readTrace(req, reporter, &result)
	result.CacheHit = hit
	span.WithExtra("records", fmt.Sprint(len(entry.Records))).End("")
	result.Timings.Set(StageRead, time.Since(start))
	emit(req.Progress, item, StageRead, StatusDone, nil, result.Timings.Duration(StageRead))

	if err := ctx.Err(); err != nil {
		return result, err
	}

	// build
	start = time.Now()
	emit(req.Progress, item, StageBuild, StatusWorking, nil, 0)
	builder := callstack.New(reporter)
	result.Tree = builder.Build(ctx, &entrySource{entry: &entry})
	result.Stats = builder.Stats()
	result.OpenFrames = builder.OpenFrames()
	result.Timings.Set(StageBuild, time.Since(start))
	emit(req.Progress, item, StageBuild, StatusDone, nil, result.Timings.Duration(StageBuild))

	// render
	result.Reports = make(map[Format]render.Report, len(req.Outputs))
	for _, stage := range []Stage{StageText, StageDot} {
		outs := outputsFor(req.Outputs, Format(stage))
		if len(outs) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		start = time.Now()
		emit(req.Progress, item, stage, StatusWorking, nil, 0)
		_, span := trace.Start(ctx, trace.ScopeStage, string(stage))
		for _, out := range outs {
			rep, err := writeOutput(req, out, result.Tree)
			if err != nil {
				span.End(err.Error())
				emit(req.Progress, item, stage, StatusError, err, time.Since(start))
				return result, err
			}
			result.Reports[out.Format] = rep
			result.Written = append(result.Written, out)
		}
		span.End("")
		result.Timings.Set(stage, time.Since(start))
		emit(req.Progress, item, stage, StatusDone, nil, result.Timings.Duration(stage))
	}

	result.Diagnostics.Sort()
	return result, nil
}

func emitQueued(sink ProgressSink, item string, outputs []Output) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Item: item, Stage: StageRead, Status: StatusQueued})
	for _, stage := range []Stage{StageText, StageDot} {
		if len(outputsFor(outputs, Format(stage))) == 0 {
			sink.OnEvent(Event{Item: item, Stage: stage, Status: StatusSkipped})
		}
	}
}

func outputsFor(outputs []Output, format Format) []Output {
	var out []Output
	for _, o := range outputs {
		if o.Format == format {
			out = append(out, o)
		}
	}
	return out
}

// readTrace loads the records of req.Input, from the cache when possible.
func readTrace(req *Request, reporter diag.Reporter, result *Result) (tracecache.Entry, bool) {
	var entry tracecache.Entry
	if req.Input == "" {
		return entry, false
	}
	f, err := os.Open(req.Input)
	if err != nil {
		reporter.Report(diag.Diagnostic{
			Severity: diag.SevWarning,
			Code:     diag.InputReadError,
			Message:  fmt.Sprintf("input not readable, treating as empty: %v", err),
			Fields:   []diag.Field{{Key: "path", Value: req.Input}},
		})
		return entry, false
	}
	defer f.Close()

	cache := req.Cache
	var key tracecache.Digest
	if cache != nil {
		key, err = digestAndRewind(f)
		if err != nil {
			log.WithError(err).WithField("path", req.Input).Warn("trace cache disabled for this input")
			cache = nil
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return entry, false
			}
		} else if ok, err := cache.Get(key, &entry); err != nil {
			log.WithError(err).WithField("digest", key.String()).Warn("trace cache entry unreadable")
		} else if ok {
			log.WithFields(log.Fields{"digest": key.String(), "records": len(entry.Records)}).Debug("trace cache hit")
			reportTruncation(reporter, &entry)
			return entry, true
		}
	}

	memo, err := record.NewMemo(req.MemoSize)
	if err != nil {
		log.WithError(err).Debug("result memo disabled")
	}
	rd := record.NewReader(f).WithMemo(memo)
	for {
		rec, ok := rd.Next()
		if !ok {
			break
		}
		entry.Records = append(entry.Records, rec)
		entry.Lines = append(entry.Lines, rd.Line())
	}
	entry.LastLine = rd.Line()
	entry.Truncated = rd.Truncated()
	result.MemoHits, result.MemoMisses = memo.Stats()
	reportTruncation(reporter, &entry)

	if err := rd.Err(); err != nil {
		reporter.Report(diag.Diagnostic{
			Severity: diag.SevWarning,
			Code:     diag.InputReadError,
			Message:  fmt.Sprintf("reading stopped after line %d: %v", entry.LastLine, err),
			Line:     entry.LastLine,
			Fields:   []diag.Field{{Key: "path", Value: req.Input}},
		})
		return entry, false
	}

	if cache != nil {
		if err := cache.Put(key, &entry); err != nil {
			log.WithError(err).WithField("digest", key.String()).Warn("trace cache not updated")
		}
	}
	return entry, false
}

func digestAndRewind(f *os.File) (tracecache.Digest, error) {
	key, err := tracecache.DigestReader(f)
	if err != nil {
		return key, err
	}
	_, err = f.Seek(0, io.SeekStart)
	return key, err
}

func reportTruncation(reporter diag.Reporter, entry *tracecache.Entry) {
	if !entry.Truncated {
		return
	}
	reporter.Report(diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.InputTruncated,
		Message:  fmt.Sprintf("line %d has fewer than four cells, input ends there", entry.LastLine),
		Line:     entry.LastLine,
	})
}

// entrySource replays cached or freshly read records into the builder.
type entrySource struct {
	entry *tracecache.Entry
	next  int
	line  int
}

func (s *entrySource) Next() (record.Record, bool) {
	if s.next >= len(s.entry.Records) {
		s.line = s.entry.LastLine
		return record.Record{}, false
	}
	rec := s.entry.Records[s.next]
	s.line = s.entry.Lines[s.next]
	s.next++
	return rec, true
}

func (s *entrySource) Line() int { return s.line }

// writeOutput renders tr into one destination, opened and closed here.
func writeOutput(req *Request, out Output, tr *callstack.Tree) (rep render.Report, err error) {
	var w io.Writer
	if out.Path == Stdout {
		w = req.Stdout
		if w == nil {
			w = os.Stdout
		}
	} else {
		f, err := os.Create(out.Path)
		if err != nil {
			return rep, fmt.Errorf("create %s output: %w", out.Format, err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close %s: %w", out.Path, closeErr)
			}
		}()
		w = f
	}

	switch out.Format {
	case FormatText:
		rep, err = render.Text{Skip: req.Skip, PruneSkipped: req.PruneSkipped}.Render(w, tr)
	case FormatDot:
		rep, err = render.Dot{Skip: req.Skip, Columns: req.Columns, PruneSkipped: req.PruneSkipped}.Render(w, tr)
	default:
		return rep, fmt.Errorf("unknown output format %q", out.Format)
	}
	if err != nil {
		return rep, fmt.Errorf("write %s output %s: %w", out.Format, out.Path, err)
	}
	return rep, nil
}
