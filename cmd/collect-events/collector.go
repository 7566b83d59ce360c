package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	tasksEventName   = "tasks.request"
	tasksEventDomain = "showcase"

	attrHTTPStatusCode = "http.status_code"
	attrOperation      = "showcase.tasks.operation"
	attrFilter         = "showcase.tasks.filter"
	attrTotalMillis    = "showcase.tasks.total_ms"
	attrStorageMillis  = "showcase.tasks.storage_ms"
	attrTasksReturned  = "showcase.tasks.tasks_returned"
	attrErrorStage     = "showcase.tasks.error_stage"
)

// logRecord is one logrus JSON line as written with LOG_FORMAT=json.
type logRecord struct {
	EventName    string         `json:"event.name"`
	EventDomain  string         `json:"event.domain"`
	SeverityText string         `json:"severity_text"`
	Attributes   map[string]any `json:"attributes"`
}

type collector struct {
	eventName   string
	eventDomain string

	count       int
	skipped     int
	severity    map[string]int
	status      map[int]int
	operations  map[string]int
	filters     map[string]int
	errorStages map[string]int
	durations   map[string]*numericStats
	tasks       *numericStats
}

type numericStats struct {
	Count int
	Sum   float64
	Min   float64
	Max   float64
}

type numericSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

type summaryOutput struct {
	EventName      string                    `json:"event_name"`
	EventDomain    string                    `json:"event_domain"`
	TotalEvents    int                       `json:"total_events"`
	SeverityCounts map[string]int            `json:"severity_counts"`
	StatusCounts   map[string]int            `json:"status_counts"`
	Operations     map[string]int            `json:"operations"`
	Filters        map[string]int            `json:"filters,omitempty"`
	DurationMs     map[string]numericSummary `json:"duration_ms"`
	TasksReturned  numericSummary            `json:"tasks_returned"`
	ErrorStages    map[string]int            `json:"error_stages,omitempty"`
	SkippedLines   int                       `json:"skipped_lines"`
}

func newCollector(eventName, eventDomain string) *collector {
	return &collector{
		eventName:   eventName,
		eventDomain: eventDomain,
		severity:    make(map[string]int),
		status:      make(map[int]int),
		operations:  make(map[string]int),
		filters:     make(map[string]int),
		errorStages: make(map[string]int),
		durations:   make(map[string]*numericStats),
	}
}

// ingest consumes one log line. Lines prefixed by a container name and a pipe
// (docker compose output) are accepted.
func (c *collector) ingest(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if pipe := strings.Index(trimmed, "|"); pipe >= 0 && !strings.HasPrefix(trimmed, "{") {
		trimmed = strings.TrimSpace(trimmed[pipe+1:])
	}

	var rec logRecord
	if err := sonic.UnmarshalString(trimmed, &rec); err != nil {
		c.skipped++
		return
	}
	if rec.EventName != c.eventName {
		return
	}
	if c.eventDomain != "" && rec.EventDomain != c.eventDomain {
		return
	}
	c.add(rec)
}

func (c *collector) add(rec logRecord) {
	c.count++

	severity := strings.ToUpper(strings.TrimSpace(rec.SeverityText))
	if severity == "" {
		severity = "UNSPECIFIED"
	}
	c.severity[severity]++

	attrs := rec.Attributes
	if attrs == nil {
		return
	}
	if v, ok := asFloat(attrs[attrHTTPStatusCode]); ok {
		c.status[int(v)]++
	}
	if s, ok := attrs[attrOperation].(string); ok && s != "" {
		c.operations[s]++
	}
	if s, ok := attrs[attrFilter].(string); ok && s != "" {
		c.filters[s]++
	}
	if s, ok := attrs[attrErrorStage].(string); ok && s != "" {
		c.errorStages[s]++
	}
	if v, ok := asFloat(attrs[attrTotalMillis]); ok {
		c.duration("total").add(v)
	}
	if v, ok := asFloat(attrs[attrStorageMillis]); ok {
		c.duration("storage").add(v)
	}
	if v, ok := asFloat(attrs[attrTasksReturned]); ok {
		if c.tasks == nil {
			c.tasks = newNumericStats()
		}
		c.tasks.add(v)
	}
}

func (c *collector) duration(key string) *numericStats {
	stat, ok := c.durations[key]
	if !ok {
		stat = newNumericStats()
		c.durations[key] = stat
	}
	return stat
}

func newNumericStats() *numericStats {
	return &numericStats{Min: math.MaxFloat64}
}

func (n *numericStats) add(v float64) {
	n.Count++
	n.Sum += v
	n.Min = math.Min(n.Min, v)
	n.Max = math.Max(n.Max, v)
}

func (n *numericStats) summary() numericSummary {
	if n == nil || n.Count == 0 {
		return numericSummary{}
	}
	return numericSummary{Count: n.Count, Min: n.Min, Max: n.Max, Avg: n.Sum / float64(n.Count)}
}

func (c *collector) summary() summaryOutput {
	durations := make(map[string]numericSummary, len(c.durations))
	for k, v := range c.durations {
		durations[k] = v.summary()
	}
	status := make(map[string]int, len(c.status))
	for code, n := range c.status {
		status[strconv.Itoa(code)] = n
	}
	return summaryOutput{
		EventName:      c.eventName,
		EventDomain:    c.eventDomain,
		TotalEvents:    c.count,
		SeverityCounts: c.severity,
		StatusCounts:   status,
		Operations:     c.operations,
		Filters:        compact(c.filters),
		DurationMs:     durations,
		TasksReturned:  c.tasks.summary(),
		ErrorStages:    compact(c.errorStages),
		SkippedLines:   c.skipped,
	}
}

func compact(in map[string]int) map[string]int {
	if len(in) == 0 {
		return nil
	}
	return in
}

func (s summaryOutput) ShortString() string {
	total := s.DurationMs["total"]
	return strings.Join([]string{
		"event=" + s.EventName,
		"domain=" + s.EventDomain,
		"total=" + strconv.Itoa(s.TotalEvents),
		"info=" + strconv.Itoa(s.SeverityCounts["INFO"]),
		"warn=" + strconv.Itoa(s.SeverityCounts["WARN"]),
		"error=" + strconv.Itoa(s.SeverityCounts["ERROR"]),
		"avg_total_ms=" + formatFloat(total.Avg),
		"max_total_ms=" + formatFloat(total.Max),
	}, " ")
}

func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
