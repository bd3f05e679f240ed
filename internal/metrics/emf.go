// Package metrics emits CloudWatch Embedded Metrics Format (EMF) documents
// for the resize cache and the HTTP API. Each document is one JSON line;
// CloudWatch Logs extracts the metrics from it, so no API calls are made on
// the hot path.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Namespace is the CloudWatch namespace for all post-image metrics.
const Namespace = "PostImage"

// Metric names emitted by the resize cache.
const (
	VariantCacheHit  = "VariantCacheHit"
	VariantGenerated = "VariantGenerated"
	VariantDegraded  = "VariantDegraded"
	ResizeLatency    = "ResizeLatencyMs"
	VariantBytes     = "VariantBytes"
)

// Metric names emitted by the HTTP API.
const (
	RequestCount   = "RequestCount"
	RequestLatency = "RequestLatencyMs"
)

// Standard CloudWatch metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Emitter creates Recorders that write to a shared output. The zero value
// is not usable; use NewEmitter or Discard.
type Emitter struct {
	namespace string
	mu        sync.Mutex
	out       io.Writer
}

// NewEmitter returns an Emitter writing one EMF line per flush to out.
// A nil out writes to stdout.
func NewEmitter(namespace string, out io.Writer) *Emitter {
	if out == nil {
		out = os.Stdout
	}
	return &Emitter{namespace: namespace, out: out}
}

// Discard returns an Emitter that drops everything.
func Discard() *Emitter {
	return NewEmitter(Namespace, io.Discard)
}

// Recorder accumulates dimensions, metrics, and properties for a single EMF flush.
// It is NOT safe for concurrent use from multiple goroutines; create one per operation.
type Recorder struct {
	emitter    *Emitter
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]interface{}
	properties map[string]interface{}
}

var (
	// functionName is cached from AWS_LAMBDA_FUNCTION_NAME at init time.
	functionName string
	initOnce     sync.Once
)

func initFunctionName() {
	functionName = os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
}

// New creates a Recorder. It adds the FunctionName dimension when running
// inside Lambda.
func (e *Emitter) New() *Recorder {
	initOnce.Do(initFunctionName)
	r := &Recorder{
		emitter:    e,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]interface{}),
		properties: make(map[string]interface{}),
	}
	if functionName != "" {
		r.dimensions["FunctionName"] = functionName
	}
	return r
}

// Dimension adds a dimension key-value pair.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named metric value with a CloudWatch unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count metric with value 1.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Since records the elapsed time since start in milliseconds.
func (r *Recorder) Since(name string, start time.Time) *Recorder {
	return r.Metric(name, float64(time.Since(start).Milliseconds()), UnitMilliseconds)
}

// Property adds a non-metric field to the document. Properties are
// searchable in Logs Insights but do not create metrics.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush serializes the document as a single JSON line.
// After flushing, the Recorder should not be reused.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return
	}

	doc := make(map[string]interface{})

	metricDefs := make([]metricDef, 0, len(r.metrics))
	for _, m := range r.metrics {
		metricDefs = append(metricDefs, m)
	}
	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}

	doc["_aws"] = emfDirective{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.emitter.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    metricDefs,
		}},
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	for k, v := range r.properties {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emf: failed to marshal metrics: %v\n", err)
		return
	}

	r.emitter.mu.Lock()
	defer r.emitter.mu.Unlock()
	fmt.Fprintln(r.emitter.out, string(data))
}
