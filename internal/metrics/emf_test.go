package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_AutoDimension(t *testing.T) {
	initOnce.Do(func() {})
	functionName = "image-lambda"
	defer func() { functionName = "" }()

	r := Discard().New()
	if r.dimensions["FunctionName"] != "image-lambda" {
		t.Errorf("expected FunctionName dimension image-lambda, got %s", r.dimensions["FunctionName"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	functionName = ""
	var buf bytes.Buffer

	NewEmitter(Namespace, &buf).New().
		Dimension("Size", "medium").
		Count(VariantGenerated).
		Metric(VariantBytes, 2048, UnitBytes).
		Property("filename", "default-post-thumbnail.png").
		Flush()

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, buf.String())
	}

	awsMap, ok := doc["_aws"].(map[string]interface{})
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if _, ok := awsMap["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}
	cwArr, ok := awsMap["CloudWatchMetrics"].([]interface{})
	if !ok || len(cwArr) == 0 {
		t.Fatal("CloudWatchMetrics should be a non-empty array")
	}
	cw := cwArr[0].(map[string]interface{})
	if cw["Namespace"] != Namespace {
		t.Errorf("expected namespace %s, got %v", Namespace, cw["Namespace"])
	}

	if doc["Size"] != "medium" {
		t.Errorf("expected Size=medium, got %v", doc["Size"])
	}
	if doc[VariantGenerated] != float64(1) {
		t.Errorf("expected %s=1, got %v", VariantGenerated, doc[VariantGenerated])
	}
	if doc[VariantBytes] != float64(2048) {
		t.Errorf("expected %s=2048, got %v", VariantBytes, doc[VariantBytes])
	}
	if doc["filename"] != "default-post-thumbnail.png" {
		t.Errorf("expected filename property, got %v", doc["filename"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewEmitter(Namespace, &buf).New().Flush()
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty recorder, got: %s", buf.String())
	}
}

func TestRecorder_Chaining(t *testing.T) {
	functionName = ""
	rec := Discard().New().
		Dimension("Op", "resize").
		Metric("Duration", 100, UnitMilliseconds).
		Count("Calls").
		Property("id", "xyz")

	if rec.dimensions["Op"] != "resize" {
		t.Error("chaining Dimension failed")
	}
	if rec.values["Duration"] != float64(100) {
		t.Error("chaining Metric failed")
	}
	if rec.values["Calls"] != float64(1) {
		t.Error("chaining Count failed")
	}
	if rec.properties["id"] != "xyz" {
		t.Error("chaining Property failed")
	}
}
