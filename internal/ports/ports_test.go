package ports

import (
	"encoding/json"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"portmonitor/internal/status"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)

func newTestAggregator(opts Options) *Aggregator {
	return New(zerolog.New(io.Discard), status.NewClassifier(status.DefaultPalette()), opts)
}

func TestAggregate_GroupsAndSortsPorts(t *testing.T) {
	a := newTestAggregator(Options{})
	raw := json.RawMessage(`{"devices":[
		{"port":"B","state":"bootstrap-started","serial":"b1"},
		{"port":"A","state":"triage-finished","serial":"a1","ip_address":"10.0.0.2","image":"rpi.img"},
		{"port":"A","state":"error","serial":"a2"}
	]}`)

	res := a.Aggregate(raw, fixedNow)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %q", res.Status)
	}
	if len(res.Ports) != 2 {
		t.Fatalf("expected 2 ports, got %d", len(res.Ports))
	}
	if res.Ports[0].Port != "A" || res.Ports[1].Port != "B" {
		t.Fatalf("expected ports ordered A,B, got %s,%s", res.Ports[0].Port, res.Ports[1].Port)
	}

	a0 := res.Ports[0]
	if a0.Serial != "a1" || a0.State != "triage-finished" {
		t.Fatalf("expected first A device as representative, got %+v", a0)
	}
	if a0.StatusText != "TRIAGE DONE" || a0.Color != "#4CAF50" {
		t.Fatalf("unexpected classification for A: %+v", a0)
	}
	if a0.IPAddress != "10.0.0.2" || a0.Image != "rpi.img" {
		t.Fatalf("unexpected ip/image: %+v", a0)
	}
	if a0.DeviceCount != 2 || !a0.HasDevice {
		t.Fatalf("expected has_device with 2 devices, got %+v", a0)
	}
	if res.Message != "2 ports monitored" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if res.Timestamp != "09:26:53" {
		t.Fatalf("unexpected timestamp %q", res.Timestamp)
	}
}

func TestAggregate_Defaults(t *testing.T) {
	a := newTestAggregator(Options{})
	res := a.Aggregate(json.RawMessage(`{"devices":[{}]}`), fixedNow)

	if len(res.Ports) != 1 {
		t.Fatalf("expected 1 port, got %d", len(res.Ports))
	}
	p := res.Ports[0]
	if p.Port != "unknown" || p.State != "unknown" {
		t.Fatalf("expected unknown port/state, got %+v", p)
	}
	if p.Serial != "Unknown" || p.SerialShort != "Unknown" {
		t.Fatalf("expected Unknown serial without ellipsis, got %+v", p)
	}
	if p.IPAddress != "N/A" || p.Image != "N/A" {
		t.Fatalf("expected N/A ip/image, got %+v", p)
	}
	if p.StatusText != "UNKNOWN" || p.Color != "#607D8B" {
		t.Fatalf("expected unknown classification, got %+v", p)
	}
}

func TestAggregate_SerialShort(t *testing.T) {
	a := newTestAggregator(Options{})
	res := a.Aggregate(json.RawMessage(`{"devices":[
		{"port":"1","serial":"ABCDEFGHIJKLMNOP"},
		{"port":"2","serial":"XY1"},
		{"port":"3","serial":"ABCDEFGHIJKL"}
	]}`), fixedNow)

	want := map[string]string{"1": "ABCDEFGHIJKL...", "2": "XY1", "3": "ABCDEFGHIJKL"}
	for _, p := range res.Ports {
		if p.SerialShort != want[p.Port] {
			t.Fatalf("port %s: expected serial_short %q, got %q", p.Port, want[p.Port], p.SerialShort)
		}
	}
	if res.Ports[0].Serial != "ABCDEFGHIJKLMNOP" {
		t.Fatalf("expected full serial kept, got %q", res.Ports[0].Serial)
	}
}

func TestAggregate_NumericPortKeepsText(t *testing.T) {
	a := newTestAggregator(Options{})
	res := a.Aggregate(json.RawMessage(`{"devices":[null,{"port":3,"state":"bootstrap-started"},"junk",7]}`), fixedNow)

	if len(res.Ports) != 1 || res.Ports[0].Port != "3" {
		t.Fatalf("expected single port \"3\", got %+v", res.Ports)
	}
}

func TestAggregate_NullEntriesSkipped(t *testing.T) {
	a := newTestAggregator(Options{})
	res := a.Aggregate(json.RawMessage(`{"devices":[null,{"port":"1","state":"bootstrap-started"}, null ]}`), fixedNow)

	if len(res.Ports) != 1 || res.Ports[0].Port != "1" {
		t.Fatalf("expected only port \"1\", got %+v", res.Ports)
	}
	if res.Message != "1 ports monitored" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestAggregate_NoData(t *testing.T) {
	a := newTestAggregator(Options{})
	ts := regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

	for _, raw := range []string{"", "null", `{}`, `{"items":[]}`, `[1,2]`, `{"devices":"nope"}`, `{"devices":null}`} {
		res := a.Aggregate(json.RawMessage(raw), time.Now())
		if res.Status != StatusNoData {
			t.Fatalf("payload %q: expected no_data, got %q", raw, res.Status)
		}
		if res.Ports == nil || len(res.Ports) != 0 {
			t.Fatalf("payload %q: expected empty non-nil ports", raw)
		}
		if res.Message == "" {
			t.Fatalf("payload %q: expected message", raw)
		}
		if !ts.MatchString(res.Timestamp) {
			t.Fatalf("payload %q: bad timestamp %q", raw, res.Timestamp)
		}
	}
}

func TestAggregate_EmptyDeviceList(t *testing.T) {
	a := newTestAggregator(Options{})
	res := a.Aggregate(json.RawMessage(`{"devices":[]}`), fixedNow)
	if res.Status != StatusSuccess || len(res.Ports) != 0 || res.Message != "0 ports monitored" {
		t.Fatalf("unexpected result for empty list: %+v", res)
	}

	b, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["ports"].([]any); !ok {
		t.Fatalf("expected ports to encode as array, got %s", b)
	}
}

func TestAggregate_ExpectedPortsGetPlaceholders(t *testing.T) {
	a := newTestAggregator(Options{ExpectedPorts: []string{"3", " 1 ", "3", ""}})
	res := a.Aggregate(json.RawMessage(`{"devices":[{"port":"2","state":"bootstrap-finished"},{"port":"1","state":"error"}]}`), fixedNow)

	if len(res.Ports) != 3 {
		t.Fatalf("expected 3 ports, got %d: %+v", len(res.Ports), res.Ports)
	}
	if res.Ports[0].Port != "1" || !res.Ports[0].HasDevice {
		t.Fatalf("expected observed port 1 first, got %+v", res.Ports[0])
	}
	p3 := res.Ports[2]
	if p3.Port != "3" || p3.HasDevice || p3.StatusText != "NO DEVICE" || p3.State != "no_device" {
		t.Fatalf("expected placeholder for port 3, got %+v", p3)
	}
	if p3.Color != "#9E9E9E" || p3.Category() != status.CategoryUnplugged || p3.DeviceCount != 0 {
		t.Fatalf("expected gray placeholder, got %+v", p3)
	}
	if res.Message != "3 ports monitored" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestAggregate_ExpectedPortsIgnoredWithoutData(t *testing.T) {
	a := newTestAggregator(Options{ExpectedPorts: []string{"1"}})
	if res := a.Aggregate(nil, fixedNow); res.Status != StatusNoData {
		t.Fatalf("expected no_data, got %q", res.Status)
	}
}

func TestFailure(t *testing.T) {
	res := Failure(fixedNow)
	if res.Status != StatusError || res.Message != "Failed to connect to provisioner service" || len(res.Ports) != 0 {
		t.Fatalf("unexpected failure result: %+v", res)
	}
}
