package ports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portmonitor/internal/status"
)

const (
	StatusSuccess = "success"
	StatusNoData  = "no_data"
	StatusError   = "error"

	MessageNoData      = "No device data available"
	MessageUpstreamErr = "Failed to connect to provisioner service"

	// TimestampLayout renders wall-clock time as HH:MM:SS.
	TimestampLayout = "15:04:05"

	serialShortLen = 12
	ellipsis       = "..."

	defaultPort   = "unknown"
	defaultState  = "unknown"
	defaultSerial = "Unknown"
	defaultNA     = "N/A"

	placeholderState = "no_device"
	placeholderLabel = "NO DEVICE"
)

// PortView is the per-port record served to the UI.
type PortView struct {
	Port        string `json:"port"`
	HasDevice   bool   `json:"has_device"`
	State       string `json:"state"`
	StatusText  string `json:"status_text"`
	Color       string `json:"color"`
	Serial      string `json:"serial"`
	SerialShort string `json:"serial_short"`
	IPAddress   string `json:"ip_address"`
	Image       string `json:"image"`
	DeviceCount int    `json:"device_count"`

	category status.Category
}

// Category is the palette bucket the view was colored from.
func (v PortView) Category() status.Category {
	return v.category
}

// Result is the top-level document returned by the devices endpoint.
type Result struct {
	Ports     []PortView `json:"ports"`
	Status    string     `json:"status"`
	Message   string     `json:"message"`
	Timestamp string     `json:"timestamp"`
}

type Options struct {
	// ExpectedPorts lists ports that should always be shown; ports without
	// an observed device get a placeholder view.
	ExpectedPorts []string
}

// Aggregator turns the raw provisioner payload into one view per port.
type Aggregator struct {
	log        zerolog.Logger
	classifier status.Classifier
	expected   []string
}

func New(log zerolog.Logger, classifier status.Classifier, opts Options) *Aggregator {
	expected := make([]string, 0, len(opts.ExpectedPorts))
	seen := make(map[string]struct{}, len(opts.ExpectedPorts))
	for _, p := range opts.ExpectedPorts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		expected = append(expected, p)
	}
	return &Aggregator{log: log, classifier: classifier, expected: expected}
}

type portGroup struct {
	port    string
	devices []DeviceRecord
}

// Aggregate never fails. Payloads without a usable device list yield a
// no_data result.
func (a *Aggregator) Aggregate(raw json.RawMessage, now time.Time) Result {
	devices, ok := a.decodeDevices(raw)
	if !ok {
		return NoData(now)
	}

	groups := groupByPort(devices)
	for _, p := range a.expected {
		if _, ok := groups.index[p]; !ok {
			groups.add(p, nil)
		}
	}
	sort.SliceStable(groups.list, func(i, j int) bool {
		return groups.list[i].port < groups.list[j].port
	})

	palette := a.classifier.Palette()
	views := make([]PortView, 0, len(groups.list))
	for _, g := range groups.list {
		if len(g.devices) == 0 {
			views = append(views, Placeholder(g.port, palette))
			continue
		}
		if len(g.devices) > 1 {
			a.log.Debug().Str("port", g.port).Int("devices", len(g.devices)).Msg("multiple devices on port; showing first")
		}
		views = append(views, a.view(g))
	}

	return Result{
		Ports:     views,
		Status:    StatusSuccess,
		Message:   fmt.Sprintf("%d ports monitored", len(views)),
		Timestamp: now.Format(TimestampLayout),
	}
}

func (a *Aggregator) view(g portGroup) PortView {
	d := g.devices[0]
	state := d.State.Or(defaultState)
	c := a.classifier.Classify(state, true)

	serial := d.Serial.Or(defaultSerial)
	return PortView{
		Port:        g.port,
		HasDevice:   true,
		State:       state,
		StatusText:  c.Label,
		Color:       c.Color,
		Serial:      serial,
		SerialShort: shortSerial(serial, d.Serial.Value()),
		IPAddress:   d.IPAddress.Or(defaultNA),
		Image:       d.Image.Or(defaultNA),
		DeviceCount: len(g.devices),
		category:    c.Category,
	}
}

// shortSerial truncates display to 12 characters. The ellipsis depends on
// the upstream serial, so the "Unknown" default never gets one.
func shortSerial(display, upstream string) string {
	r := []rune(display)
	if len(r) > serialShortLen {
		r = r[:serialShortLen]
	}
	if len([]rune(upstream)) > serialShortLen {
		return string(r) + ellipsis
	}
	return string(r)
}

func (a *Aggregator) decodeDevices(raw json.RawMessage) ([]DeviceRecord, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		a.log.Debug().Err(err).Msg("payload is not a json object")
		return nil, false
	}
	list, ok := top["devices"]
	if !ok {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil || items == nil {
		a.log.Debug().Msg("payload devices field is not a list")
		return nil, false
	}

	out := make([]DeviceRecord, 0, len(items))
	skipped := 0
	for _, item := range items {
		if !isObject(item) {
			skipped++
			continue
		}
		var d DeviceRecord
		if err := json.Unmarshal(item, &d); err != nil {
			skipped++
			continue
		}
		out = append(out, d)
	}
	if skipped > 0 {
		a.log.Debug().Int("skipped", skipped).Msg("ignored non-object device entries")
	}
	return out, true
}

// isObject reports whether item is a JSON object. Unmarshalling null into a
// struct succeeds without touching it, so it has to be rejected up front.
func isObject(item json.RawMessage) bool {
	t := bytes.TrimSpace(item)
	return len(t) > 0 && t[0] == '{'
}

type groupSet struct {
	list  []portGroup
	index map[string]int
}

func (g *groupSet) add(port string, d *DeviceRecord) {
	i, ok := g.index[port]
	if !ok {
		i = len(g.list)
		g.index[port] = i
		g.list = append(g.list, portGroup{port: port})
	}
	if d != nil {
		g.list[i].devices = append(g.list[i].devices, *d)
	}
}

func groupByPort(devices []DeviceRecord) *groupSet {
	g := &groupSet{index: make(map[string]int)}
	for i := range devices {
		g.add(devices[i].Port.Or(defaultPort), &devices[i])
	}
	return g
}

// Placeholder builds the view for a port with no device attached.
func Placeholder(port string, palette status.Palette) PortView {
	return PortView{
		Port:       port,
		HasDevice:  false,
		State:      placeholderState,
		StatusText: placeholderLabel,
		Color:      palette.Color(status.CategoryUnplugged),
		category:   status.CategoryUnplugged,
	}
}

func NoData(now time.Time) Result {
	return Result{
		Ports:     []PortView{},
		Status:    StatusNoData,
		Message:   MessageNoData,
		Timestamp: now.Format(TimestampLayout),
	}
}

// Failure is returned when the provisioner could not be reached.
func Failure(now time.Time) Result {
	return Result{
		Ports:     []PortView{},
		Status:    StatusError,
		Message:   MessageUpstreamErr,
		Timestamp: now.Format(TimestampLayout),
	}
}
