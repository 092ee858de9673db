// SPDX-License-Identifier: GPL-3.0-or-later

package nodes

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/packet"
)

// ErrEmptyMatcher indicates a [*Switch] configured with an empty matcher.
var ErrEmptyMatcher = errors.New("switch: empty matcher")

// switchLayers maps the names accepted by [Switch.Layer] to layer types.
var switchLayers = map[string]gopacket.LayerType{
	"ARP":      layers.LayerTypeARP,
	"Dot1Q":    layers.LayerTypeDot1Q,
	"Ethernet": layers.LayerTypeEthernet,
	"ICMPv4":   layers.LayerTypeICMPv4,
	"ICMPv6":   layers.LayerTypeICMPv6,
	"IPv4":     layers.LayerTypeIPv4,
	"IPv6":     layers.LayerTypeIPv6,
	"TCP":      layers.LayerTypeTCP,
	"UDP":      layers.LayerTypeUDP,
}

// Switch decodes each packet, reads Field from Layer, and routes the
// packet to output i+1 where i is the first matching entry of Matchers,
// or to output 0 when nothing matches, the layer is missing, or the
// layer has no such field.
//
// A matcher equals a field when it equals either its default formatting
// (e.g., "10.0.0.1" for an IP address) or, for integer fields, the
// decimal value (e.g., "443" for a TCP port).
type Switch struct {
	dataflow.Base
	Layer    string
	Field    string
	Matchers []string

	layerType gopacket.LayerType
}

// NewSwitch creates a [*Switch] with one output per matcher plus the default.
func NewSwitch(id int, layer, field string, matchers []string) *Switch {
	return &Switch{
		Base:     dataflow.NewBase(id, 1, 1+len(matchers)),
		Layer:    layer,
		Field:    field,
		Matchers: matchers,
	}
}

// Setup implements [dataflow.Node].
func (n *Switch) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	if len(n.Matchers) <= 0 || slices.Contains(n.Matchers, "") {
		return ErrEmptyMatcher
	}
	if n.Outputs != 1+len(n.Matchers) {
		return fmt.Errorf("switch: %d outputs for %d matchers", n.Outputs, len(n.Matchers))
	}
	layerType, found := switchLayers[n.Layer]
	if !found {
		return fmt.Errorf("switch: unsupported layer %q", n.Layer)
	}
	n.layerType = layerType
	return nil
}

// IsReady implements [dataflow.Node].
func (n *Switch) IsReady(inputs []*dataflow.Queue) bool {
	return hasInput(inputs)
}

// Process implements [dataflow.Node].
func (n *Switch) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	pkt := inputs[0].Pop()
	out := 0
	if values := n.fieldValues(pkt); len(values) > 0 {
		for idx, matcher := range n.Matchers {
			if slices.Contains(values, matcher) {
				out = idx + 1
				break
			}
		}
	}
	outputs[out] = append(outputs[out], pkt)
	return outputs, nil
}

// fieldValues returns the representations of the configured field.
func (n *Switch) fieldValues(pkt *packet.Packet) []string {
	layer := pkt.Layers().Layer(n.layerType)
	if layer == nil {
		return nil
	}
	value := reflect.Indirect(reflect.ValueOf(layer))
	if value.Kind() != reflect.Struct {
		return nil
	}
	field := value.FieldByName(n.Field)
	if !field.IsValid() || !field.CanInterface() {
		return nil
	}
	values := []string{fmt.Sprint(field.Interface())}
	switch field.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		values = append(values, strconv.FormatUint(field.Uint(), 10))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		values = append(values, strconv.FormatInt(field.Int(), 10))
	}
	return values
}

// SwitchLayers returns the layer names a [*Switch] accepts.
func SwitchLayers() []string {
	names := make([]string, 0, len(switchLayers))
	for name := range switchLayers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// normalizeLayer maps a case-insensitive layer name to its canonical form.
func normalizeLayer(name string) string {
	for canonical := range switchLayers {
		if strings.EqualFold(canonical, name) {
			return canonical
		}
	}
	return name
}
