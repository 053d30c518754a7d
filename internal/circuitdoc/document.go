// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package circuitdoc

import (
	"encoding/json"
	"fmt"

	"github.com/vk/circuitgo/internal/circuit"
)

// Record types.
const (
	TypeBoard      = "pcb_board"
	TypeComponent  = "pcb_component"
	TypeNet        = "source_net"
	TypeTrace      = "pcb_trace"
	TypeSMTPad     = "pcb_smtpad"
	TypePlatedHole = "pcb_plated_hole"
	TypePort       = "pcb_port"
)

// Record is one entry of the document. Fields that do not apply to a record
// type are left empty and omitted from JSON.
type Record struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	PcbBoardID     string `json:"pcb_board_id,omitempty"`
	PcbComponentID string `json:"pcb_component_id,omitempty"`

	Ftype     string `json:"ftype,omitempty"`
	Footprint string `json:"footprint,omitempty"`

	Center   *circuit.Point `json:"center,omitempty"`
	Width    float64        `json:"width,omitempty"`
	Height   float64        `json:"height,omitempty"`
	Rotation int            `json:"rotation,omitempty"`
	Layer    string         `json:"layer,omitempty"`
	Shape    string         `json:"shape,omitempty"`

	PortHints      []string        `json:"port_hints,omitempty"`
	ConnectedPorts []string        `json:"connected_port_ids,omitempty"`
	Route          []circuit.Point `json:"route,omitempty"`
	TraceWidth     float64         `json:"trace_width,omitempty"`

	ManuallyPlaced bool `json:"manually_placed,omitempty"`
	Autosized      bool `json:"autosized,omitempty"`

	// Properties are the declared properties, by snake_case name.
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
}

// Document is the ordered, read-only result of a run.
type Document struct {
	Records []Record
}

// MarshalJSON encodes the document as a JSON array of records.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.Records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.Records)
}

// UnmarshalJSON decodes a JSON array of records.
func (d *Document) UnmarshalJSON(data []byte) error {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	d.Records = records
	return nil
}

// Parse decodes a document previously produced by MarshalJSON.
func Parse(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("parse circuit document: %w", err)
	}
	for i, r := range d.Records {
		if r.Type == "" {
			return Document{}, fmt.Errorf("parse circuit document: record %d has no type", i)
		}
	}
	return d, nil
}

// FindByName returns the first record with the given name.
func (d Document) FindByName(name string) (Record, bool) {
	for _, r := range d.Records {
		if r.Name == name {
			return r, true
		}
	}
	return Record{}, false
}

// FilterByType returns the records of one type, in document order.
func (d Document) FilterByType(typ string) []Record {
	var out []Record
	for _, r := range d.Records {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

// ChildrenOf returns the records owned by a board or component ID.
func (d Document) ChildrenOf(id string) []Record {
	var out []Record
	for _, r := range d.Records {
		if r.ID == id {
			continue
		}
		if r.PcbBoardID == id || r.PcbComponentID == id {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records.
func (d Document) Len() int { return len(d.Records) }
