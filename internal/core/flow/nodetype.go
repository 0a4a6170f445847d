package flow

import "fmt"

// NodeType represents the type of node
type NodeType string

const (
	// NodeTypeTextMessage sends a single text message to the user
	NodeTypeTextMessage NodeType = "textMessage"
)

// Handle names exposed by the shipped node types.
const (
	HandleSource = "source"
	HandleTarget = "target"
)

// FieldKind describes how a settings field is edited
type FieldKind string

const (
	FieldKindText FieldKind = "text"
)

// SettingsField describes one editable entry of a node's data payload.
type SettingsField struct {
	Name        string    `json:"name" yaml:"name"`
	Label       string    `json:"label" yaml:"label"`
	Kind        FieldKind `json:"kind" yaml:"kind"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Help        string    `json:"help,omitempty" yaml:"help,omitempty"`
	Required    bool      `json:"required" yaml:"required"`
}

// TypeSpec is the per-type behaviour table entry. Adding a node type means
// adding a NodeType constant and one TypeSpec to the registry below.
type TypeSpec struct {
	Type          NodeType        `json:"type" yaml:"type"`
	Label         string          `json:"label" yaml:"label"`
	Description   string          `json:"description" yaml:"description"`
	SourceHandles []string        `json:"source_handles" yaml:"source_handles"`
	TargetHandles []string        `json:"target_handles" yaml:"target_handles"`
	Fields        []SettingsField `json:"fields" yaml:"fields"`

	defaults NodeData
}

// DefaultData returns a fresh copy of the default payload for the type.
func (s TypeSpec) DefaultData() NodeData {
	return s.defaults.Clone()
}

// DefaultSourceHandle is used when a connection request names no source handle.
func (s TypeSpec) DefaultSourceHandle() string {
	if len(s.SourceHandles) == 0 {
		return ""
	}
	return s.SourceHandles[0]
}

// DefaultTargetHandle is used when a connection request names no target handle.
func (s TypeSpec) DefaultTargetHandle() string {
	if len(s.TargetHandles) == 0 {
		return ""
	}
	return s.TargetHandles[0]
}

// HasSourceHandle reports whether h is an outward handle of the type.
func (s TypeSpec) HasSourceHandle(h string) bool {
	return contains(s.SourceHandles, h)
}

// HasTargetHandle reports whether h is an inward handle of the type.
func (s TypeSpec) HasTargetHandle(h string) bool {
	return contains(s.TargetHandles, h)
}

// RequiredFields lists the data fields a node of this type must carry.
func (s TypeSpec) RequiredFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// CheckData verifies the values data assigns to the type's settings fields.
// Absent fields and keys the type does not declare are not checked.
func (s TypeSpec) CheckData(data NodeData) error {
	for _, f := range s.Fields {
		v, present := data[f.Name]
		if !present {
			continue
		}
		if v == nil {
			if f.Required {
				return fmt.Errorf("%w: %q cannot be null", ErrInvalidNodeData, f.Name)
			}
			continue
		}
		switch f.Kind {
		case FieldKindText:
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidNodeData, f.Name, v)
			}
		}
	}
	return nil
}

var typeOrder = []NodeType{
	NodeTypeTextMessage,
}

var registry = map[NodeType]TypeSpec{
	NodeTypeTextMessage: {
		Type:          NodeTypeTextMessage,
		Label:         "Message",
		Description:   "Send a text message",
		SourceHandles: []string{HandleSource},
		TargetHandles: []string{HandleTarget},
		Fields: []SettingsField{{
			Name:        "text",
			Label:       "Text",
			Kind:        FieldKindText,
			Placeholder: "Enter your message...",
			Help:        "This message will be sent to users when they reach this node.",
			Required:    true,
		}},
		defaults: NodeData{"text": "New message"},
	},
}

// WelcomeNode returns the greeting a new flow starts with.
func WelcomeNode() *Node {
	return &Node{
		ID:       "1",
		Type:     NodeTypeTextMessage,
		Position: Position{X: 250, Y: 250},
		Data:     NodeData{"text": "Hello! Welcome to our chatbot."},
	}
}

// LookupType returns the behaviour table entry for t.
func LookupType(t NodeType) (TypeSpec, bool) {
	spec, ok := registry[t]
	return spec, ok
}

// NodeTypes lists every registered node type in palette order.
func NodeTypes() []TypeSpec {
	out := make([]TypeSpec, 0, len(typeOrder))
	for _, t := range typeOrder {
		out = append(out, registry[t])
	}
	return out
}

// IsKnown reports whether the type is registered
func (t NodeType) IsKnown() bool {
	_, ok := registry[t]
	return ok
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
