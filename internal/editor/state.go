/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor holds the immutable editor state and the reducer that moves
// it from one state to the next. Session adds undo/redo on top.
package editor

import (
	"errors"
	"fmt"
	"strings"

	"godiagram/internal/domain"
	"godiagram/internal/snap"
	"godiagram/internal/vector"
)

var (
	ErrDuplicateID   = errors.New("duplicate shape id")
	ErrShapeNotFound = errors.New("shape not found")
	ErrInvalidAction = errors.New("invalid action")
)

// Tool is the active toolbar tool.
type Tool string

const (
	ToolSelect  Tool = "select"
	ToolPan     Tool = "pan"
	ToolPlace   Tool = "place"
	ToolConnect Tool = "connect"
	ToolText    Tool = "text"
)

// Tools lists all tools in toolbar order.
var Tools = []Tool{ToolSelect, ToolPan, ToolPlace, ToolConnect, ToolText}

// ParseTool accepts a tool name in any case.
func ParseTool(s string) (Tool, error) {
	t := Tool(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tools {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown tool %q", ErrInvalidAction, s)
}

// State is a value; transitions return a new State and never modify the
// receiver's drawing or selection.
type State struct {
	Drawing   domain.Drawing
	Selection []string
	Tool      Tool
	Snap      snap.Options
	// Guides is used by snapped moves when no point snap is in range.
	Guides vector.GuideOptions
	// SymbolSize gives the default size for new shapes; nil means domain.DefaultSize.
	SymbolSize func(kind string) domain.Size
}

// NewState starts editing a copy of d with the select tool.
func NewState(d domain.Drawing, opts snap.Options) State {
	return State{
		Drawing: d.Clone(),
		Tool:    ToolSelect,
		Snap:    opts,
		Guides:  snap.DefaultGuideOptions(),
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Drawing = s.Drawing.Clone()
	out.Selection = append([]string(nil), s.Selection...)
	out.Snap.Exclude = append([]string(nil), s.Snap.Exclude...)
	return out
}

// IsSelected reports whether id is in the selection.
func (s State) IsSelected(id string) bool {
	for _, sel := range s.Selection {
		if sel == id {
			return true
		}
	}
	return false
}

// Selected returns copies of the selected shapes in drawing order.
func (s State) Selected() []domain.Shape {
	var out []domain.Shape
	for _, sh := range s.Drawing.Shapes {
		if s.IsSelected(sh.ID) {
			out = append(out, sh.Clone())
		}
	}
	return out
}

// Shape returns a copy of the shape with the given id.
func (s State) Shape(id string) (domain.Shape, bool) {
	i := s.Drawing.Index(id)
	if i < 0 {
		return domain.Shape{}, false
	}
	return s.Drawing.Shapes[i].Clone(), true
}
