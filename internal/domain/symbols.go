/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "strings"

// Symbol categories.
const (
	CategoryElectrical = "electrical"
	CategoryMechanical = "mechanical"
	CategoryPID        = "pid"
	CategoryGeneric    = "generic"
)

// Symbol describes a placeable element kind from the toolbar palette.
type Symbol struct {
	Kind     string
	Name     string
	Category string
	Default  Size
}

var symbols = []Symbol{
	{Kind: "resistor", Name: "Resistor", Category: CategoryElectrical, Default: Size{Width: 60, Height: 20}},
	{Kind: "capacitor", Name: "Capacitor", Category: CategoryElectrical, Default: Size{Width: 40, Height: 40}},
	{Kind: "inductor", Name: "Inductor", Category: CategoryElectrical, Default: Size{Width: 60, Height: 20}},
	{Kind: "switch", Name: "Switch", Category: CategoryElectrical, Default: Size{Width: 60, Height: 30}},
	{Kind: "ground", Name: "Ground", Category: CategoryElectrical, Default: Size{Width: 30, Height: 30}},
	{Kind: "motor", Name: "Motor", Category: CategoryElectrical, Default: Size{Width: 60, Height: 60}},
	{Kind: "transformer", Name: "Transformer", Category: CategoryElectrical, Default: Size{Width: 80, Height: 60}},
	{Kind: "gear", Name: "Gear", Category: CategoryMechanical, Default: Size{Width: 60, Height: 60}},
	{Kind: "bearing", Name: "Bearing", Category: CategoryMechanical, Default: Size{Width: 40, Height: 40}},
	{Kind: "spring", Name: "Spring", Category: CategoryMechanical, Default: Size{Width: 30, Height: 80}},
	{Kind: "shaft", Name: "Shaft", Category: CategoryMechanical, Default: Size{Width: 120, Height: 20}},
	{Kind: "valve", Name: "Valve", Category: CategoryPID, Default: Size{Width: 40, Height: 40}},
	{Kind: "pump", Name: "Pump", Category: CategoryPID, Default: Size{Width: 60, Height: 60}},
	{Kind: "tank", Name: "Tank", Category: CategoryPID, Default: Size{Width: 80, Height: 120}},
	{Kind: "instrument", Name: "Instrument", Category: CategoryPID, Default: Size{Width: 40, Height: 40}},
	{Kind: "heat-exchanger", Name: "Heat exchanger", Category: CategoryPID, Default: Size{Width: 100, Height: 50}},
	{Kind: "rect", Name: "Rectangle", Category: CategoryGeneric, Default: Size{Width: 100, Height: 60}},
	{Kind: "ellipse", Name: "Ellipse", Category: CategoryGeneric, Default: Size{Width: 80, Height: 60}},
	{Kind: "text", Name: "Text", Category: CategoryGeneric, Default: Size{Width: 120, Height: 24}},
}

// GenericSize is used for kinds that are not in the catalog.
var GenericSize = Size{Width: 80, Height: 60}

// Symbols returns the catalog in palette order.
func Symbols() []Symbol {
	out := make([]Symbol, len(symbols))
	copy(out, symbols)
	return out
}

// LookupSymbol finds a catalog entry by kind (case-insensitive).
func LookupSymbol(kind string) (Symbol, bool) {
	k := strings.ToLower(strings.TrimSpace(kind))
	for _, s := range symbols {
		if s.Kind == k {
			return s, true
		}
	}
	return Symbol{}, false
}

// DefaultSize returns the catalog default size for kind, or GenericSize.
func DefaultSize(kind string) Size {
	if s, ok := LookupSymbol(kind); ok {
		return s.Default
	}
	return GenericSize
}
