/*
Copyright (C) 2024  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package typesys

import "testing"

func TestValuePrimitiveEqual(t *testing.T) {
	a := NewInt(Int32, 7)
	b := NewInt(Int32, 7)
	c := NewInt(Int32, 8)
	if !a.Equal(b) {
		t.Fatalf("expected equal int32 values")
	}
	if a.Equal(c) {
		t.Fatalf("expected unequal int32 values to differ")
	}
}

func TestValueFloatAndStringEqual(t *testing.T) {
	if !NewFloat(Float64, 1.5).Equal(NewFloat(Float64, 1.5)) {
		t.Fatalf("expected equal float64 values")
	}
	if NewString("a").Equal(NewString("b")) {
		t.Fatalf("expected unequal strings to differ")
	}
}

func TestValueRecordFieldOrderAndEqual(t *testing.T) {
	r := NewRecord("pkg/msg/Thing", []string{"x", "y"})
	r.SetField("x", NewInt(Int32, 1))
	r.SetField("y", NewInt(Int32, 2))
	if got := r.FieldOrder(); len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Fatalf("unexpected field order: %v", got)
	}

	other := NewRecord("pkg/msg/Thing", []string{"x", "y"})
	other.SetField("x", NewInt(Int32, 1))
	other.SetField("y", NewInt(Int32, 2))
	if !r.Equal(other) {
		t.Fatalf("expected structurally equal records to compare equal")
	}

	other.SetField("y", NewInt(Int32, 99))
	if r.Equal(other) {
		t.Fatalf("expected records with differing field values to differ")
	}
}

func TestValueSetFieldPreservesDeclarationOrderOnOverwrite(t *testing.T) {
	r := NewRecord("pkg/msg/Thing", nil)
	r.SetField("a", NewInt(Int32, 1))
	r.SetField("b", NewInt(Int32, 2))
	r.SetField("a", NewInt(Int32, 3))
	order := r.FieldOrder()
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected overwrite to keep original declaration order, got %v", order)
	}
	if r.Field("a").Int() != 3 {
		t.Fatalf("expected overwritten value to take effect")
	}
}

func TestValueNumericArrayEqual(t *testing.T) {
	a := NewNumericArray(Uint8, []uint64{1, 2, 3})
	b := NewNumericArray(Uint8, []uint64{1, 2, 3})
	c := NewNumericArray(Uint8, []uint64{1, 2, 4})
	if !a.Equal(b) {
		t.Fatalf("expected equal numeric arrays")
	}
	if a.Equal(c) {
		t.Fatalf("expected differing numeric arrays to compare unequal")
	}
	nums, prim := a.NumericArray()
	if prim != Uint8 || len(nums) != 3 {
		t.Fatalf("unexpected NumericArray accessor result: %v %v", nums, prim)
	}
}

func TestValueItemArrayOfRecordsEqual(t *testing.T) {
	mk := func(x int64) *Value {
		r := NewRecord("pkg/msg/Point", []string{"x"})
		r.SetField("x", NewInt(Int32, x))
		return r
	}
	a := NewRecordArray([]*Value{mk(1), mk(2)})
	b := NewRecordArray([]*Value{mk(1), mk(2)})
	c := NewRecordArray([]*Value{mk(1), mk(3)})
	if !a.Equal(b) {
		t.Fatalf("expected equal item arrays of records")
	}
	if a.Equal(c) {
		t.Fatalf("expected differing item arrays to compare unequal")
	}
	if len(a.Items()) != 2 {
		t.Fatalf("expected Items() to return 2 elements")
	}
}

func TestValueNilHandling(t *testing.T) {
	var a *Value
	var b *Value
	if !a.Equal(b) {
		t.Fatalf("expected two nil Values to compare equal")
	}
	if a.Equal(NewInt(Int32, 1)) {
		t.Fatalf("expected nil Value to differ from a non-nil one")
	}
}
