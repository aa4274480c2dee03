// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package exprlang

import (
	"testing"

	"github.com/dkcore/dk/internal/record"
)

func evalSrc(t *testing.T, src string, rec *record.Record) record.Value {
	t.Helper()
	n, err := Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	v, err := n.Eval(recordEnv{rec: rec})
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	return v
}

func TestArithmeticPrecedence(t *testing.T) {
	rec := record.New()
	v := evalSrc(t, "2 + 3 * 4", rec)
	if v.Float != 14 {
		t.Fatalf("expected 14, got %v", v.Float)
	}
}

func TestParenOverridesPrecedence(t *testing.T) {
	rec := record.New()
	v := evalSrc(t, "(2 + 3) * 4", rec)
	if v.Float != 20 {
		t.Fatalf("expected 20, got %v", v.Float)
	}
}

func TestFieldReferenceArithmetic(t *testing.T) {
	rec := record.New()
	rec.Set("price", record.Float(9.5))
	rec.Set("qty", record.Int(3))
	v := evalSrc(t, "price * qty", rec)
	if v.Float != 28.5 {
		t.Fatalf("expected 28.5, got %v", v.Float)
	}
}

func TestComparisonAndBoolConnective(t *testing.T) {
	rec := record.New()
	rec.Set("age", record.Int(25))
	v := evalSrc(t, "age >= 18 && age < 65", rec)
	if !v.Bool {
		t.Fatal("expected true")
	}
}

func TestRegexMatch(t *testing.T) {
	rec := record.New()
	rec.Set("email", record.String("a@example.com"))
	v := evalSrc(t, `email =~ "^[^@]+@example\\.com$"`, rec)
	if !v.Bool {
		t.Fatal("expected regex match to succeed")
	}
}

func TestConditional(t *testing.T) {
	rec := record.New()
	rec.Set("score", record.Int(72))
	v := evalSrc(t, `score >= 60 ? "pass" : "fail"`, rec)
	if v.Str != "pass" {
		t.Fatalf("expected pass, got %v", v.Str)
	}
}

func TestUnaryNegationAndNot(t *testing.T) {
	rec := record.New()
	rec.Set("x", record.Int(5))
	v := evalSrc(t, "-x", rec)
	if v.Float != -5 {
		t.Fatalf("expected -5, got %v", v.Float)
	}
	v2 := evalSrc(t, "!(x > 10)", rec)
	if !v2.Bool {
		t.Fatal("expected true")
	}
}

func TestMissingFieldEvaluatesToNull(t *testing.T) {
	rec := record.New()
	v := evalSrc(t, "missing", rec)
	if !v.IsNull() {
		t.Fatalf("expected null, got %v", v)
	}
}

func TestCompileAndApplyTransform(t *testing.T) {
	rec := record.New()
	rec.Set("price", record.Float(10))
	rec.Set("qty", record.Int(4))

	c, err := Compile(map[string]string{
		"total":    "price * qty",
		"is_bulk":  "qty >= 4",
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Apply(rec)
	if err != nil {
		t.Fatal(err)
	}
	total, _ := out.Get("total")
	if total.Float != 40 {
		t.Fatalf("expected total=40, got %v", total.Float)
	}
	bulk, _ := out.Get("is_bulk")
	if !bulk.Bool {
		t.Fatal("expected is_bulk=true")
	}
}

func TestStringConcatenation(t *testing.T) {
	rec := record.New()
	rec.Set("first", record.String("Jane"))
	rec.Set("last", record.String("Doe"))
	v := evalSrc(t, `first + " " + last`, rec)
	if v.Str != "Jane Doe" {
		t.Fatalf("expected %q, got %q", "Jane Doe", v.Str)
	}
}
